// maasim is a cycle-level model of a Memory Access Accelerator (MAA), a
// near-memory stream co-processor.
package main

import (
	"context"
	"os"

	"github.com/arborsim/maa/internal/cli"
	"github.com/arborsim/maa/internal/cli/cmd"
)

func main() {
	commander := cli.New(context.Background()).WithLogger(os.Stderr)

	commands := []cli.Command{
		cmd.Run(),
		cmd.Demo(),
		cmd.Monitor(),
	}

	commander.WithCommands(commands)
	commander.WithHelp(cmd.Help(commands))

	os.Exit(commander.Execute(os.Args[1:]))
}
