package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arborsim/maa/internal/cli"
	"github.com/arborsim/maa/internal/log"
	"github.com/arborsim/maa/internal/maa"
	"github.com/arborsim/maa/internal/sched"
	"github.com/arborsim/maa/internal/workload"
)

// Demo is a demonstration command: it issues three overlapping stream-load
// instructions into separate tiles and reports each tile's completion.
func Demo() cli.Command {
	return new(demo)
}

type demo struct {
	debug bool
	quiet bool
}

func (demo) Description() string {
	return "run demo workload"
}

func (d demo) Usage(out io.Writer) error {
	var err error
	_, err = fmt.Fprintln(out, `
demo [ -debug | -quiet ]

Run three overlapping stream-load instructions and print each destination
tile's final lifecycle.`)

	return err
}

func (d *demo) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)

	fs.BoolVar(&d.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&d.quiet, "quiet", false, "enable quiet output")

	return fs
}

func (d demo) Run(ctx context.Context, args []string, out io.Writer, _ *log.Logger) int {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if d.quiet {
		log.LogLevel.Set(log.Error)
	}

	if d.debug {
		log.LogLevel.Set(log.Debug)
	}

	logger := log.NewFormattedLogger(os.Stdout)
	log.SetDefault(logger)
	log.DefaultLogger = func() *log.Logger {
		return logger
	}

	logger.Info("Initializing MAA instance")

	cfg := maa.DefaultConfig()
	cfg.NumStreamUnits = 3

	s := sched.New()

	var ctrl *maa.Controller

	mem := newMemModel(s, nil, 40, 8)
	ctrl = maa.NewController(cfg, s,
		func(maa.Packet) bool { return true },
		mem.Transport,
		func(maa.Packet) bool { return true },
	)
	mem.ctrl = ctrl

	scalarBase, _ := ctrl.Decoder().WindowBase(maa.ScalarReg)
	instrBase, _ := ctrl.Decoder().WindowBase(maa.InstructionReg)

	plans := []struct {
		dst        maa.TileID
		min, max   uint32
		regs       [3]maa.RegID
	}{
		{dst: 0, min: 0, max: 32, regs: [3]maa.RegID{0, 1, 2}},
		{dst: 1, min: 32, max: 64, regs: [3]maa.RegID{3, 4, 5}},
		{dst: 2, min: 0, max: 16, regs: [3]maa.RegID{6, 7, 8}},
	}

	for _, p := range plans {
		mem.Seed(maa.Addr(p.min)*4, 4, seedValues(p.min, p.max))

		txns := []workload.Transaction{
			workload.WriteWord(scalarBase+maa.Addr(p.regs[0])*4, p.min),
			workload.WriteWord(scalarBase+maa.Addr(p.regs[1])*4, p.max),
			workload.WriteWord(scalarBase+maa.Addr(p.regs[2])*4, 1),
		}

		instr := workload.StreamLoadProgram(0, maa.U32, p.dst, maa.NoTile, p.regs[0], p.regs[1], p.regs[2])
		txns = append(txns, workload.InstructionProgram(instrBase, instr)...)

		workload.Run(ctrl.HandleCPU, txns)

		logger.Info("Issued stream-load", "dst", p.dst, "min", p.min, "max", p.max)
	}

	done := make(chan struct{})

	go func() {
		s.Run()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Demo completed")
	case <-ctx.Done():
		s.Halt()
		logger.Warn("Demo timeout")

		return 2
	}

	for _, p := range plans {
		lc := ctrl.SPD().Lifecycle(p.dst)
		fmt.Fprintf(out, "tile %d lifecycle: %s\n", p.dst, lc)
	}

	return 0
}

func seedValues(min, max uint32) []uint64 {
	n := int(max - min)
	values := make([]uint64, n)

	for i := range values {
		values[i] = uint64(min) + uint64(i)
	}

	return values
}
