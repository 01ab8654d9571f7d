package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/arborsim/maa/internal/cli"
	"github.com/arborsim/maa/internal/log"
	"github.com/arborsim/maa/internal/maa"
	"github.com/arborsim/maa/internal/monitor"
	"github.com/arborsim/maa/internal/sched"
	"github.com/arborsim/maa/internal/workload"
)

// Monitor is the interactive TUI command: it wires a fresh MAA instance,
// pre-loads a stream-load instruction, and hands control to the monitor
// dashboard for single-stepping.
func Monitor() cli.Command {
	return &monitorCmd{}
}

type monitorCmd struct {
	dst      int
	min, max uint
}

func (monitorCmd) Description() string {
	return "interactively step an MAA instance"
}

func (monitorCmd) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `monitor [-dst tile] [-min N] [-max N]

Open the interactive dashboard against an MAA instance pre-loaded with one
stream-load instruction.`)

	return err
}

func (m *monitorCmd) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	fs.IntVar(&m.dst, "dst", 0, "destination tile")
	fs.UintVar(&m.min, "min", 0, "first logical index, inclusive")
	fs.UintVar(&m.max, "max", 64, "last logical index, exclusive")

	return fs
}

func (m *monitorCmd) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	cfg := maa.DefaultConfig()
	s := sched.New()

	var ctrl *maa.Controller

	mem := newMemModel(s, nil, 20, 4)
	ctrl = maa.NewController(cfg, s,
		func(maa.Packet) bool { return true },
		mem.Transport,
		func(maa.Packet) bool { return true },
	)
	mem.ctrl = ctrl

	scalarBase, _ := ctrl.Decoder().WindowBase(maa.ScalarReg)
	instrBase, _ := ctrl.Decoder().WindowBase(maa.InstructionReg)

	n := int(m.max - m.min)
	values := make([]uint64, n)

	for i := range values {
		values[i] = uint64(m.min) + uint64(i)
	}

	mem.Seed(maa.Addr(m.min)*4, 4, values)

	instr := workload.StreamLoadProgram(0, maa.U32, maa.TileID(m.dst), maa.NoTile, 0, 1, 2)

	txns := []workload.Transaction{
		workload.WriteWord(scalarBase+0, uint32(m.min)),
		workload.WriteWord(scalarBase+4, uint32(m.max)),
		workload.WriteWord(scalarBase+8, 1),
	}
	txns = append(txns, workload.InstructionProgram(instrBase, instr)...)

	workload.Run(ctrl.HandleCPU, txns)

	logger.Info("Opening monitor", "dst", m.dst)

	if err := monitor.Run(monitor.New(ctrl, s, cfg.NumTiles)); err != nil {
		logger.Error("monitor error", "err", err)
		return 1
	}

	return 0
}
