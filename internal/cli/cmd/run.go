package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/arborsim/maa/internal/cli"
	"github.com/arborsim/maa/internal/log"
	"github.com/arborsim/maa/internal/maa"
	"github.com/arborsim/maa/internal/sched"
	"github.com/arborsim/maa/internal/workload"
)

// Run drives a single stream-load instruction through a freshly wired MAA
// instance, reporting the destination tile's lifecycle at completion.
func Run() cli.Command {
	return &runner{}
}

type runner struct {
	min, max, stride uint
	dst              int
	latency          uint64
	inFlight         int
}

func (runner) Description() string {
	return "run a single stream-load instruction against a fresh MAA instance"
}

func (r *runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [-min N] [-max N] [-stride N] [-dst tile]

Issue one stream-load instruction, iterating [min, max) by stride into the
destination tile, against a simulated memory with fixed line latency.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.UintVar(&r.min, "min", 0, "first logical index, inclusive")
	fs.UintVar(&r.max, "max", 64, "last logical index, exclusive")
	fs.UintVar(&r.stride, "stride", 1, "iteration stride")
	fs.IntVar(&r.dst, "dst", 0, "destination tile")
	fs.Uint64Var(&r.latency, "latency", 50, "simulated DRAM line latency, in ticks")
	fs.IntVar(&r.inFlight, "inflight", 4, "maximum outstanding memory reads")

	return fs
}

func (r *runner) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if r.stride == 0 {
		r.stride = 1
	}

	cfg := maa.DefaultConfig()
	s := sched.New()

	var ctrl *maa.Controller

	mem := newMemModel(s, nil, r.latency, r.inFlight)

	ctrl = maa.NewController(cfg, s,
		func(maa.Packet) bool { return true },
		mem.Transport,
		func(maa.Packet) bool { return true },
	)
	mem.ctrl = ctrl

	logger.Info("Seeding memory")

	base, _ := ctrl.Decoder().WindowBase(maa.InstructionReg)
	scalarBase, _ := ctrl.Decoder().WindowBase(maa.ScalarReg)

	n := int((r.max - r.min) / r.stride)
	values := make([]uint64, n)

	for i := range values {
		values[i] = uint64(1000 + i)
	}

	mem.Seed(maa.Addr(r.min)*4, 4, values)

	logger.Info("Issuing stream-load", "min", r.min, "max", r.max, "stride", r.stride, "dst", r.dst)

	instr := workload.StreamLoadProgram(0, maa.U32, maa.TileID(r.dst), maa.NoTile, 0, 1, 2)

	txns := []workload.Transaction{
		workload.WriteWord(scalarBase+0, uint32(r.min)),
		workload.WriteWord(scalarBase+4, uint32(r.max)),
		workload.WriteWord(scalarBase+8, uint32(r.stride)),
	}
	txns = append(txns, workload.InstructionProgram(base, instr)...)

	workload.Run(ctrl.HandleCPU, txns)

	done := make(chan struct{})

	go func() {
		s.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Halt()
		logger.Warn("Run timeout")

		return 2
	}

	lc := ctrl.SPD().Lifecycle(maa.TileID(r.dst))

	fmt.Fprintf(out, "tile %d lifecycle: %s\n", r.dst, lc)
	logger.Info("Run completed", "lifecycle", lc.String())

	return 0
}
