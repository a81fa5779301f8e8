// SPDX-License-Identifier: Apache-2.0

// indexed-bench drives the indexedset library with synthetic workloads:
// timing runs against a reference container and long randomized soak runs
// with full invariant validation. It is a development tool, not part of the
// library surface.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"slices"
	"time"

	indexedset "github.com/andrei-telitsyn/indexed-set"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/urfave/cli/v2"
)

// record carries the benchmark payload: X is the ordered value, Y holds the
// shuffle key used to scramble the workload between phases.
type record struct {
	X, Y uint32
}

func recordLess(a, b record) bool { return a.X < b.X }

func main() {
	app := &cli.App{
		Name:  "indexed-bench",
		Usage: "benchmark and soak driver for the indexed-set library",
		Commands: []*cli.Command{
			benchCmd,
			soakCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

var benchCmd = &cli.Command{
	Name:  "bench",
	Usage: "time ascending insert, scrambled erase and scrambled re-insert against a reference container",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Usage: "number of elements",
			Value: 256*1024 - 1,
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "seed for the workload scramble",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "reserve",
			Usage: "pre-size the arena for the whole workload",
			Value: true,
		},
	},
	Action: runBench,
}

func runBench(cctx *cli.Context) error {
	count := cctx.Int("count")
	seed := cctx.Int64("seed")

	src := make([]record, count)
	for i := range src {
		src[i].X = uint32(i)
	}

	var opts []indexedset.Option
	if cctx.Bool("reserve") {
		opts = append(opts, indexedset.WithCapacity(count))
	}
	iset := indexedset.New(recordLess, opts...)
	ref := make(map[uint32]struct{}, count)

	slog.Info("ascending insert", "count", count)
	refMs := timed(func() {
		for _, v := range src {
			ref[v.X] = struct{}{}
		}
	})
	isetMs := timed(func() {
		for _, v := range src {
			if _, _, err := iset.Insert(v); err != nil {
				panic(err)
			}
		}
	})
	printPhase("ascending insert", refMs, isetMs, len(ref), iset.Len())
	printReport(iset)

	scramble(src, seed)

	slog.Info("scrambled erase")
	refMs = timed(func() {
		for _, v := range src {
			delete(ref, v.X)
		}
	})
	isetMs = timed(func() {
		for _, v := range src {
			iset.Erase(v)
		}
	})
	printPhase("scrambled erase", refMs, isetMs, len(ref), iset.Len())

	slog.Info("scrambled insert")
	refMs = timed(func() {
		for _, v := range src {
			ref[v.X] = struct{}{}
		}
	})
	isetMs = timed(func() {
		for _, v := range src {
			if _, _, err := iset.Insert(v); err != nil {
				panic(err)
			}
		}
	})
	printPhase("scrambled insert", refMs, isetMs, len(ref), iset.Len())
	printReport(iset)

	// final comparison: in-order iteration must equal the sorted reference
	want := make([]uint32, 0, len(ref))
	for x := range ref {
		want = append(want, x)
	}
	slices.Sort(want)

	got := make([]uint32, 0, iset.Len())
	iset.Ascend(func(v record) bool {
		got = append(got, v.X)
		return true
	})

	if !slices.Equal(want, got) {
		return fmt.Errorf("order of items diverges from the reference")
	}
	fmt.Println("order of items is verified")
	return nil
}

// scramble fills each record's shuffle key with fake random data and sorts
// the workload by it, the way the original driver resorts its input.
func scramble(src []record, seed int64) {
	faker := gofakeit.New(seed)
	for i := range src {
		src[i].Y = faker.Uint32()
	}
	slices.SortFunc(src, func(a, b record) int {
		switch {
		case a.Y < b.Y:
			return -1
		case a.Y > b.Y:
			return 1
		}
		return 0
	})
}

var soakCmd = &cli.Command{
	Name:  "soak",
	Usage: "randomized insert/erase trace with periodic invariant validation",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Usage: "number of random elements",
			Value: 100_000,
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "seed for values and erase order",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "check-every",
			Usage: "operations between validations",
			Value: 1000,
		},
	},
	Action: runSoak,
}

func runSoak(cctx *cli.Context) error {
	count := cctx.Int("count")
	seed := cctx.Int64("seed")
	checkEvery := cctx.Int("check-every")

	faker := gofakeit.New(seed)
	rng := rand.New(rand.NewSource(seed))
	s := indexedset.NewOrdered[uint32]()

	slog.Info("insert phase", "count", count, "check_every", checkEvery)
	values := make([]uint32, 0, count)
	for ops := 0; s.Len() < count; ops++ {
		v := faker.Uint32()
		_, added, err := s.Insert(v)
		if err != nil {
			return err
		}
		if added {
			values = append(values, v)
		}
		if ops%checkEvery == 0 {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("after %d inserts: %w", ops, err)
			}
		}
	}
	if err := s.Validate(); err != nil {
		return err
	}
	printReport(s)

	slog.Info("erase phase")
	rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
	for i, v := range values {
		if !s.Erase(v) {
			return fmt.Errorf("value %d vanished before its erase", v)
		}
		if want := count - i - 1; s.Len() != want {
			return fmt.Errorf("size %d after %d erases, want %d", s.Len(), i+1, want)
		}
		if i%checkEvery == 0 {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("after %d erases: %w", i, err)
			}
		}
	}

	if err := s.Validate(); err != nil {
		return err
	}
	if s.Len() != 0 || s.Begin().Valid() {
		return fmt.Errorf("set is not empty at the end of the trace")
	}
	printReport(s)
	fmt.Println("soak passed")
	return nil
}

func timed(fn func()) float64 {
	t0 := time.Now()
	fn()
	return float64(time.Since(t0).Microseconds()) / 1000.0
}

func printPhase(name string, refMs, isetMs float64, refLen, isetLen int) {
	fmt.Printf("%s\n", name)
	fmt.Printf("   ref:\t%.3f ms, size %d\n", refMs, refLen)
	fmt.Printf("  iset:\t%.3f ms, size %d\n", isetMs, isetLen)
}

func printReport[T any](s *indexedset.Set[T]) {
	st := s.Stats()
	fmt.Printf("allocated memory: %d\n", st.Capacity)
	fmt.Printf("   reallocations: %d\n", st.Reallocs)
	fmt.Printf("     used memory: %d (peak %d)\n", st.Used, st.Peak)
	fmt.Printf("total node count: %d\n", st.Nodes)
	fmt.Printf("      leaf nodes: %d\n", st.Leaves)
	fmt.Printf("  min leaf depth: %d\n", st.MinLeafDepth)
	fmt.Printf("  max leaf depth: %d\n", st.MaxLeafDepth)
}
