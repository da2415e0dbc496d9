package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is only served when --pprof-addr is set
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/felixge/fgprof"
	"github.com/spf13/cobra"

	"github.com/pameecs/peac"
	"github.com/pameecs/peac/cache"
)

// benchConfig holds the bench command's flags.
type benchConfig struct {
	mode        string
	duration    time.Duration
	iterations  int
	batch       int
	cacheChunks int
	seed        uint64
	pprofAddr   string
	cpuProfile  string
	memProfile  string
	traceFile   string
	fgProfile   string
}

type benchStats struct {
	ops     int
	bytes   uint64
	elapsed time.Duration
}

//nolint:unused // sinks keep the compiler from discarding benchmark results
var (
	sinkBytes []byte
	sinkEntry peac.Entry
)

func newBenchCommand(g *globals) *cobra.Command {
	cfg := benchConfig{}
	cmd := &cobra.Command{
		Use:   "bench <archive>",
		Short: "Profile random reads against an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []peac.Option
			if cfg.cacheChunks > 0 {
				c, err := cache.NewARC(cfg.cacheChunks)
				if err != nil {
					return err
				}
				extra = append(extra, peac.WithChunkCache(c))
			}
			a, err := g.open(cmd, args[0], extra...)
			if err != nil {
				return err
			}
			defer a.Close()

			stop, err := startProfiles(g.logger(cmd.ErrOrStderr()), &cfg)
			if err != nil {
				return err
			}
			stats, runErr := runBench(&cfg, a)
			if err := stop(); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}

			secs := stats.elapsed.Seconds()
			fmt.Fprintf(cmd.OutOrStdout(), "mode=%s ops=%d bytes=%s elapsed=%s ops/s=%.0f throughput=%s/s\n",
				cfg.mode, stats.ops, humanize.IBytes(stats.bytes), stats.elapsed.Round(time.Millisecond),
				float64(stats.ops)/secs, humanize.IBytes(uint64(float64(stats.bytes)/secs)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.mode, "mode", "readfile", "mode: readfile, readasync, lookup")
	f.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	f.IntVar(&cfg.iterations, "iterations", 0, "number of operations to run")
	f.IntVar(&cfg.batch, "batch", 16, "reads in flight per step in readasync mode")
	f.IntVar(&cfg.cacheChunks, "cache-chunks", 0, "ARC chunk cache capacity (0 = no cache)")
	f.Uint64Var(&cfg.seed, "seed", 1, "random seed")
	f.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	f.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	f.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	f.StringVar(&cfg.traceFile, "trace", "", "write execution trace to file")
	f.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	return cmd
}

// startProfiles starts every requested profiler and returns a func that
// stops them and writes the heap profile.
func startProfiles(logger *slog.Logger, cfg *benchConfig) (func() error, error) {
	var stops []func() error
	stop := func() error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i]())
		}
		if cfg.memProfile != "" {
			runtime.GC()
			errs = append(errs, writeFile(cfg.memProfile, pprof.WriteHeapProfile))
		}
		return errors.Join(errs...)
	}

	if cfg.pprofAddr != "" {
		go func() {
			logger.Info("pprof listening", "addr", cfg.pprofAddr)
			//nolint:gosec // profiling server without timeouts
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				logger.Error("pprof server", "error", err)
			}
		}()
	}

	if cfg.fgProfile != "" {
		f, err := os.Create(cfg.fgProfile)
		if err != nil {
			return nil, err
		}
		stopFG := fgprof.Start(f, fgprof.FormatPprof)
		stops = append(stops, func() error {
			return errors.Join(stopFG(), f.Close())
		})
	}

	if cfg.cpuProfile != "" {
		f, err := os.Create(cfg.cpuProfile)
		if err != nil {
			_ = stop()
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			_ = stop()
			return nil, err
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if cfg.traceFile != "" {
		f, err := os.Create(cfg.traceFile)
		if err != nil {
			_ = stop()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			f.Close()
			_ = stop()
			return nil, err
		}
		stops = append(stops, func() error {
			trace.Stop()
			return f.Close()
		})
	}
	return stop, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runBench(cfg *benchConfig, a *peac.Archive) (benchStats, error) {
	var files []peac.Entry
	var paths []string
	err := a.Walk(func(p string, e peac.Entry) error {
		if a.IsFile(e) {
			files = append(files, e)
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return benchStats{}, err
	}
	if len(files) == 0 {
		return benchStats{}, errors.New("archive has no files")
	}

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed)) //nolint:gosec // reproducible selection
	var stats benchStats
	start := time.Now()
	more := func() bool {
		if cfg.iterations > 0 {
			return stats.ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	switch cfg.mode {
	case "readfile":
		for more() {
			i := rng.IntN(len(files))
			data, err := a.ReadFile(paths[i])
			if err != nil {
				return benchStats{}, err
			}
			sinkBytes = data
			stats.bytes += uint64(len(data))
			stats.ops++
		}

	case "readasync":
		batch := max(cfg.batch, 1)
		pending := make([]*peac.Pending, 0, batch)
		for more() {
			pending = pending[:0]
			for range batch {
				pending = append(pending, a.ReadEntryAsync(files[rng.IntN(len(files))]))
			}
			for _, p := range pending {
				data, err := p.Wait()
				if err != nil {
					return benchStats{}, err
				}
				sinkBytes = data
				stats.bytes += uint64(len(data))
				stats.ops++
			}
		}

	case "lookup":
		for more() {
			e, err := a.Entry(paths[rng.IntN(len(paths))])
			if err != nil {
				return benchStats{}, err
			}
			sinkEntry = e
			stats.ops++
		}

	default:
		return benchStats{}, fmt.Errorf("unknown mode %q", cfg.mode)
	}
	stats.elapsed = time.Since(start)
	return stats, nil
}
