// Command procworld runs the world generation engine headless along a scripted
// observer path and logs streaming statistics.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/xlab/closer"

	"procworld/internal/config"
	"procworld/internal/engine"
	"procworld/internal/heightmap"
	"procworld/internal/profiling"
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "YAML configuration file (defaults when empty)")
		ticks       = pflag.IntP("ticks", "n", 0, "number of ticks to run, 0 runs until interrupted")
		tick        = pflag.Duration("tick", 16*time.Millisecond, "simulated time per tick")
		realtime    = pflag.Bool("realtime", false, "sleep so ticks follow wall-clock time")
		pathKind    = pflag.String("path", "circle", "observer path: circle, line or still")
		speed       = pflag.Float64("speed", 12, "observer speed in world units per second")
		radius      = pflag.Float64("radius", 80, "circle path radius")
		statsEvery  = pflag.Duration("stats", time.Second, "interval between stats lines, in simulated time")
		preview     = pflag.String("preview", "", "write a heightmap PNG here on exit")
		previewSize = pflag.Int("preview-size", 256, "preview edge length in pixels")
	)
	pflag.Parse()

	logger := log.New(os.Stderr, "procworld ", log.LstdFlags|log.Lmicroseconds)

	path, err := parsePath(*pathKind, *speed, *radius)
	if err != nil {
		logger.Fatalln(err)
	}
	if *tick <= 0 {
		logger.Fatalln("tick must be positive")
	}

	cfg, modTime, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalln(err)
	}
	store, err := config.NewStore(*cfg)
	if err != nil {
		logger.Fatalln(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	tracker := &profiling.Tracker{}
	e, err := engine.New(ctx, store, engine.Options{
		Logger:  log.New(os.Stderr, "engine ", log.LstdFlags|log.Lmicroseconds),
		Tracker: tracker,
	})
	if err != nil {
		cancel()
		logger.Fatalln(err)
	}

	done := make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-done
		if *preview != "" {
			if err := writePreview(*preview, e.Sampler().Current(), *previewSize); err != nil {
				logger.Println("preview:", err)
			} else {
				logger.Println("preview written to", *preview)
			}
		}
		e.Close()
		logger.Println("final", e.Stats())
	})

	go func() {
		var sinceStats time.Duration
		for n := 0; (*ticks == 0 || n < *ticks) && ctx.Err() == nil; n++ {
			start := time.Now()
			e.Tick(path(e.Elapsed()+*tick), *tick)

			sinceStats += *tick
			if sinceStats >= *statsEvery {
				sinceStats = 0
				logger.Printf("%s engine=%.1fms [%s]", e.Stats(), ms(tracker.SumWithPrefix("engine.")), tracker.TopN(3))
				if *configPath != "" {
					modTime = reloadIfChanged(logger, store, *configPath, modTime)
				}
			}
			if *realtime {
				time.Sleep(*tick - time.Since(start))
			}
		}
		logger.Println("worst", profiling.Format(tracker.Worst(), 5))
		close(done)
		closer.Close()
	}()
	closer.Hold()
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func loadConfig(path string) (*config.Config, time.Time, error) {
	if path == "" {
		cfg := config.Default()
		return &cfg, time.Time{}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	cfg, err := config.Load(path)
	return cfg, info.ModTime(), err
}

// reloadIfChanged hands an edited configuration file to the store. Invalid
// edits are logged and the running configuration is kept.
func reloadIfChanged(logger *log.Logger, store *config.Store, path string, last time.Time) time.Time {
	info, err := os.Stat(path)
	if err != nil || !info.ModTime().After(last) {
		return last
	}
	cfg, err := config.Load(path)
	if err == nil {
		err = store.Set(*cfg)
	}
	if err != nil {
		logger.Println("reload rejected:", err)
	} else {
		logger.Println("reloaded", path)
	}
	return info.ModTime()
}

func writePreview(path string, g *heightmap.Grid, size int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := heightmap.WritePreview(f, g, size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
