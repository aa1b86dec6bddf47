package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/MJE43/onering-odds/internal/config"
	"github.com/MJE43/onering-odds/internal/engine"
	"github.com/MJE43/onering-odds/internal/logging"
	"github.com/MJE43/onering-odds/internal/odds"
	"github.com/MJE43/onering-odds/internal/scan"
)

// job is one table to print.
type job struct {
	name      string
	variant   odds.Variant
	targets   []int
	poolSizes []int
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "oddstable: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("oddstable", flag.ContinueOnError)
	mode := fs.String("mode", "Normal", "feat die mode: Normal, Favored or Ill-favored")
	weary := fs.Bool("weary", false, "apply the Weary condition")
	miserable := fs.Bool("miserable", false, "apply the Miserable condition")
	all := fs.Bool("all", false, "print every mode and condition combination")
	presetsPath := fs.String("presets", "", "YAML file of named presets to print")
	asCSV := fs.Bool("csv", false, "write CSV instead of an aligned table")
	trials := fs.Int("trials", 0, "print the dice of the first N trials before the tables")
	n := fs.Int("n", cfg.SampleSize, "number of simulated trials")
	seed := fs.Int64("seed", cfg.Seed, "sample seed")
	workers := fs.Int("workers", cfg.Workers, "table workers (0 = GOMAXPROCS)")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := logging.New(*logLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	jobs, err := planJobs(*mode, *weary, *miserable, *all, *presetsPath)
	if err != nil {
		return err
	}

	batch, err := engine.GenerateBatch(*n, *seed)
	if err != nil {
		return err
	}
	logger.Debug("batch_generated", zap.Int("sample_size", batch.Len()), zap.Int64("seed", batch.Seed()))

	if *trials > 0 {
		if err := writeTrials(out, batch, *trials); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	assembler := scan.NewAssembler(*workers)
	for i, j := range jobs {
		table, err := assembler.Build(context.Background(), scan.TableRequest{
			Targets:   j.targets,
			PoolSizes: j.poolSizes,
			Variant:   j.variant,
			Batch:     batch,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", j.name, err)
		}
		logger.Debug("table_built", zap.String("name", j.name))

		if i > 0 {
			fmt.Fprintln(out)
		}
		if *asCSV {
			if len(jobs) > 1 {
				fmt.Fprintf(out, "# %s\n", j.name)
			}
			err = table.WriteCSV(out)
		} else {
			err = table.WriteText(out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// planJobs turns the selection flags into the list of tables to print.
func planJobs(mode string, weary, miserable, all bool, presetsPath string) ([]job, error) {
	switch {
	case presetsPath != "":
		presets, err := config.LoadPresets(presetsPath)
		if err != nil {
			return nil, err
		}
		jobs := make([]job, 0, len(presets))
		for _, p := range presets {
			v, err := p.Variant()
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, newJob(p.Name, v, p.Targets, p.PoolSizes))
		}
		return jobs, nil

	case all:
		var jobs []job
		for _, spec := range odds.ListModes() {
			for _, w := range []bool{false, true} {
				for _, m := range []bool{false, true} {
					v := odds.Variant{FeatMode: spec.ID, Weary: w, Miserable: m}
					jobs = append(jobs, newJob(describe(v), v, nil, nil))
				}
			}
		}
		return jobs, nil

	default:
		fm, err := odds.ParseFeatMode(mode)
		if err != nil {
			return nil, err
		}
		v := odds.Variant{FeatMode: fm, Weary: weary, Miserable: miserable}
		return []job{newJob(describe(v), v, nil, nil)}, nil
	}
}

// writeTrials prints the raw dice of the first n trials. Feat faces are
// zero-based: 0 is the Eye and 11 the rune.
func writeTrials(w io.Writer, b *engine.Batch, n int) error {
	if n > b.Len() {
		n = b.Len()
	}
	for i := 0; i < n; i++ {
		success, feat := b.Trial(i)
		if _, err := fmt.Fprintf(w, "trial %d: success %v feat %v\n", i, success, feat); err != nil {
			return err
		}
	}
	return nil
}

func newJob(name string, v odds.Variant, targets, poolSizes []int) job {
	if len(targets) == 0 {
		targets = scan.DefaultTargets()
	}
	if len(poolSizes) == 0 {
		poolSizes = scan.DefaultPoolSizes()
	}
	return job{name: name, variant: v, targets: targets, poolSizes: poolSizes}
}

func describe(v odds.Variant) string {
	s := string(v.FeatMode)
	if v.Weary {
		s += ", Weary"
	}
	if v.Miserable {
		s += ", Miserable"
	}
	return s
}
