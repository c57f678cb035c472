package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/eak1mov/go-skytiles/config"
	"github.com/eak1mov/go-skytiles/pyramid"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/subcommands"
)

type generateCmd struct {
	jobPath   string
	maxLevel  int
	workers   int
	outputDir string
	platePath string
}

func (c *generateCmd) Name() string     { return "generate" }
func (c *generateCmd) Synopsis() string { return "build a tile pyramid from a job file" }
func (c *generateCmd) Usage() string {
	return "skytiles generate -job <path> [-max_level <n> -workers <n> -o <dir> -plate <name>]\n"
}
func (c *generateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.jobPath, "job", "", "Job file path (TOML)")
	f.IntVar(&c.maxLevel, "max_level", -1, "Override the deepest level (-1 keeps the job value)")
	f.IntVar(&c.workers, "workers", 0, "Override the number of workers")
	f.StringVar(&c.outputDir, "o", "", "Override the output directory")
	f.StringVar(&c.platePath, "plate", "", "Override the plate file name")
}

// apply copies flag overrides into the job and validates it again.
func (c *generateCmd) apply(job *config.Job) error {
	if c.maxLevel >= 0 {
		maxLevel := uint32(c.maxLevel)
		job.MaxLevel = &maxLevel
	}
	if c.workers > 0 {
		job.Workers = c.workers
	}
	if c.outputDir != "" {
		job.Output.Dir = c.outputDir
	}
	if c.platePath != "" {
		job.Output.Plate = c.platePath
	}
	return job.Validate()
}

func (c *generateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.jobPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	job, err := config.Load(c.jobPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if err := c.apply(job); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	report := func(step pyramid.Step, status pyramid.Status) {
		log.Printf("%v %v", step, status)
	}
	result, err := runJob(ctx, job, report, trackRun)
	if errors.Is(err, tile.ErrCancelled) {
		log.Printf("cancelled after %d tiles", result.TilesProcessed)
		return subcommands.ExitFailure
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	log.Printf("run %v: %d tiles processed, %d written", result.RunID, result.TilesProcessed, result.TilesWritten)
	return subcommands.ExitSuccess
}
