package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/xerrors"

	bsbng "github.com/rescript-lang/bsb-ng"
	"github.com/rescript-lang/bsb-ng/internal/diag"
	"github.com/rescript-lang/bsb-ng/internal/sched"
	"github.com/rescript-lang/bsb-ng/internal/trace"
)

func logPath(root string) string {
	return filepath.Join(root, "lib", "bs", ".bsb-log.json")
}

func cmdBuild(ctx context.Context, root string, args []string) error {
	fset := flag.NewFlagSet("build", flag.ExitOnError)
	workers := fset.Int("j", runtime.NumCPU(), "number of modules to compile concurrently")
	quiet := fset.Bool("quiet", false, "suppress the live progress display")
	fset.Parse(args)

	bs, rootCfg, err := loadBuildState(root)
	if err != nil {
		return err
	}
	env := &buildEnv{bs: bs, rootCfg: rootCfg}

	diagLog := diag.NewLog()
	// Registered immediately, like the teacher registers its cleanup right
	// after creating the resource it protects: however the build ends, the
	// diagnostics accumulated so far should still be there for a later
	// "bsb log <package>" to read.
	bsbng.RegisterAtExit(func() error {
		if err := os.MkdirAll(filepath.Dir(logPath(root)), 0o755); err != nil {
			return nil
		}
		return diagLog.Save(logPath(root))
	})

	var opts sched.Options
	opts.Workers = *workers
	if !*quiet && trace.IsTerminal {
		tracker := trace.NewTracker(*workers)
		opts.SetTotal = tracker.SetTotal
		opts.Inc = tracker.Inc
	}

	outcome, err := sched.Run(ctx, bs, env, diagLog, opts)
	if err != nil {
		return xerrors.Errorf("scheduler: %w", err)
	}

	if outcome.Warnings != "" {
		fmt.Fprint(os.Stderr, outcome.Warnings)
	}
	if outcome.Errors != "" {
		return xerrors.Errorf("%s", outcome.Errors)
	}

	fmt.Printf("compiled %d module(s)\n", outcome.Compiled)
	return nil
}
