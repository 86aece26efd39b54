package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	bsbng "github.com/rescript-lang/bsb-ng"
	"github.com/rescript-lang/bsb-ng/internal/env"
)

var (
	debug      = flag.Bool("debug", false, "enable debug mode: format error messages with additional detail")
	projectDir = flag.String("C", "", "project directory to build (defaults to the current directory, or $BSB_PROJECT_ROOT)")
)

func funcmain() error {
	flag.Parse()

	root := env.ProjectRoot
	if *projectDir != "" {
		root = *projectDir
	}

	type cmd struct {
		fn func(ctx context.Context, root string, args []string) error
	}
	verbs := map[string]cmd{
		"build": {cmdBuild},
		"dirty": {cmdDirty},
		"stale": {cmdStale},
		"graph": {cmdGraph},
		"log":   {cmdLog},
	}

	args := flag.Args()
	verb := "build"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		fmt.Fprintf(os.Stderr, "bsb [-flags] <command> [args]\n")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "\tbuild - compile every dirty module and its dependents\n")
		fmt.Fprintf(os.Stderr, "\tdirty - list modules currently marked dirty, without compiling\n")
		fmt.Fprintf(os.Stderr, "\tstale - run the staleness passes and report what they marked dirty\n")
		fmt.Fprintf(os.Stderr, "\tgraph - print the module dependency graph as \"dependent -> dependency\" lines\n")
		fmt.Fprintf(os.Stderr, "\tlog <package> - show the previous build's diagnostics for a package\n")
		os.Exit(2)
	}

	ctx, canc := bsbng.InterruptibleContext()
	defer canc()
	// Unlike a deferred cleanup tied to one verb's success, build
	// diagnostics need to be saved whether the build finished clean or
	// failed on a compile error, so RunAtExit fires on both paths.
	defer func() {
		if err := bsbng.RunAtExit(); err != nil {
			fmt.Fprintf(os.Stderr, "at-exit: %v\n", err)
		}
	}()

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: bsb <command> [options]\n")
		os.Exit(2)
	}
	if err := v.fn(ctx, root, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}

	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
