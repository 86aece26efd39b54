package main

import (
	"context"
	"fmt"

	"golang.org/x/xerrors"

	"github.com/rescript-lang/bsb-ng/internal/diag"
)

// cmdLog prints the previous build's accumulated diagnostics for one
// package.
func cmdLog(ctx context.Context, root string, args []string) error {
	if len(args) != 1 {
		return xerrors.New("usage: bsb log <package>")
	}
	l, err := diag.Load(logPath(root))
	if err != nil {
		return err
	}
	for _, entry := range l.For(args[0]) {
		fmt.Println(entry)
	}
	return nil
}
