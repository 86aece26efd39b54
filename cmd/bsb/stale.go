package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/rescript-lang/bsb-ng/internal/discover"
	"github.com/rescript-lang/bsb-ng/internal/stale"
)

// cmdStale runs only the two staleness pre-passes and reports which
// modules they newly marked dirty, without running the scheduler.
func cmdStale(ctx context.Context, root string, args []string) error {
	bs, _, err := discover.Load(root, bscPath())
	if err != nil {
		return err
	}

	before := map[string]bool{}
	for name, m := range bs.Modules {
		before[name] = m.CompileDirty
	}

	stale.DeletedDeps(bs)
	stale.ExpiredDeps(bs)

	var newlyDirty []string
	for name, m := range bs.Modules {
		if m.CompileDirty && !before[name] {
			newlyDirty = append(newlyDirty, name)
		}
	}
	sort.Strings(newlyDirty)
	if len(newlyDirty) == 0 {
		fmt.Println("no modules invalidated")
		return nil
	}
	for _, name := range newlyDirty {
		fmt.Println(name)
	}
	return nil
}
