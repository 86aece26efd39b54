package main

import (
	"context"
	"fmt"
	"sort"
)

// cmdDirty lists modules marked dirty after discovery and the two
// staleness passes, without compiling anything.
func cmdDirty(ctx context.Context, root string, args []string) error {
	bs, _, err := loadBuildState(root)
	if err != nil {
		return err
	}
	var names []string
	for name, m := range bs.Modules {
		if m.CompileDirty {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
