package main

import (
	"context"
	"fmt"
	"sort"
)

// cmdGraph prints every dependency edge in the project as
// "dependent -> dependency", one per line, sorted for stable diffing.
func cmdGraph(ctx context.Context, root string, args []string) error {
	bs, _, err := loadBuildState(root)
	if err != nil {
		return err
	}

	var lines []string
	for name, m := range bs.Modules {
		for dep := range m.Deps {
			lines = append(lines, fmt.Sprintf("%s -> %s", name, dep))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
