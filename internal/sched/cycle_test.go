package sched

import (
	"testing"

	"github.com/rescript-lang/bsb-ng/internal/module"
)

func mod(name string, deps ...string) *module.Module {
	m := module.NewSourceFileModule(name, "pkg", module.Implementation{Path: name + ".res"}, nil)
	for _, d := range deps {
		m.Deps[d] = struct{}{}
	}
	return m
}

func universeOf(mods ...*module.Module) map[string]*module.Module {
	u := map[string]*module.Module{}
	for _, m := range mods {
		u[m.Name] = m
	}
	return u
}

func TestDetectCycleAcyclic(t *testing.T) {
	u := universeOf(mod("A", "B"), mod("B", "C"), mod("C"))
	if cycle := DetectCycle(u); cycle != nil {
		t.Errorf("DetectCycle() = %v, want nil for an acyclic graph", cycle)
	}
}

func TestDetectCycleDirect(t *testing.T) {
	u := universeOf(mod("A", "B"), mod("B", "A"))
	cycle := DetectCycle(u)
	if cycle == nil {
		t.Fatalf("DetectCycle() = nil, want a cycle for A <-> B")
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("DetectCycle() = %v, want a closed loop (first == last)", cycle)
	}
	seen := map[string]bool{}
	for _, n := range cycle[:len(cycle)-1] {
		seen[n] = true
	}
	if !seen["A"] || !seen["B"] {
		t.Errorf("DetectCycle() = %v, want both A and B present", cycle)
	}
}

func TestDetectCycleThreeNode(t *testing.T) {
	// A -> C -> B -> A: the alphabetically-sorted rendering "A -> B -> C
	// -> A" would assert an edge A -> B that does not exist.
	u := universeOf(mod("A", "C"), mod("B", "A"), mod("C", "B"))
	cycle := DetectCycle(u)
	if cycle == nil {
		t.Fatalf("DetectCycle() = nil, want a cycle for A -> C -> B -> A")
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("DetectCycle() = %v, want a closed loop (first == last)", cycle)
	}
	deps := map[string]string{"A": "C", "C": "B", "B": "A"}
	for i := 0; i < len(cycle)-1; i++ {
		if deps[cycle[i]] != cycle[i+1] {
			t.Errorf("DetectCycle() = %v: %s does not actually depend on %s", cycle, cycle[i], cycle[i+1])
		}
	}
	seen := map[string]bool{}
	for _, n := range cycle[:len(cycle)-1] {
		seen[n] = true
	}
	if !seen["A"] || !seen["B"] || !seen["C"] {
		t.Errorf("DetectCycle() = %v, want A, B, and C all present", cycle)
	}
}

func TestDetectCycleIgnoresEdgesLeavingUniverse(t *testing.T) {
	// A depends on something outside the universe; that must not be
	// mistaken for a cycle.
	u := universeOf(mod("A", "OutsideModule"))
	if cycle := DetectCycle(u); cycle != nil {
		t.Errorf("DetectCycle() = %v, want nil: the only edge leaves the universe", cycle)
	}
}

func TestFormatCycle(t *testing.T) {
	got := FormatCycle([]string{"A", "B", "A"})
	want := "A -> B -> A"
	if got != want {
		t.Errorf("FormatCycle() = %q, want %q", got, want)
	}
}
