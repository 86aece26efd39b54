package stale

import (
	"testing"
	"time"

	"github.com/rescript-lang/bsb-ng/internal/module"
)

func newBS() *module.BuildState {
	return module.NewBuildState("root", "/bin/bsc", "/proj", "")
}

func TestDeletedDepsMarksDependentDirty(t *testing.T) {
	bs := newBS()
	a := module.NewSourceFileModule("A", "pkg", module.Implementation{Path: "A.res"}, nil)
	bs.AddModule(a)
	a.Deps["Gone"] = struct{}{}
	bs.DeletedModules["Gone"] = struct{}{}

	DeletedDeps(bs)

	if !a.CompileDirty {
		t.Errorf("A.CompileDirty = false, want true after one of its deps was deleted")
	}
}

func TestDeletedDepsLeavesUnaffectedModulesAlone(t *testing.T) {
	bs := newBS()
	a := module.NewSourceFileModule("A", "pkg", module.Implementation{Path: "A.res"}, nil)
	bs.AddModule(a)

	DeletedDeps(bs)

	if a.CompileDirty {
		t.Errorf("A.CompileDirty = true, want false: A has no deleted dependencies")
	}
}

func ts(secondsAgo int) *time.Time {
	t := time.Now().Add(-time.Duration(secondsAgo) * time.Second)
	return &t
}

func TestExpiredDepsDependencyNeverFinished(t *testing.T) {
	bs := newBS()
	dep := module.NewSourceFileModule("Dep", "pkg", module.Implementation{Path: "Dep.res"}, nil)
	dependent := module.NewSourceFileModule("Dependent", "pkg", module.Implementation{Path: "Dependent.res"}, nil)
	dependent.LastCompiledCMT = ts(5)
	bs.AddModule(dep)
	bs.AddModule(dependent)
	bs.AddDep("Dependent", "Dep")

	ExpiredDeps(bs)

	if !dep.CompileDirty {
		t.Errorf("Dep.CompileDirty = false, want true: Dep never finished an interface compile")
	}
}

func TestExpiredDepsDependentOlderThanDependency(t *testing.T) {
	bs := newBS()
	dep := module.NewSourceFileModule("Dep", "pkg", module.Implementation{Path: "Dep.res"}, nil)
	dep.LastCompiledCMI = ts(1)
	dep.LastCompiledCMT = ts(1)
	dependent := module.NewSourceFileModule("Dependent", "pkg", module.Implementation{Path: "Dependent.res"}, nil)
	dependent.LastCompiledCMT = ts(10) // compiled before Dep's most recent compile
	bs.AddModule(dep)
	bs.AddModule(dependent)
	bs.AddDep("Dependent", "Dep")

	ExpiredDeps(bs)

	if !dependent.CompileDirty {
		t.Errorf("Dependent.CompileDirty = false, want true: its view of Dep predates Dep's last compile")
	}
	if dep.CompileDirty {
		t.Errorf("Dep.CompileDirty = true, want false: Dep itself finished compiling cleanly")
	}
}

func TestExpiredDepsUpToDatePairIsUntouched(t *testing.T) {
	bs := newBS()
	dep := module.NewSourceFileModule("Dep", "pkg", module.Implementation{Path: "Dep.res"}, nil)
	dep.LastCompiledCMI = ts(10)
	dep.LastCompiledCMT = ts(10)
	dependent := module.NewSourceFileModule("Dependent", "pkg", module.Implementation{Path: "Dependent.res"}, nil)
	dependent.LastCompiledCMT = ts(1)
	bs.AddModule(dep)
	bs.AddModule(dependent)
	bs.AddDep("Dependent", "Dep")

	ExpiredDeps(bs)

	if dep.CompileDirty || dependent.CompileDirty {
		t.Errorf("CompileDirty = (%v, %v), want (false, false) for an up-to-date pair", dep.CompileDirty, dependent.CompileDirty)
	}
}

func TestExpiredDepsMlMapMarksNamespaceStale(t *testing.T) {
	bs := newBS()
	ns := module.NewMlMapModule("MyPackage", "pkg")
	mid := module.NewSourceFileModule("Mid", "pkg", module.Implementation{Path: "Mid.res"}, nil)
	mid.LastCompiledCMI = ts(1)
	mid.LastCompiledCMT = ts(1)
	leaf := module.NewSourceFileModule("Leaf", "pkg", module.Implementation{Path: "Leaf.res"}, nil)
	leaf.LastCompiledCMT = ts(10) // older than Mid's last compile
	bs.AddModule(ns)
	bs.AddModule(mid)
	bs.AddModule(leaf)
	bs.AddDep("Mid", "MyPackage")
	bs.AddDep("Leaf", "Mid")

	ExpiredDeps(bs)

	if !ns.CompileDirty {
		t.Errorf("MyPackage(ns).CompileDirty = false, want true: Leaf's view of Mid, the namespace's direct dependent, predates Mid's last compile")
	}
}
