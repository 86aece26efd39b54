package sched

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rescript-lang/bsb-ng/internal/module"
	"github.com/rescript-lang/bsb-ng/internal/pkgconfig"
)

const fakeBscScript = `#!/bin/sh
for last in "$@"; do :; done
src="${last%.ast}"
dir=$(dirname "$src")
case "$src" in
  *.resi)
    base=$(basename "$src" .resi)
    : > "$dir/$base.cmti"
    : > "$dir/$base.cmi"
    ;;
  *)
    base=$(basename "$src" .res)
    : > "$dir/$base.cmi"
    : > "$dir/$base.cmj"
    : > "$dir/$base.cmt"
    ;;
esac
`

type fakeEnv struct{ root *pkgconfig.RootConfig }

func (e *fakeEnv) RootConfig() *pkgconfig.RootConfig  { return e.root }
func (e *fakeEnv) Resolve(name string) (string, bool) { return "", false }

func newFixture(t *testing.T) (*module.BuildState, Environment, *module.Module, *module.Module) {
	t.Helper()
	dir := t.TempDir()

	bscPath := filepath.Join(dir, "fakebsc.sh")
	if err := os.WriteFile(bscPath, []byte(fakeBscScript), 0o755); err != nil {
		t.Fatal(err)
	}

	buildPath := filepath.Join(dir, "lib", "bs")
	artifactPath := filepath.Join(buildPath, "ocaml")
	if err := os.MkdirAll(artifactPath, 0o755); err != nil {
		t.Fatal(err)
	}
	// The invoker copies each compiled module's source file into the build
	// and artifact directories and fails the compile if it is missing.
	for _, src := range []string{"A.res", "B.res"} {
		if err := os.WriteFile(filepath.Join(dir, src), []byte("let x = 1"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	bs := module.NewBuildState("pkg", bscPath, dir, "")
	pkg := &module.Package{
		Name:         "pkg",
		Path:         dir,
		Config:       pkgconfig.PackageConfig{Name: "pkg", IsLocalDep: true},
		IsLocalDep:   true,
		BuildPath:    buildPath,
		ArtifactPath: artifactPath,
	}
	bs.AddPackage(pkg)

	b := module.NewSourceFileModule("B", "pkg", module.Implementation{Path: "B.res"}, nil)
	a := module.NewSourceFileModule("A", "pkg", module.Implementation{Path: "A.res"}, nil)
	bs.AddModule(b)
	bs.AddModule(a)
	bs.AddDep("A", "B")

	env := &fakeEnv{root: &pkgconfig.RootConfig{}}
	return bs, env, a, b
}

func TestSchedulerFirstBuildCompilesDirtyClosure(t *testing.T) {
	bs, env, a, b := newFixture(t)
	b.CompileDirty = true

	outcome, err := Run(context.Background(), bs, env, nil, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Errors != "" {
		t.Fatalf("Run() errors = %q, want none", outcome.Errors)
	}
	if outcome.Compiled != 2 {
		t.Errorf("Run().Compiled = %d, want 2 (B, then A cascading on B's first-ever compile)", outcome.Compiled)
	}
	if a.CompileDirty || b.CompileDirty {
		t.Errorf("CompileDirty = (A:%v, B:%v), want (false, false) after a successful build", a.CompileDirty, b.CompileDirty)
	}
	if a.SourceType.File.Implementation.CompileState != module.Success {
		t.Errorf("A.Implementation.CompileState = %v, want Success", a.SourceType.File.Implementation.CompileState)
	}
}

func TestSchedulerCleanCMISkipsDependents(t *testing.T) {
	bs, env, a, b := newFixture(t)
	b.CompileDirty = true

	if _, err := Run(context.Background(), bs, env, nil, Options{Workers: 2}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Re-touch B without changing its (empty) compiled output, simulating
	// a no-op edit.
	b.CompileDirty = true
	outcome, err := Run(context.Background(), bs, env, nil, Options{Workers: 2})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if outcome.Errors != "" {
		t.Fatalf("second Run() errors = %q, want none", outcome.Errors)
	}
	if outcome.Compiled != 1 {
		t.Errorf("second Run().Compiled = %d, want 1: B's interface digest did not change, so A should be skipped", outcome.Compiled)
	}
	if a.CompileDirty {
		t.Errorf("A.CompileDirty = true, want false: B's recompile produced an unchanged cmi")
	}
}

func TestSchedulerNoOpWhenNothingDirty(t *testing.T) {
	bs, env, _, _ := newFixture(t)

	outcome, err := Run(context.Background(), bs, env, nil, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Compiled != 0 {
		t.Errorf("Run().Compiled = %d, want 0: nothing is marked dirty", outcome.Compiled)
	}
}

func TestSchedulerDetectsCycle(t *testing.T) {
	bs, env, a, b := newFixture(t)
	b.CompileDirty = true
	// Introduce a cycle: A already depends on B; make B depend on A too.
	bs.AddDep("B", "A")

	outcome, err := Run(context.Background(), bs, env, nil, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Errors == "" {
		t.Fatalf("Run().Errors = %q, want a circular dependency error", outcome.Errors)
	}
}
