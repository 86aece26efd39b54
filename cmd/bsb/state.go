package main

import (
	"os"
	"os/exec"

	"github.com/rescript-lang/bsb-ng/internal/discover"
	"github.com/rescript-lang/bsb-ng/internal/module"
	"github.com/rescript-lang/bsb-ng/internal/pkgconfig"
	"github.com/rescript-lang/bsb-ng/internal/stale"
)

// bscPath resolves the compiler binary: an explicit override, falling
// back to whatever "bsc" resolves to on $PATH.
func bscPath() string {
	if p := os.Getenv("BSB_BSC_PATH"); p != "" {
		return p
	}
	if p, err := exec.LookPath("bsc"); err == nil {
		return p
	}
	return "bsc"
}

// loadBuildState discovers root's packages and modules and runs the two
// staleness pre-passes, so the verbs that call it (build, dirty, graph)
// see a build state consistent with a prior interrupted run. The stale
// verb calls discover.Load directly, to compare before and after.
func loadBuildState(root string) (*module.BuildState, *pkgconfig.RootConfig, error) {
	bs, rootCfg, err := discover.Load(root, bscPath())
	if err != nil {
		return nil, nil, err
	}
	stale.DeletedDeps(bs)
	stale.ExpiredDeps(bs)
	return bs, rootCfg, nil
}

// buildEnv adapts a BuildState and its root config into sched.Environment.
type buildEnv struct {
	bs      *module.BuildState
	rootCfg *pkgconfig.RootConfig
}

func (e *buildEnv) RootConfig() *pkgconfig.RootConfig { return e.rootCfg }

func (e *buildEnv) Resolve(pkgName string) (string, bool) {
	pkg := e.bs.GetPackage(pkgName)
	if pkg == nil {
		return "", false
	}
	return pkg.ArtifactPath, true
}
