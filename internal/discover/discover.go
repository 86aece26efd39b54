// Package discover walks a project directory into an initial
// module.BuildState: one Package per directory carrying a manifest, one
// Module per source file pair found inside it. Building the real
// dependency edges between modules requires parsing each file's actual
// import list out of the compiler's AST output, an external collaborator
// (the AST generation phase is explicitly out of scope for this module);
// discover instead wires package-level dependency declarations as a
// coarse approximation, which is enough to exercise the scheduler and
// staleness passes against a real directory tree.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"github.com/rescript-lang/bsb-ng/internal/module"
	"github.com/rescript-lang/bsb-ng/internal/pkgconfig"
)

// ManifestName is the file name a directory must contain to be treated as
// a package root.
const ManifestName = "bsconfig.json"

// Load walks root and returns a BuildState populated with every package
// and module found beneath it, plus the decoded root manifest. bscPath is
// recorded on the returned state for the scheduler's compiler
// invocations.
func Load(root, bscPath string) (*module.BuildState, *pkgconfig.RootConfig, error) {
	rootCfg, err := pkgconfig.LoadRoot(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, nil, xerrors.Errorf("loading root manifest: %w", err)
	}

	bs := module.NewBuildState(rootCfg.Name, bscPath, root, "")

	var pkgDirs []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "lib" || info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == ManifestName {
			pkgDirs = append(pkgDirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, nil, xerrors.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(pkgDirs)

	for _, dir := range pkgDirs {
		cfg, err := pkgconfig.Load(filepath.Join(dir, ManifestName))
		if err != nil {
			return nil, nil, err
		}
		cfg.IsLocalDep = !strings.Contains(dir, string(filepath.Separator)+"node_modules"+string(filepath.Separator))
		buildPath := filepath.Join(dir, "lib", "bs")
		pkg := &module.Package{
			Name:         cfg.Name,
			Path:         dir,
			Config:       *cfg,
			IsLocalDep:   cfg.IsLocalDep,
			BuildPath:    buildPath,
			ArtifactPath: filepath.Join(buildPath, "ocaml"),
		}
		bs.AddPackage(pkg)

		if err := addSourceModules(bs, pkg, dir); err != nil {
			return nil, nil, err
		}
	}

	for _, pkg := range bs.Packages {
		for _, dep := range pkg.Config.Dependencies {
			wirePackageDeps(bs, pkg, dep)
		}
		for _, dep := range pkg.Config.DevDependencies {
			wirePackageDeps(bs, pkg, dep)
		}
	}

	return bs, rootCfg, nil
}

// addSourceModules registers one Module per .res file (paired with its
// .resi, if any) found directly under a package directory, plus a
// synthetic namespace module when the package is configured for one.
func addSourceModules(bs *module.BuildState, pkg *module.Package, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return xerrors.Errorf("reading package dir %s: %w", dir, err)
	}

	interfaces := map[string]string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".resi") {
			interfaces[strings.TrimSuffix(e.Name(), ".resi")] = e.Name()
		}
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".res") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".res")
		name := pkgconfig.ToNamespaceSuffix(base)

		var iface *module.Interface
		if resi, ok := interfaces[base]; ok {
			iface = &module.Interface{Path: resi}
		}
		m := module.NewSourceFileModule(name, pkg.Name, module.Implementation{Path: e.Name()}, iface)
		m.CompileDirty = true
		bs.AddModule(m)
	}

	if suffix, ok := pkg.Config.Namespace.ToSuffix(); ok {
		if bs.GetModule(suffix) == nil {
			bs.AddModule(module.NewMlMapModule(suffix, pkg.Name))
		}
	}

	return nil
}

// wirePackageDeps adds a dependency edge from every source module in pkg
// to every module in the package named depName, the coarse package-level
// approximation of the real per-module import graph. pkg's namespace
// module gets no edges, since a namespace module is never a dependent.
func wirePackageDeps(bs *module.BuildState, pkg *module.Package, depName string) {
	depPkg := bs.GetPackage(depName)
	if depPkg == nil {
		return
	}
	var mine, theirs []string
	for name, m := range bs.Modules {
		switch m.PackageName {
		case pkg.Name:
			if !m.SourceType.IsMlMap() {
				mine = append(mine, name)
			}
		case depPkg.Name:
			theirs = append(theirs, name)
		}
	}
	for _, from := range mine {
		for _, to := range theirs {
			bs.AddDep(from, to)
		}
	}
}
