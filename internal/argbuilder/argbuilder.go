// Package argbuilder assembles the compiler subprocess argument vector.
// It is a pure function of (package config, root config, module, AST
// path, interface flag): it performs no I/O and has no side effects.
package argbuilder

import (
	"fmt"
	"path/filepath"

	"github.com/rescript-lang/bsb-ng/internal/module"
	"github.com/rescript-lang/bsb-ng/internal/pkgconfig"
)

// Request bundles everything the builder needs to compose one compile's
// argument vector.
type Request struct {
	Config       *pkgconfig.PackageConfig
	RootConfig   *pkgconfig.RootConfig
	ASTPath      string
	ModuleName   string
	IsInterface  bool // compiling the interface rather than the implementation
	HasInterface bool // the module has a separate interface file at all
	IsTypeDev    bool
	IsLocalDep   bool

	// InterfaceArtifactDir is the shared directory every compile gets an
	// -I pointed at, holding the package's own already-compiled
	// interfaces (conventionally the "ocaml" directory inside the build
	// dir, i.e. the package's public artifact directory).
	InterfaceArtifactDir string

	// Dependencies is the already-resolved dependency list (see
	// pkgconfig.ResolveDependencies); argbuilder does not resolve
	// dependencies itself, it only renders resolved ones into -I flags.
	Dependencies []pkgconfig.ResolvedDependency
}

// Build composes the compiler argument vector in the order the compiler
// requires: namespace directive, read-cmi directive, shared interface
// include path, per-dependency include paths, JSX flags, raw compiler
// flags, warning flags, gentype flag, package-name flag, per-output-spec
// package-output directives, and finally the AST path.
func Build(req Request) []string {
	var args []string

	args = append(args, namespaceArgs(req)...)
	args = append(args, readCMIArgs(req)...)
	args = append(args, "-I", req.InterfaceArtifactDir)
	args = append(args, dependencyArgs(req.Dependencies)...)
	args = append(args, req.RootConfig.JSX.ModuleArgs()...)
	args = append(args, req.RootConfig.JSX.ModeArgs()...)
	args = append(args, req.RootConfig.JSX.PreserveArgs()...)
	args = append(args, req.Config.CompilerFlags...)
	args = append(args, req.Config.WarningArgs(req.IsLocalDep)...)
	args = append(args, req.Config.GentypeArg...)
	args = append(args, "-bs-package-name", req.Config.Name)
	args = append(args, packageOutputArgs(req)...)
	args = append(args, req.ASTPath)

	return args
}

// namespaceArgs emits -open <suffix> when this module is the namespace's
// entry module, -bs-ns <suffix> when the package merely has a namespace,
// or nothing when the package has none.
func namespaceArgs(req Request) []string {
	ns := req.Config.Namespace
	suffix, ok := ns.ToSuffix()
	if !ok {
		return nil
	}
	if ns.Kind == pkgconfig.NamespaceWithEntry && ns.Entry == req.ModuleName {
		return []string{"-open", suffix}
	}
	return []string{"-bs-ns", suffix}
}

// readCMIArgs emits -bs-read-cmi when compiling the implementation of a
// module that has a separate interface file (the implementation must
// read the already-compiled interface rather than infer its own).
func readCMIArgs(req Request) []string {
	if req.HasInterface && !req.IsInterface {
		return []string{"-bs-read-cmi"}
	}
	return nil
}

// dependencyArgs renders resolved dependencies into -I flags pointing at
// each dependency's public artifact directory.
func dependencyArgs(deps []pkgconfig.ResolvedDependency) []string {
	var args []string
	for _, dep := range deps {
		args = append(args, "-I", dep.ArtifactPath)
	}
	return args
}

// packageOutputArgs renders -bs-package-output directives for every
// configured output spec. They are only emitted when compiling an
// implementation; interfaces never emit JavaScript.
func packageOutputArgs(req Request) []string {
	if req.IsInterface {
		return nil
	}
	var args []string
	dir := filepath.Dir(req.ASTPath)
	for _, spec := range req.RootConfig.OutputSpecs {
		dest := dir
		if !spec.InSource {
			dest = filepath.Join("lib", spec.OutOfSourceDir, dir)
		}
		args = append(args, "-bs-package-output",
			fmt.Sprintf("%s:%s:%s", spec.Module, dest, req.RootConfig.Suffix(spec)))
	}
	return args
}

// ResolveRequest builds a Request from a module.Module and its owning
// package, resolving its dependency list via resolve. It is the glue
// between the data model and the pure Build function above, kept in this
// package (rather than module or invoke) because it is still pure:
// everything it needs is already in memory.
func ResolveRequest(
	m *module.Module,
	pkg *module.Package,
	rootCfg *pkgconfig.RootConfig,
	astPath string,
	isInterface bool,
	interfaceArtifactDir string,
	resolve pkgconfig.DependencyResolver,
) (Request, error) {
	deps, err := pkgconfig.ResolveDependencies(&pkg.Config, m.IsTypeDev, resolve)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Config:               &pkg.Config,
		RootConfig:           rootCfg,
		ASTPath:              astPath,
		ModuleName:           m.Name,
		IsInterface:          isInterface,
		HasInterface:         m.Interface() != nil,
		IsTypeDev:            m.IsTypeDev,
		IsLocalDep:           pkg.IsLocalDep,
		InterfaceArtifactDir: interfaceArtifactDir,
		Dependencies:         deps,
	}, nil
}
