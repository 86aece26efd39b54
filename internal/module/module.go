// Package module holds the compile scheduler's data model: Module,
// Package, BuildState, and the mutators that keep deps/dependents in
// sync. Modules are created by an earlier discovery phase (AST
// generation, out of scope here) and persisted in a BuildState; within
// the scheduler they are mutated in place.
package module

import (
	"time"

	"github.com/rescript-lang/bsb-ng/internal/pkgconfig"
)

// CompileState is the tri-state (plus Pending) outcome of compiling one
// artifact (an implementation or an interface).
type CompileState int

const (
	Pending CompileState = iota
	Success
	Warning
	Error
)

func (s CompileState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Implementation is a module's required implementation file.
type Implementation struct {
	Path         string
	CompileState CompileState
}

// Interface is a module's optional interface file.
type Interface struct {
	Path         string
	CompileState CompileState
}

// SourceFile is a module backed by an implementation (and optionally an
// interface) that the compiler subprocess is invoked against.
type SourceFile struct {
	Implementation Implementation
	Interface      *Interface // nil when the module has no separate interface
}

// MlMap is a synthetic namespace-aggregator module. It is never a
// dependent (only ever a dependency) and its "compile" is a no-op
// subprocess call handled upstream during AST generation; only its flags
// are cleared here.
type MlMap struct {
	ParseDirty bool
}

// SourceType is the tagged variant distinguishing ordinary source modules
// from namespace aggregators.
type SourceType struct {
	File  *SourceFile // non-nil for a SourceFile variant
	MlMap *MlMap      // non-nil for an MlMap variant
}

// IsMlMap reports whether this module is a namespace aggregator.
func (t SourceType) IsMlMap() bool { return t.MlMap != nil }

// Module is the principal entity in the compile graph.
type Module struct {
	Name        string
	PackageName string
	SourceType  SourceType

	Deps       map[string]struct{} // module names this module depends on
	Dependents map[string]struct{} // inverse of Deps, maintained automatically

	CompileDirty bool

	// LastCompiledCMI/LastCompiledCMT are the wall-clock timestamps of the
	// most recently successful compile of the interface and typed-tree
	// artifacts respectively. Nil means "never successfully compiled".
	LastCompiledCMI *time.Time
	LastCompiledCMT *time.Time

	// IsTypeDev marks a dev-only source file; it affects which package
	// dependencies (dev-dependencies) are visible to it.
	IsTypeDev bool
}

// NewSourceFileModule constructs a Module wrapping a SourceFile.
func NewSourceFileModule(name, pkgName string, impl Implementation, iface *Interface) *Module {
	return &Module{
		Name:        name,
		PackageName: pkgName,
		SourceType:  SourceType{File: &SourceFile{Implementation: impl, Interface: iface}},
		Deps:        map[string]struct{}{},
		Dependents:  map[string]struct{}{},
	}
}

// NewMlMapModule constructs a Module wrapping a namespace aggregator.
func NewMlMapModule(name, pkgName string) *Module {
	return &Module{
		Name:        name,
		PackageName: pkgName,
		SourceType:  SourceType{MlMap: &MlMap{}},
		Deps:        map[string]struct{}{},
		Dependents:  map[string]struct{}{},
	}
}

// Interface returns the module's interface, if it has one.
func (m *Module) Interface() *Interface {
	if m.SourceType.File == nil {
		return nil
	}
	return m.SourceType.File.Interface
}

// Package is the (mostly) immutable-during-a-compile set of settings for
// one package. Immutable here refers to the compile run: the scheduler
// never mutates a Package, only the Modules it owns.
type Package struct {
	Name         string
	Path         string // package root on disk
	Config       pkgconfig.PackageConfig
	IsLocalDep   bool // user source tree, as opposed to a vendored package
	BuildPath    string
	ArtifactPath string // the package's public artifact directory, e.g. <build>/ocaml
}

// BuildState is the process-wide aggregate the scheduler mutates.
type BuildState struct {
	Modules map[string]*Module
	// ModuleNames is the full set of module names known this run.
	ModuleNames map[string]struct{}
	Packages    map[string]*Package

	// DeletedModules is the set of module names that existed in a
	// previous run but are gone this run.
	DeletedModules map[string]struct{}

	RootConfigName string
	BscPath        string
	ProjectRoot    string
	WorkspaceRoot  string
}

// NewBuildState returns an empty BuildState ready to have modules and
// packages added via AddModule/AddPackage.
func NewBuildState(rootConfigName, bscPath, projectRoot, workspaceRoot string) *BuildState {
	return &BuildState{
		Modules:        map[string]*Module{},
		ModuleNames:    map[string]struct{}{},
		Packages:       map[string]*Package{},
		DeletedModules: map[string]struct{}{},
		RootConfigName: rootConfigName,
		BscPath:        bscPath,
		ProjectRoot:    projectRoot,
		WorkspaceRoot:  workspaceRoot,
	}
}

// AddModule registers m in the build state's module map and name set.
func (bs *BuildState) AddModule(m *Module) {
	bs.Modules[m.Name] = m
	bs.ModuleNames[m.Name] = struct{}{}
}

// AddPackage registers p in the build state's package map.
func (bs *BuildState) AddPackage(p *Package) {
	bs.Packages[p.Name] = p
}

// AddDep records that dependent depends on dependency, maintaining Deps
// and Dependents as exact inverses. An MlMap dependency is recorded like
// any other dependency; it simply never appears as someone's Dependents
// source, which AddDep itself does not need to special-case since
// Dependents is always the inverse of Deps regardless of source type.
func (bs *BuildState) AddDep(dependent, dependency string) {
	d := bs.Modules[dependent]
	p := bs.Modules[dependency]
	if d == nil || p == nil {
		return
	}
	d.Deps[dependency] = struct{}{}
	p.Dependents[dependent] = struct{}{}
}

// GetModule returns the module named name, or nil if unknown.
func (bs *BuildState) GetModule(name string) *Module {
	return bs.Modules[name]
}

// GetPackage returns the package named name, or nil if unknown.
func (bs *BuildState) GetPackage(name string) *Package {
	return bs.Packages[name]
}
