// Package pkgconfig defines the parsed shape of a package manifest (the
// bsconfig.json-equivalent) as consumed by the argument builder and the
// staleness passes. Load and LoadRoot decode only the handful of JSON
// manifest fields the scheduler core needs, not the manifest's full
// grammar; beyond that pkgconfig owns the decoded shape and the derived
// views the compiler-argument surface needs (namespace suffix, JSX flags,
// resolved dependency paths).
package pkgconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/xerrors"
)

// NamespaceKind distinguishes the three ways a package can relate to a
// compiled namespace module.
type NamespaceKind int

const (
	// NoNamespace means the package does not group its modules under a
	// namespace; no -bs-ns/-open directive is ever emitted.
	NoNamespace NamespaceKind = iota
	// NamespacePlain means every module in the package is compiled with
	// -bs-ns <suffix>.
	NamespacePlain
	// NamespaceWithEntry additionally designates one module as the
	// namespace's entry point, which is compiled with -open <suffix>
	// instead of -bs-ns.
	NamespaceWithEntry
)

// Namespace describes how a package's modules see their synthetic
// namespace aggregator module.
type Namespace struct {
	Kind   NamespaceKind
	Suffix string // e.g. "MyPackage", empty when Kind == NoNamespace
	Entry  string // module name of the namespace entry, only set for NamespaceWithEntry
}

// ToSuffix returns the namespace suffix and whether the package has one.
func (n Namespace) ToSuffix() (string, bool) {
	if n.Kind == NoNamespace {
		return "", false
	}
	return n.Suffix, true
}

// JSXConfig carries the root package's JSX code-generation settings,
// passed through to every compile regardless of which package owns the
// module being compiled (JSX mode is a whole-project setting).
type JSXConfig struct {
	Module   string // e.g. "react"
	Mode     string // e.g. "automatic" or "classic"
	Preserve bool   // emit JSX as-is instead of lowering it
}

// ModuleArgs, ModeArgs and PreserveArgs render the JSX configuration as
// compiler flags, split the same
// way the argument builder composes them (module, mode, preserve are
// independent flag groups so that a future reordering of one doesn't
// require touching the others).
func (j JSXConfig) ModuleArgs() []string {
	if j.Module == "" {
		return nil
	}
	return []string{"-bs-jsx-module", j.Module}
}

func (j JSXConfig) ModeArgs() []string {
	if j.Mode == "" {
		return nil
	}
	return []string{"-bs-jsx-mode", j.Mode}
}

func (j JSXConfig) PreserveArgs() []string {
	if !j.Preserve {
		return nil
	}
	return []string{"-bs-jsx-preserve"}
}

// PackageOutputSpec describes one emitted-JavaScript output the root
// package configures, e.g. {Module: "es6", Suffix: ".mjs", InSource: true}.
type PackageOutputSpec struct {
	Module         string // module format passed to -bs-package-output, e.g. "es6", "commonjs"
	Suffix         string // file suffix, e.g. ".mjs"
	InSource       bool   // emit next to the source file instead of under lib/
	OutOfSourceDir string // destination root under lib/ when InSource is false, e.g. "es6"
}

// PackageConfig is the decoded per-package manifest.
type PackageConfig struct {
	Name            string
	Namespace       Namespace
	Dependencies    []string
	DevDependencies []string
	CompilerFlags   []string
	GentypeArg      []string // e.g. {"-bs-gentype"}, empty when disabled
	IsLocalDep      bool     // user source tree, as opposed to a vendored external package
}

// WarningArgs returns the -w flags for this package. External
// (non-local) dependencies get a quieter warning set so that vendored code
// doesn't spam the build with diagnostics the user can't fix.
func (c *PackageConfig) WarningArgs(isLocalDep bool) []string {
	if isLocalDep {
		return []string{"-w", "a"}
	}
	return []string{"-w", "-a"}
}

// RootConfig is the decoded root package manifest: the project-wide
// settings (JSX, output specs) that apply to every compile regardless of
// which package owns the module.
type RootConfig struct {
	PackageConfig
	JSX          JSXConfig
	OutputSpecs  []PackageOutputSpec
	Suffixes     map[string]string // module format -> file suffix, e.g. "es6" -> ".mjs"
}

// Suffix returns the file suffix configured for spec, falling back to the
// spec's own Suffix field if the root config has no override.
func (r *RootConfig) Suffix(spec PackageOutputSpec) string {
	if s, ok := r.Suffixes[spec.Module]; ok && s != "" {
		return s
	}
	return spec.Suffix
}

// manifestFile mirrors the on-disk JSON shape. Kept private and narrow:
// this module does not own the manifest's full grammar (that lives
// upstream), only the fields the scheduler core needs.
type manifestFile struct {
	Name            string   `json:"name"`
	Namespace       bool     `json:"namespace"`
	Dependencies    []string `json:"bs-dependencies"`
	DevDependencies []string `json:"bs-dev-dependencies"`
	CompilerFlags   []string `json:"bsc-flags"`
	Gentype         bool     `json:"gentypeconfig"`
}

// Load decodes a package manifest file into a PackageConfig. The
// namespace suffix, when enabled, is derived from name the same way bsb
// derives it (capitalized, dashes stripped) by ToNamespaceSuffix.
func Load(path string) (*PackageConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading package manifest %s: %w", path, err)
	}
	var m manifestFile
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, xerrors.Errorf("parsing package manifest %s: %w", path, err)
	}
	cfg := &PackageConfig{
		Name:            m.Name,
		Dependencies:    m.Dependencies,
		DevDependencies: m.DevDependencies,
		CompilerFlags:   m.CompilerFlags,
	}
	if m.Namespace {
		cfg.Namespace = Namespace{Kind: NamespacePlain, Suffix: ToNamespaceSuffix(m.Name)}
	}
	if m.Gentype {
		cfg.GentypeArg = []string{"-bs-gentype"}
	}
	return cfg, nil
}

// rootManifestFile extends manifestFile with the project-wide settings
// only the root manifest carries.
type rootManifestFile struct {
	manifestFile
	JSXConfig struct {
		Module string `json:"module"`
	} `json:"jsx"`
	ReactMode    string `json:"reason-react-mode"`
	Suffix       string `json:"suffix"`
	PackageSpecs []struct {
		Module   string `json:"module"`
		InSource bool   `json:"in-source"`
		Suffix   string `json:"suffix"`
	} `json:"package-specs"`
}

// LoadRoot decodes the project root manifest into a RootConfig, layering
// the project-wide JSX and output-spec settings on top of the same
// per-package fields Load decodes.
func LoadRoot(path string) (*RootConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading root manifest %s: %w", path, err)
	}
	var m rootManifestFile
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, xerrors.Errorf("parsing root manifest %s: %w", path, err)
	}

	pkgCfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	pkgCfg.IsLocalDep = true

	root := &RootConfig{
		PackageConfig: *pkgCfg,
		JSX: JSXConfig{
			Module:   m.JSXConfig.Module,
			Mode:     m.ReactMode,
			Preserve: m.ReactMode == "preserve",
		},
		Suffixes: map[string]string{},
	}
	for _, spec := range m.PackageSpecs {
		outSpec := PackageOutputSpec{
			Module:         spec.Module,
			Suffix:         spec.Suffix,
			InSource:       spec.InSource,
			OutOfSourceDir: spec.Module,
		}
		if outSpec.Suffix == "" {
			outSpec.Suffix = ".js"
		}
		root.OutputSpecs = append(root.OutputSpecs, outSpec)
		root.Suffixes[spec.Module] = outSpec.Suffix
	}
	if m.Suffix != "" {
		for i := range root.OutputSpecs {
			root.Suffixes[root.OutputSpecs[i].Module] = m.Suffix
		}
	}
	return root, nil
}

// ToNamespaceSuffix converts a package name (e.g. "my-package") into the
// namespace suffix the compiler expects (e.g. "MyPackage").
func ToNamespaceSuffix(name string) string {
	out := make([]byte, 0, len(name))
	upperNext := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '-' || c == '_' || c == '/' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}

// ResolvedDependency is one package dependency as seen by the argument
// builder: its name, whether it was declared as a dev-dependency, and the
// absolute path to its build artifact directory.
type ResolvedDependency struct {
	Name          string
	IsDev         bool
	ArtifactPath  string
}

// DependencyResolver looks up a package's compiled-artifact include path
// by name. Implementations typically wrap a map built once per build from
// the already-discovered package graph (module.BuildState.Packages).
type DependencyResolver func(pkgName string) (artifactPath string, ok bool)

// ErrMissingDependency is returned by ResolveDependencies when a
// non-dev dependency cannot be resolved; this is a fatal configuration
// error the build cannot proceed past.
type ErrMissingDependency struct {
	Package    string
	Dependency string
}

func (e *ErrMissingDependency) Error() string {
	return fmt.Sprintf("package %s: dependency %s could not be resolved", e.Package, e.Dependency)
}

// ResolveDependencies resolves cfg's dependencies (and, when
// includeDevDeps is true, its dev-dependencies) into ResolvedDependency
// values using resolve. A missing non-dev dependency is a fatal error; a
// missing dev dependency is silently dropped.
func ResolveDependencies(cfg *PackageConfig, includeDevDeps bool, resolve DependencyResolver) ([]ResolvedDependency, error) {
	var out []ResolvedDependency
	for _, dep := range cfg.Dependencies {
		path, ok := resolve(dep)
		if !ok {
			return nil, &ErrMissingDependency{Package: cfg.Name, Dependency: dep}
		}
		out = append(out, ResolvedDependency{Name: dep, ArtifactPath: path})
	}
	if includeDevDeps {
		for _, dep := range cfg.DevDependencies {
			path, ok := resolve(dep)
			if !ok {
				continue // missing dev dependency is silently dropped
			}
			out = append(out, ResolvedDependency{Name: dep, IsDev: true, ArtifactPath: path})
		}
	}
	return out, nil
}
