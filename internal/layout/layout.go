// Package layout derives the on-disk paths the scheduler and compiler
// invoker need from a module and its package: the AST artifact path, the
// compiled-interface path used for hashing, and the in-source JavaScript
// output path. The AST generation phase and the exact manifest-driven
// naming scheme are external collaborators (out of scope for this
// module); layout only fixes a concrete, deterministic convention so the
// rest of the scheduler has something to call.
package layout

import (
	"path/filepath"
	"strings"

	"github.com/rescript-lang/bsb-ng/internal/module"
)

// basename returns sourcePath's file name without its extension, e.g.
// "Foo.res" -> "Foo".
func basename(sourcePath string) string {
	base := filepath.Base(sourcePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ASTPath returns the path to sourcePath's pre-generated AST artifact, by
// convention alongside the compiled assets under the package's build
// directory. The full source file name (including its .res/.resi
// extension) is kept rather than trimmed, so that a module's
// implementation and interface get distinct AST paths even though they
// share one compiled-artifact basename.
func ASTPath(pkg *module.Package, sourcePath string) string {
	return filepath.Join(pkg.BuildPath, sourcePath+".ast")
}

// CompilerAsset returns the path to one compiled artifact (cmi, cmj, cmt,
// cmti) for sourcePath, inside the package's build directory — i.e.
// before it has been published to the public artifact directory.
func CompilerAsset(pkg *module.Package, sourcePath, ext string) string {
	dir := filepath.Dir(sourcePath)
	return filepath.Join(pkg.BuildPath, dir, basename(sourcePath)+"."+ext)
}

// PublishedAsset returns the path to one compiled artifact once it has
// been published into the package's public artifact directory, the path
// other packages' -I include flags resolve against.
func PublishedAsset(pkg *module.Package, sourcePath, ext string) string {
	return filepath.Join(pkg.ArtifactPath, basename(sourcePath)+"."+ext)
}

// InSourceJS returns the (source, destination) pair for a single in-source
// JavaScript output spec, given the compiled-implementation's source path
// and the configured file suffix (e.g. ".mjs").
func InSourceJS(pkg *module.Package, sourcePath, suffix string) (source, destination string) {
	buildJS := filepath.Join(pkg.BuildPath, filepath.Dir(sourcePath), basename(sourcePath)+suffix)
	destJS := filepath.Join(pkg.Path, filepath.Dir(sourcePath), basename(sourcePath)+suffix)
	return buildJS, destJS
}
