// Package invoke is the Compiler Invoker: given a module and a compiled
// argument vector, it runs the native compiler binary as a subprocess in
// the package's build directory, classifies its exit status and streams,
// and copies the produced artifacts into the package's public artifact
// directory.
package invoke

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/rescript-lang/bsb-ng/internal/module"
)

// Result is the outcome of one compile. Exactly one of Warning/Err is
// meaningful at a time; OK with an empty Warning means clean success.
type Result struct {
	Warning string // non-empty only on success-with-diagnostics for a local package
	Err     error  // non-nil on compiler failure or subprocess spawn failure
}

// Request bundles one compiler invocation's inputs.
type Request struct {
	BscPath string
	Args    []string
	// BuildDir is the package's build directory; the subprocess runs
	// with this as its working directory.
	BuildDir string

	Module      *module.Module
	Package     *module.Package
	RootPackage *module.Package
	IsInterface bool

	// ImplementationPath/InterfacePath are the on-disk source paths,
	// relative to the package root, copied into the build directory and
	// public artifact directory on success so editor tooling can resolve
	// sources relative to compiled output.
	ImplementationPath string
	InterfacePath      string // empty when the module has no interface

	// InSourceOutputs lists the (sourceJSPath, destJSPath) pairs for
	// every configured package output spec marked in-source; copied next
	// to the source file on a successful implementation compile.
	InSourceOutputs []JSCopy
}

// JSCopy is one emitted-JavaScript-file copy the root config demands for
// an in-source output spec.
type JSCopy struct {
	Source      string
	Destination string
}

// Invoke runs the compiler once, as specified by req, and returns its
// classified result.
//
// Non-SourceFile modules cannot be compiled this way; callers are
// expected to check module.SourceType before calling Invoke (the
// scheduler handles MlMap modules itself, via a distinct not-compiled
// path), but Invoke still defends against misuse with an explicit error
// rather than silently doing nothing.
func Invoke(req Request) Result {
	if req.Module.SourceType.File == nil {
		return Result{Err: xerrors.Errorf("invoke: module %s is not a source file, cannot be compiled directly", req.Module.Name)}
	}

	cmd := exec.Command(req.BscPath, req.Args...)
	cmd.Dir = req.BuildDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			// Subprocess failed to spawn at all.
			return Result{Err: xerrors.Errorf("could not run compiler for %s (ast %s): %w", req.Module.Name, req.Args[len(req.Args)-1], err)}
		}
		return Result{Err: xerrors.Errorf("%s", stderr.String()+stdout.String())}
	}

	if err := publishArtifacts(req); err != nil {
		return Result{Err: xerrors.Errorf("publishing artifacts for %s: %w", req.Module.Name, err)}
	}
	if err := copySources(req); err != nil {
		return Result{Err: xerrors.Errorf("copying sources for %s: %w", req.Module.Name, err)}
	}
	if !req.IsInterface {
		if err := copyInSourceJS(req); err != nil {
			return Result{Err: xerrors.Errorf("copying emitted JavaScript for %s: %w", req.Module.Name, err)}
		}
	}

	diag := stderr.String()
	if strings.TrimSpace(diag) == "" {
		return Result{}
	}
	// Warnings are surfaced only for local (user) packages; external
	// dependencies' warnings are dropped since the user cannot act on
	// them.
	if req.Package.IsLocalDep {
		return Result{Warning: diag}
	}
	return Result{}
}

// artifactBasename mirrors the compiler's own asset-naming convention:
// the implementation's basename without extension, used for all four
// artifact kinds (cmi, cmj, cmt, cmti).
func artifactBasename(implPath string) string {
	base := filepath.Base(implPath)
	return base[:len(base)-len(filepath.Ext(base))]
}

// publishArtifacts copies the artifacts this compile produced from the
// package build directory into the package's public artifact directory,
// where other packages' include paths read them. Implementation compiles
// publish cmi/cmj/cmt; interface compiles publish cmti/cmi. Copies are
// best-effort: a still-missing artifact (e.g. a compiler that doesn't
// emit cmt for some configurations) does not fail the build.
func publishArtifacts(req Request) error {
	base := artifactBasename(req.ImplementationPath)
	dir := filepath.Dir(req.ImplementationPath)
	src := filepath.Join(req.Package.BuildPath, dir)
	dst := req.Package.ArtifactPath

	var exts []string
	if req.IsInterface {
		exts = []string{"cmti", "cmi"}
	} else {
		exts = []string{"cmi", "cmj", "cmt"}
	}
	for _, ext := range exts {
		_ = atomicCopy(filepath.Join(src, base+"."+ext), filepath.Join(dst, base+"."+ext))
	}
	return nil
}

// copySources copies the implementation (and interface, if present)
// source files into the package build directory and into the public
// artifact directory under their basename. Unlike artifact publishing,
// failures here are fatal: the editor-support contract requires these
// files to exist.
func copySources(req Request) error {
	paths := []string{req.ImplementationPath}
	if req.InterfacePath != "" {
		paths = append(paths, req.InterfacePath)
	}
	for _, p := range paths {
		from := filepath.Join(req.Package.Path, p)
		toBuildDir := filepath.Join(req.Package.BuildPath, p)
		if err := copyFile(from, toBuildDir); err != nil {
			return xerrors.Errorf("copying source %s into build dir: %w", p, err)
		}
		toArtifactDir := filepath.Join(req.Package.ArtifactPath, filepath.Base(p))
		if err := copyFile(from, toArtifactDir); err != nil {
			return xerrors.Errorf("copying source %s into artifact dir: %w", p, err)
		}
	}
	return nil
}

// copyInSourceJS copies every configured in-source JavaScript output next
// to its source file. Missing emitted files are tolerated: not every
// output spec necessarily produced a file for every module.
func copyInSourceJS(req Request) error {
	for _, c := range req.InSourceOutputs {
		if _, err := os.Stat(c.Source); err != nil {
			continue
		}
		if err := copyFile(c.Source, c.Destination); err != nil {
			return err
		}
	}
	return nil
}

// atomicCopy copies src to dest, writing dest via a temp file renamed
// into place so that concurrent readers (other packages resolving this
// one's include path mid-build) never observe a partially written
// artifact.
func atomicCopy(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}
	defer out.Cleanup()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.CloseAtomicallyReplace()
}

// copyFile is a plain (non-atomic) copy, used for source-file copies
// where the destination is not read concurrently by other packages'
// builds the way compiled artifacts are.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
