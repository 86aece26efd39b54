// Scheduler: the round-based, dependency-ordered compile driver. Each
// round dispatches every module whose in-universe dependencies have
// already compiled, in parallel; a module not marked dirty is skipped
// without invoking the compiler at all. A round's results are folded back
// sequentially so dirty-propagation and the compiled/clean bookkeeping
// stay race-free without needing their own locks.
package sched

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rescript-lang/bsb-ng/internal/argbuilder"
	"github.com/rescript-lang/bsb-ng/internal/diag"
	"github.com/rescript-lang/bsb-ng/internal/hashfile"
	"github.com/rescript-lang/bsb-ng/internal/invoke"
	"github.com/rescript-lang/bsb-ng/internal/layout"
	"github.com/rescript-lang/bsb-ng/internal/module"
	"github.com/rescript-lang/bsb-ng/internal/pkgconfig"
)

// Environment supplies the build-wide settings the scheduler needs but
// does not own itself: the decoded root manifest and a way to resolve a
// package name to its public artifact directory. Constructing these is
// the job of the manifest-loading and package-discovery phases, both out
// of scope here.
type Environment interface {
	RootConfig() *pkgconfig.RootConfig
	Resolve(pkgName string) (artifactPath string, ok bool)
}

// Options carries the scheduler's reporting hooks. All fields are
// optional; a nil callback is simply never called.
type Options struct {
	// Inc is called once per module actually dispatched this round
	// (compiled or skipped-because-clean), for a progress display.
	Inc func()
	// SetTotal is called once, before the first round, with the size of
	// the compile universe.
	SetTotal func(int)
	// Workers caps how many modules are compiled concurrently within a
	// round. Values less than 1 are treated as 1.
	Workers int
}

// Outcome is what a compile run produced: the aggregated error and
// warning text (each module's diagnostics, concatenated in processing
// order) and how many modules actually invoked the compiler.
type Outcome struct {
	Errors   string
	Warnings string
	Compiled int
}

// Run drives bs's currently-dirty modules (and everything that transitively
// depends on them) to completion, dispatching compiles through env and
// recording diagnostics into diagLog (which may be nil).
func Run(ctx context.Context, bs *module.BuildState, env Environment, diagLog *diag.Log, opts Options) (Outcome, error) {
	universe := expandUniverse(bs)
	if opts.SetTotal != nil {
		opts.SetTotal(len(universe))
	}

	inProgress := make(map[string]struct{}, len(universe))
	for name := range universe {
		inProgress[name] = struct{}{}
	}
	compiled := map[string]struct{}{}
	clean := map[string]struct{}{}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var errBuf, warnBuf strings.Builder
	compiledCount := 0

	for len(compiled) < len(universe) && errBuf.Len() == 0 {
		snapshot := readyInRound(universe, inProgress, compiled)
		if len(snapshot) == 0 {
			errBuf.WriteString(renderCycleError(DetectCycle(universe)))
			break
		}

		results := make([]roundResult, len(snapshot))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, name := range snapshot {
			i, name := i, name
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i] = compileOne(bs, env, universe[name])
				if opts.Inc != nil {
					opts.Inc()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Outcome{}, err
		}

		removed := 0
		for _, r := range results {
			if _, alreadyDone := compiled[r.key]; !alreadyDone {
				removed++
			}
			fold(bs, diagLog, r, compiled, clean, inProgress, &errBuf, &warnBuf)
			if r.wasCompiled {
				compiledCount++
			}
		}
		if removed == 0 {
			errBuf.WriteString(renderCycleError(DetectCycle(universe)))
			break
		}
	}

	return Outcome{Errors: errBuf.String(), Warnings: warnBuf.String(), Compiled: compiledCount}, nil
}

// expandUniverse computes the fixed point of "every currently dirty
// module, plus everything that (transitively) depends on one", since a
// dependency recompiling is the only thing that can force a dependent to
// recompile.
func expandUniverse(bs *module.BuildState) map[string]*module.Module {
	universe := map[string]*module.Module{}
	var queue []string
	for name, m := range bs.Modules {
		if m.CompileDirty {
			universe[name] = m
			queue = append(queue, name)
		}
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for dependent := range bs.Modules[name].Dependents {
			if _, seen := universe[dependent]; seen {
				continue
			}
			dm := bs.Modules[dependent]
			if dm == nil {
				continue
			}
			universe[dependent] = dm
			queue = append(queue, dependent)
		}
	}
	return universe
}

// readyInRound returns the names still in inProgress whose in-universe
// dependencies have all already compiled this run. Sorted purely so two
// runs over an unchanged, acyclic universe dispatch modules in the same
// order; the scheduler's correctness does not depend on it.
func readyInRound(universe map[string]*module.Module, inProgress, compiled map[string]struct{}) []string {
	var ready []string
	for name := range inProgress {
		m := universe[name]
		ok := true
		for dep := range m.Deps {
			if _, inUniverse := universe[dep]; !inUniverse {
				continue
			}
			if _, done := compiled[dep]; !done {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)
	return ready
}

// roundResult is what compiling (or skipping) one module produced.
type roundResult struct {
	// key is the name under which this result is recorded into the
	// compiled/clean sets and looked up in bs.Modules for dependent
	// propagation. For every module except an MlMap namespace aggregator
	// this is simply module.Name; for an MlMap it is the package's
	// namespace suffix, which by construction of the namespace module is
	// the same string as its own Name.
	key string

	hasIface    bool
	ifaceResult invoke.Result
	implResult  invoke.Result

	isCleanCMI  bool
	wasCompiled bool
}

// compileOne compiles a single module, or produces the appropriate
// pass-through result when there is nothing to do. A module that isn't
// marked dirty is skipped without invoking the compiler, regardless of its
// source type. Only once dirty does source type matter: an MlMap namespace
// aggregator is never compiled directly (its regeneration happens during
// AST discovery, out of scope here), so a dirty MlMap still produces a
// not-compiled, not-clean result rather than dispatching to the compiler.
func compileOne(bs *module.BuildState, env Environment, m *module.Module) roundResult {
	if !m.CompileDirty {
		return roundResult{key: m.Name, isCleanCMI: true}
	}

	if m.SourceType.IsMlMap() {
		pkg := bs.Packages[m.PackageName]
		m.SourceType.MlMap.ParseDirty = false
		key, ok := pkg.Config.Namespace.ToSuffix()
		if !ok {
			key = m.Name
		}
		return roundResult{key: key}
	}

	pkg := bs.Packages[m.PackageName]
	implPath := m.SourceType.File.Implementation.Path
	cmiPath := layout.PublishedAsset(pkg, implPath, "cmi")
	preDigest, preOK := hashfile.Digest(cmiPath)

	result := roundResult{key: m.Name, wasCompiled: true}

	if m.Interface() != nil {
		result.hasIface = true
		req, err := buildRequest(bs, env, m, pkg, true)
		if err != nil {
			result.ifaceResult = invoke.Result{Err: err}
		} else {
			result.ifaceResult = invoke.Invoke(req)
		}
	}

	if !result.hasIface || result.ifaceResult.Err == nil {
		req, err := buildRequest(bs, env, m, pkg, false)
		if err != nil {
			result.implResult = invoke.Result{Err: err}
		} else {
			result.implResult = invoke.Invoke(req)
		}
	}

	postDigest, postOK := hashfile.Digest(cmiPath)
	result.isCleanCMI = hashfile.IsClean(preDigest, preOK, postDigest, postOK)
	return result
}

// buildRequest assembles one compiler invocation for m's implementation or
// interface, resolving its dependency include paths via env.
func buildRequest(bs *module.BuildState, env Environment, m *module.Module, pkg *module.Package, isInterface bool) (invoke.Request, error) {
	rootCfg := env.RootConfig()
	implPath := m.SourceType.File.Implementation.Path

	astSource := implPath
	if isInterface {
		astSource = m.SourceType.File.Interface.Path
	}

	argReq, err := argbuilder.ResolveRequest(m, pkg, rootCfg, layout.ASTPath(pkg, astSource), isInterface, pkg.ArtifactPath, pkgconfig.DependencyResolver(env.Resolve))
	if err != nil {
		return invoke.Request{}, err
	}

	var inSource []invoke.JSCopy
	if !isInterface {
		for _, spec := range rootCfg.OutputSpecs {
			if !spec.InSource {
				continue
			}
			src, dst := layout.InSourceJS(pkg, implPath, rootCfg.Suffix(spec))
			inSource = append(inSource, invoke.JSCopy{Source: src, Destination: dst})
		}
	}

	interfacePath := ""
	if m.Interface() != nil {
		interfacePath = m.Interface().Path
	}

	return invoke.Request{
		BscPath:            bs.BscPath,
		Args:               argbuilder.Build(argReq),
		BuildDir:           pkg.BuildPath,
		Module:             m,
		Package:            pkg,
		RootPackage:        bs.Packages[bs.RootConfigName],
		IsInterface:        isInterface,
		ImplementationPath: implPath,
		InterfacePath:      interfacePath,
		InSourceOutputs:    inSource,
	}, nil
}

// fold applies one module's round result to the shared build state:
// compile-state triage, dirty propagation to dependents, and the
// compiled/clean bookkeeping the round loop's termination check reads.
func fold(bs *module.BuildState, diagLog *diag.Log, r roundResult, compiled, clean map[string]struct{}, inProgress map[string]struct{}, errBuf, warnBuf *strings.Builder) {
	m := bs.Modules[r.key]
	if m == nil {
		delete(inProgress, r.key)
		return
	}
	delete(inProgress, r.key)
	compiled[r.key] = struct{}{}
	if r.isCleanCMI {
		clean[r.key] = struct{}{}
	}

	if !m.SourceType.IsMlMap() {
		triage(m, diagLog, r, errBuf, warnBuf)
	}

	for dependent := range m.Dependents {
		if !r.isCleanCMI {
			if dm := bs.Modules[dependent]; dm != nil {
				dm.CompileDirty = true
			}
		}
		if _, done := compiled[dependent]; !done {
			inProgress[dependent] = struct{}{}
		}
	}
}

// triage records compile-state and diagnostics for a SourceFile module's
// round result, and refreshes its timestamps on a fully clean success. A
// failed interface compile short-circuits the implementation, so the
// implementation's CompileState is simply left at whatever it already was
// (Pending, the first time through).
func triage(m *module.Module, diagLog *diag.Log, r roundResult, errBuf, warnBuf *strings.Builder) {
	hadError := false
	hadWarning := false

	if r.hasIface {
		iface := m.SourceType.File.Interface
		switch {
		case r.ifaceResult.Err != nil:
			iface.CompileState = module.Error
			errBuf.WriteString(r.ifaceResult.Err.Error())
			errBuf.WriteString("\n")
			if diagLog != nil {
				diagLog.Append(m.PackageName, r.ifaceResult.Err.Error())
			}
			hadError = true
		case r.ifaceResult.Warning != "":
			iface.CompileState = module.Warning
			hadWarning = true
			warnBuf.WriteString(r.ifaceResult.Warning)
			if diagLog != nil {
				diagLog.Append(m.PackageName, r.ifaceResult.Warning)
			}
		default:
			iface.CompileState = module.Success
		}
	}

	if !hadError && r.wasCompiled {
		impl := &m.SourceType.File.Implementation
		switch {
		case r.implResult.Err != nil:
			impl.CompileState = module.Error
			errBuf.WriteString(r.implResult.Err.Error())
			errBuf.WriteString("\n")
			if diagLog != nil {
				diagLog.Append(m.PackageName, r.implResult.Err.Error())
			}
			hadError = true
		case r.implResult.Warning != "":
			impl.CompileState = module.Warning
			hadWarning = true
			warnBuf.WriteString(r.implResult.Warning)
			if diagLog != nil {
				diagLog.Append(m.PackageName, r.implResult.Warning)
			}
		default:
			impl.CompileState = module.Success
		}
	}

	if r.wasCompiled && !hadError && !hadWarning {
		now := time.Now()
		m.CompileDirty = false
		m.LastCompiledCMI = &now
		m.LastCompiledCMT = &now
	}
}
