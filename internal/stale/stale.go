// Package stale implements the two staleness pre-passes that run before
// the scheduler on an already-loaded BuildState: marking modules whose
// dependencies were deleted, and marking modules whose recorded artifact
// timestamps are inconsistent with their dependencies' timestamps.
package stale

import "github.com/rescript-lang/bsb-ng/internal/module"

// DeletedDeps marks every module whose dependency set intersects
// bs.DeletedModules as dirty: a dependency disappearing changes name
// resolution for anything that referenced it.
func DeletedDeps(bs *module.BuildState) {
	for _, m := range bs.Modules {
		for dep := range m.Deps {
			if _, deleted := bs.DeletedModules[dep]; deleted {
				m.CompileDirty = true
				break
			}
		}
	}
}

// ExpiredDeps marks modules dirty when a prior run may have been
// interrupted, leaving recorded compile timestamps inconsistent with the
// dependency graph. The scheduler's digest-based pruning alone would not
// catch this: the cmi on disk can be perfectly valid while the in-memory
// bookkeeping used for dirty-propagation doesn't reflect reality.
//
// This resolves the spec's documented ambiguity by comparing
// LastCompiledCMI (not LastCompiledCMT twice) in the first check: a
// dependency that never finished an interface compile can't be trusted
// by anything depending on it, regardless of what its typed-tree
// timestamp says. The second check (dependent vs. dependency
// LastCompiledCMT) is unambiguous in the original and kept as-is.
func ExpiredDeps(bs *module.BuildState) {
	expired := map[string]struct{}{}

	for depName, dep := range bs.Modules {
		if dep.SourceType.IsMlMap() {
			continue
		}
		for dependentName := range dep.Dependents {
			dependent := bs.Modules[dependentName]
			if dependent == nil {
				continue
			}
			checkPair(depName, dep, dependentName, dependent, expired)
		}
	}

	// A namespace module never compiles and so never has its own
	// LastCompiledCMT; its freshness has to be judged by proxy, through a
	// real SourceFile module that depends on it directly. If that
	// dependent's own dependents have a view older than the dependent's
	// last compile, the namespace itself (not the grand-dependent) is the
	// one that needs to be rebuilt — its aggregated module list is what's
	// out of date relative to the rest of the package.
	for depName, dep := range bs.Modules {
		if !dep.SourceType.IsMlMap() {
			continue
		}
		for nsDependentName := range dep.Dependents {
			nsDependent := bs.Modules[nsDependentName]
			if nsDependent == nil || nsDependent.LastCompiledCMT == nil {
				continue
			}
			for grandDependentName := range nsDependent.Dependents {
				grandDependent := bs.Modules[grandDependentName]
				if grandDependent == nil || grandDependent.LastCompiledCMT == nil {
					continue
				}
				if grandDependent.LastCompiledCMT.Before(*nsDependent.LastCompiledCMT) {
					expired[depName] = struct{}{}
				}
			}
		}
	}

	for name := range expired {
		bs.Modules[name].CompileDirty = true
	}
}

// checkPair applies the two comparisons from the original pass to one
// (dependency, dependent) pair, recording any stale name into expired.
func checkPair(depName string, dep *module.Module, dependentName string, dependent *module.Module, expired map[string]struct{}) {
	if dependent.SourceType.IsMlMap() {
		return
	}

	// Has dep itself finished compiling both its interface and its typed
	// tree? Missing either means dep cannot be trusted by dependents.
	if dep.LastCompiledCMI == nil || dep.LastCompiledCMT == nil {
		expired[depName] = struct{}{}
	}

	switch {
	case dependent.LastCompiledCMT == nil:
		expired[dependentName] = struct{}{}
	case dep.LastCompiledCMT != nil && dependent.LastCompiledCMT.Before(*dep.LastCompiledCMT):
		// dep was compiled (or re-compiled) after dependent, so
		// dependent's view of it is stale.
		expired[dependentName] = struct{}{}
	}
}
