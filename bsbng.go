// Package bsbng implements the incremental, parallel compile scheduler for
// a module-based language that compiles to JavaScript via a native
// compiler binary. It expands a dependency graph's dirty set into the
// transitive compile universe, drives a frontier of ready modules through
// the compiler in parallel rounds, and prunes work using content-addressed
// interface digests.
package bsbng
