// Package env captures details about where the build project lives on
// disk, read from $BSB_PROJECT_ROOT and $BSB_WORKSPACE_ROOT.
package env

import "os"

// ProjectRoot is the root directory of the project being built, i.e. the
// directory containing the root package's manifest.
var ProjectRoot = findProjectRoot()

// WorkspaceRoot is the root of a multi-package workspace, if any. Empty
// when the project is not part of a workspace.
var WorkspaceRoot = os.Getenv("BSB_WORKSPACE_ROOT")

func findProjectRoot() string {
	if env := os.Getenv("BSB_PROJECT_ROOT"); env != "" {
		return env
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
