package argbuilder

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rescript-lang/bsb-ng/internal/pkgconfig"
)

func baseRequest() Request {
	return Request{
		Config: &pkgconfig.PackageConfig{
			Name:       "my-package",
			IsLocalDep: true,
		},
		RootConfig:           &pkgconfig.RootConfig{},
		ASTPath:              "src/Foo.res.ast",
		ModuleName:           "Foo",
		IsLocalDep:           true,
		InterfaceArtifactDir: "/build/my-package/ocaml",
	}
}

func TestBuildOrder(t *testing.T) {
	req := baseRequest()
	got := Build(req)
	want := []string{
		"-I", "/build/my-package/ocaml",
		"-w", "a",
		"-bs-package-name", "my-package",
		"src/Foo.res.ast",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildNamespaceEntry(t *testing.T) {
	req := baseRequest()
	req.Config.Namespace = pkgconfig.Namespace{Kind: pkgconfig.NamespaceWithEntry, Suffix: "MyPackage", Entry: "Foo"}
	got := Build(req)
	if len(got) < 2 || got[0] != "-open" || got[1] != "MyPackage" {
		t.Errorf("Build() = %v, want to start with [-open MyPackage]", got)
	}
}

func TestBuildNamespacePlainNonEntry(t *testing.T) {
	req := baseRequest()
	req.ModuleName = "Bar"
	req.Config.Namespace = pkgconfig.Namespace{Kind: pkgconfig.NamespaceWithEntry, Suffix: "MyPackage", Entry: "Foo"}
	got := Build(req)
	if len(got) < 2 || got[0] != "-bs-ns" || got[1] != "MyPackage" {
		t.Errorf("Build() = %v, want to start with [-bs-ns MyPackage] for a non-entry module", got)
	}
}

func TestBuildReadCMI(t *testing.T) {
	req := baseRequest()
	req.HasInterface = true
	req.IsInterface = false
	got := Build(req)
	if !contains(got, "-bs-read-cmi") {
		t.Errorf("Build() = %v, want -bs-read-cmi for an implementation compile with an interface", got)
	}

	req.IsInterface = true
	got = Build(req)
	if contains(got, "-bs-read-cmi") {
		t.Errorf("Build() = %v, want no -bs-read-cmi when compiling the interface itself", got)
	}
}

func TestBuildExternalPackageWarnings(t *testing.T) {
	req := baseRequest()
	req.Config.IsLocalDep = false
	req.IsLocalDep = false
	got := Build(req)
	if !contains(got, "-a") {
		t.Errorf("Build() = %v, want the quiet warning set (-w -a) for an external dependency", got)
	}
}

func TestBuildDependencyIncludePaths(t *testing.T) {
	req := baseRequest()
	req.Dependencies = []pkgconfig.ResolvedDependency{
		{Name: "dep-a", ArtifactPath: "/build/dep-a/ocaml"},
		{Name: "dep-b", ArtifactPath: "/build/dep-b/ocaml"},
	}
	got := Build(req)
	wantSeq := []string{"-I", "/build/dep-a/ocaml", "-I", "/build/dep-b/ocaml"}
	if !containsSeq(got, wantSeq) {
		t.Errorf("Build() = %v, want to contain dependency -I flags %v in order", got, wantSeq)
	}
}

func TestBuildASTPathIsLast(t *testing.T) {
	req := baseRequest()
	req.Dependencies = []pkgconfig.ResolvedDependency{{Name: "dep-a", ArtifactPath: "/x"}}
	got := Build(req)
	if got[len(got)-1] != req.ASTPath {
		t.Errorf("Build() last arg = %q, want AST path %q", got[len(got)-1], req.ASTPath)
	}
}

func contains(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

func containsSeq(args, seq []string) bool {
	if len(seq) == 0 {
		return true
	}
	for i := 0; i+len(seq) <= len(args); i++ {
		match := true
		for j := range seq {
			if args[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
