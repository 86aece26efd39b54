package hashfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDigestMissingFile(t *testing.T) {
	_, ok := Digest(filepath.Join(t.TempDir(), "does-not-exist.cmi"))
	if ok {
		t.Errorf("Digest(missing) ok = true, want false")
	}
}

func TestDigestStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.cmi")
	if err := os.WriteFile(path, []byte("interface bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	d1, ok1 := Digest(path)
	d2, ok2 := Digest(path)
	if !ok1 || !ok2 {
		t.Fatalf("Digest ok = (%v, %v), want (true, true)", ok1, ok2)
	}
	if d1 != d2 {
		t.Errorf("Digest is not stable across calls: %q != %q", d1, d2)
	}
}

func TestDigestChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.cmi")
	os.WriteFile(path, []byte("v1"), 0o644)
	before, _ := Digest(path)
	os.WriteFile(path, []byte("v2"), 0o644)
	after, _ := Digest(path)
	if before == after {
		t.Errorf("Digest did not change after content changed")
	}
}

func TestIsClean(t *testing.T) {
	for _, test := range []struct {
		desc          string
		pre, post     string
		preOK, postOK bool
		want          bool
	}{
		{desc: "unchanged", pre: "abc", post: "abc", preOK: true, postOK: true, want: true},
		{desc: "changed", pre: "abc", post: "def", preOK: true, postOK: true, want: false},
		{desc: "first compile, no prior digest", pre: "", post: "def", preOK: false, postOK: true, want: false},
		{desc: "compile failed, no post digest", pre: "abc", post: "", preOK: true, postOK: false, want: false},
	} {
		t.Run(test.desc, func(t *testing.T) {
			got := IsClean(test.pre, test.preOK, test.post, test.postOK)
			if got != test.want {
				t.Errorf("IsClean(%q, %v, %q, %v) = %v, want %v", test.pre, test.preOK, test.post, test.postOK, got, test.want)
			}
		})
	}
}
