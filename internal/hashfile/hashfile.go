// Package hashfile is the Artifact Hasher: it computes a stable digest of
// an on-disk artifact file, used only to decide post-compile whether a
// module's interface actually changed.
package hashfile

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Digest returns the hex-encoded sha256 digest of the file at path and
// true, or ("", false) if the file does not exist or could not be read.
// A missing file is not an error here: a module's .cmi simply doesn't
// exist yet before its first compile, and the scheduler treats that as
// "not clean" rather than failing the build.
func Digest(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", false
	}
	return fmt.Sprintf("%x", h.Sum(nil)), true
}

// IsClean reports whether a module's interface digest is unchanged by a
// compile: both the pre-compile and post-compile digests must have been
// successfully computed, and must be equal.
func IsClean(preDigest string, preOK bool, postDigest string, postOK bool) bool {
	return preOK && postOK && preDigest == postDigest
}
