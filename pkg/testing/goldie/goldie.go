// Package goldie wraps github.com/sebdah/goldie/v2 with the fixture layout used across this repository:
// golden files live in the testdata directory of the package under test and end in ".golden".
// Run the tests with -update to rewrite them.
package goldie

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func New(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithDiffEngine(goldie.ClassicDiff),
	)
}

// Assert compares actual with the golden file name. Windows line endings are normalized
// so fixtures checked out with autocrlf still match.
func Assert(t *testing.T, name string, actual []byte) {
	t.Helper()

	New(t).Assert(t, name, bytes.ReplaceAll(actual, []byte("\r\n"), []byte("\n")))
}
