//go:build go1.24

package config

import "testing"

// chdir enters dir for the duration of the test via the stdlib helper
// available since Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	t.Chdir(dir)
}
