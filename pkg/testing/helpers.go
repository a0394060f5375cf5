package testing

import "testing"

// SkipIfShort skips container-backed tests when -short is set
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
}
