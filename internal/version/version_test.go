package version

import "testing"

func TestString(t *testing.T) {
	orig := [3]string{Version, GitSHA, BuildTime}
	defer func() { Version, GitSHA, BuildTime = orig[0], orig[1], orig[2] }()

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2024-05-01T10:00:00Z"
	if got, want := String(), "1.2.0 (commit abc123, built 2024-05-01T10:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
