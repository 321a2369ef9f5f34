package core

import (
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	info := VersionInfo()
	if !strings.Contains(info, Version) {
		t.Errorf("VersionInfo() = %q, want it to contain version %q", info, Version)
	}
	if !strings.Contains(info, GitCommit) {
		t.Errorf("VersionInfo() = %q, want it to contain commit %q", info, GitCommit)
	}
}
