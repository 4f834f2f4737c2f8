package build

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet_PrefersLdflags(t *testing.T) {
	origV, origC, origD := Version, CommitSHA, BuildDate
	t.Cleanup(func() { Version, CommitSHA, BuildDate = origV, origC, origD })

	Version, CommitSHA, BuildDate = "v1.2.3", "abc123", "2026-01-01"
	info := Get()

	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "2026-01-01", info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "v1.2.3 (commit abc123, built 2026-01-01, "+runtime.Version()+")", String())
}

func TestGet_Defaults(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.GoVersion)
}
