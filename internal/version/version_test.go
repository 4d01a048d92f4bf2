package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuild := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuild }()

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2026-10-18"
	assert.Equal(t, "trackviz 1.2.0 (abc123, built 2026-10-18)", String())
}
