package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersionInfoKeepsLinkerValues(t *testing.T) {
	defer func(v, r string) { Version, Revision = v, r }(Version, Revision)
	Version, Revision = "1.4.0", "abc1234"

	info := GetVersionInfo()
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, "abc1234", info.Revision)
	assert.NotEmpty(t, info.GoVersion)
}

func TestShortRevision(t *testing.T) {
	assert.Equal(t, "0123456", shortRevision("0123456789abcdef"))
	assert.Equal(t, "abc", shortRevision("abc"))
}

func TestJSON(t *testing.T) {
	out, err := Info{Version: "1.0.0", GoVersion: "go1.22"}.JSON()
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	assert.Equal(t, "1.0.0", back["version"])
	assert.NotContains(t, back, "modified")
}
