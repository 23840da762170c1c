package pincore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimVersion(t *testing.T) {
	require.Equal(t, "pincore/1.0/abc", TrimVersion("pincore/1.0/abc"))
	require.Equal(t, "pincore/", TrimVersion("pincore/ü"))

	long := strings.Repeat("a", maxVersionLen+10)
	require.Len(t, TrimVersion(long), maxVersionLen)
}

func TestUserAgentVersion(t *testing.T) {
	require.True(t, strings.HasPrefix(GetUserAgentVersion(), "pincore/"+CurrentVersionNumber+"/"))

	v := GetVersionInfo()
	require.Equal(t, CurrentVersionNumber, v.Version)
	require.Equal(t, "1", v.Repo)
}
