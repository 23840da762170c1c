package pincore

import (
	"fmt"
	"regexp"
	"runtime"

	"github.com/ipfs/pincore/repo/fsrepo"
)

// CurrentCommit is the current git commit, this is set as a ldflag in the Makefile
var CurrentCommit string

// CurrentVersionNumber is the current application's version literal
const CurrentVersionNumber = "0.3.0-dev"

const maxVersionLen = 64

// GetUserAgentVersion is the agent string reported in traces and logs.
//
// Note: This will end in `/` when no commit is available. This is expected.
func GetUserAgentVersion() string {
	return TrimVersion("pincore/" + CurrentVersionNumber + "/" + CurrentCommit)
}

var onlyASCII = regexp.MustCompile("[[:^ascii:]]")

func TrimVersion(version string) string {
	ascii := onlyASCII.ReplaceAllLiteralString(version, "")
	chars := 0
	for i := range ascii {
		if chars >= maxVersionLen {
			ascii = ascii[:i]
			break
		}
		chars++
	}
	return ascii
}

type VersionInfo struct {
	Version string
	Commit  string
	Repo    string
	System  string
	Golang  string
}

func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version: CurrentVersionNumber,
		Commit:  CurrentCommit,
		Repo:    fmt.Sprint(fsrepo.RepoVersion),
		System:  runtime.GOARCH + "/" + runtime.GOOS,
		Golang:  runtime.Version(),
	}
}
