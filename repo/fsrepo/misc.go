package fsrepo

import (
	"os"

	config "github.com/ipfs/pincore/config"
	"github.com/ipfs/pincore/misc/fsutil"
)

// BestKnownPath returns the best known fsrepo path. If the ENV override is
// present, this function returns that value. Otherwise, it returns the default
// repo path.
func BestKnownPath() (string, error) {
	pincorePath := config.DefaultPathRoot
	if os.Getenv(config.EnvDir) != "" {
		pincorePath = os.Getenv(config.EnvDir)
	}
	return fsutil.ExpandHome(pincorePath)
}
