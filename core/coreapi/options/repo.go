package options

// RepoGCSettings represent the settings for RepoAPI.GC and RepoAPI.LiveSet
type RepoGCSettings struct {
	BestEffort bool
}

// RepoGCOption is the signature of an option for RepoAPI.GC
type RepoGCOption func(*RepoGCSettings) error

// RepoGCOptions compile a series of RepoGCOption into a ready to use
// RepoGCSettings. The default is a strict run.
func RepoGCOptions(opts ...RepoGCOption) (*RepoGCSettings, error) {
	options := &RepoGCSettings{}

	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

type repoOpts struct{}

// Repo provides access to the options for the Repo API.
var Repo repoOpts

// BestEffort makes garbage collection skip references it cannot fetch
// instead of aborting.
func (repoOpts) BestEffort(bestEffort bool) RepoGCOption {
	return func(settings *RepoGCSettings) error {
		settings.BestEffort = bestEffort
		return nil
	}
}
