package config

type GC struct {
	// BestEffort makes the collector skip references it cannot fetch
	// instead of aborting. Blocks below a skipped reference are not
	// protected.
	BestEffort Flag `json:",omitempty"`
}
