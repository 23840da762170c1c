package config

import "time"

// DefaultFetchTimeout is the time a resolver waits for one block.
const DefaultFetchTimeout = time.Minute

type Resolver struct {
	// FetchTimeout limits each block fetch made while resolving a path.
	// Zero disables the limit.
	FetchTimeout OptionalDuration `json:",omitempty"`
}
