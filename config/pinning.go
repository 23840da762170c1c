package config

// DefaultWalkConcurrency bounds the parallel fetches of a recursive pin.
const DefaultWalkConcurrency = 32

type Pinning struct {
	// WalkConcurrency is the number of blocks fetched in parallel while
	// pinning a DAG recursively.
	WalkConcurrency OptionalInteger `json:",omitempty"`
}
