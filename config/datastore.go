package config

const (
	// DefaultDataStoreDirectory is the directory to store all the local IPFS data.
	DefaultDataStoreDirectory = "datastore"

	// DefaultStorageMax is the soft ceiling of the repo size.
	DefaultStorageMax = "10GB"

	// DefaultStorageGCWatermark is the percentage of StorageMax at which a
	// conditional collection starts.
	DefaultStorageGCWatermark = 90

	// DefaultGCPeriod is the interval between periodic collections.
	DefaultGCPeriod = "1h"

	// DefaultBlockKeyCacheSize is the size for the blockstore two-queue
	// cache which caches block keys and sizes.
	DefaultBlockKeyCacheSize = 64 << 10
)

// Datastore tracks the configuration of the datastore.
type Datastore struct {
	StorageMax         string // in B, kB, kiB, MB, ...
	StorageGCWatermark int64  // in percentage to multiply on StorageMax
	GCPeriod           string // in ns, us, ms, s, m, h

	Spec map[string]interface{}

	HashOnRead        bool
	BlockKeyCacheSize OptionalInteger `json:",omitempty"`
}

// DefaultDatastoreConfig is an internal function exported to aid in testing.
func DefaultDatastoreConfig() Datastore {
	return Datastore{
		StorageMax:         DefaultStorageMax,
		StorageGCWatermark: DefaultStorageGCWatermark,
		GCPeriod:           DefaultGCPeriod,
		Spec:               flatfsSpec(),
	}
}

// flatfsSpec keeps blocks in flatfs and everything else, the pin set
// included, in leveldb.
func flatfsSpec() map[string]interface{} {
	return map[string]interface{}{
		"type": "mount",
		"mounts": []interface{}{
			map[string]interface{}{
				"mountpoint": "/blocks",
				"type":       "measure",
				"prefix":     "flatfs.datastore",
				"child": map[string]interface{}{
					"type":      "flatfs",
					"path":      "blocks",
					"sync":      true,
					"shardFunc": "/repo/flatfs/shard/v1/next-to-last/2",
				},
			},
			map[string]interface{}{
				"mountpoint": "/",
				"type":       "measure",
				"prefix":     "leveldb.datastore",
				"child": map[string]interface{}{
					"type":        "levelds",
					"path":        "datastore",
					"compression": "none",
				},
			},
		},
	}
}

func badgerSpec() map[string]interface{} {
	return map[string]interface{}{
		"type":   "measure",
		"prefix": "badger.datastore",
		"child": map[string]interface{}{
			"type":       "badgerds",
			"path":       "badgerds",
			"syncWrites": true,
			"truncate":   true,
		},
	}
}

func pebbleSpec() map[string]interface{} {
	return map[string]interface{}{
		"type":   "measure",
		"prefix": "pebble.datastore",
		"child": map[string]interface{}{
			"type": "pebbleds",
			"path": "pebbleds",
		},
	}
}

func memSpec() map[string]interface{} {
	return map[string]interface{}{
		"type": "mem",
	}
}
