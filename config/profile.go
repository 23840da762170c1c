package config

import (
	"fmt"
	"sort"
	"strings"
)

// Transformer is a function which takes configuration and applies some filter to it
type Transformer func(c *Config) error

// Profile contains the profile transformer the description of the profile
type Profile struct {
	// Description briefly describes the functionality of the profile
	Description string

	// Transform takes pincore configuration and applies the profile to it
	Transform Transformer
}

// Profiles is a map holding configuration transformers.
var Profiles = map[string]Profile{
	"test": {
		Description: `Keeps every block and pin in memory, this is useful
when using pincore in test environments.`,

		Transform: func(c *Config) error {
			c.Datastore.Spec = memSpec()
			return nil
		},
	},
	"badgerds": {
		Description: `Replaces default datastore configuration with the
badger datastore.

If you apply this profile after pincore init, existing blocks and pins
stay in the old datastore and will not be visible.`,

		Transform: func(c *Config) error {
			c.Datastore.Spec = badgerSpec()
			return nil
		},
	},
	"pebbleds": {
		Description: `Replaces default datastore configuration with the
pebble datastore.

If you apply this profile after pincore init, existing blocks and pins
stay in the old datastore and will not be visible.`,

		Transform: func(c *Config) error {
			c.Datastore.Spec = pebbleSpec()
			return nil
		},
	},
	"default-datastore": {
		Description: `Restores default datastore configuration.`,

		Transform: func(c *Config) error {
			c.Datastore.Spec = DefaultDatastoreConfig().Spec
			return nil
		},
	},
	"best-effort-gc": {
		Description: `Lets garbage collection skip references it cannot
fetch. Blocks only reachable through a skipped reference are removed.`,

		Transform: func(c *Config) error {
			c.GC.BestEffort = True
			return nil
		},
	},
}

// ApplyProfiles applies the comma separated profiles to c in order.
func ApplyProfiles(c *Config, profiles string) error {
	if profiles == "" {
		return nil
	}
	for _, name := range strings.Split(profiles, ",") {
		name = strings.TrimSpace(name)
		p, ok := Profiles[name]
		if !ok {
			return fmt.Errorf("invalid configuration profile: %s (available: %s)", name, strings.Join(ProfileNames(), ", "))
		}
		if err := p.Transform(c); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return nil
}

// ProfileNames lists the known profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
