package config

// Init returns the default configuration of a new repo.
func Init() (*Config, error) {
	conf := &Config{
		Datastore: DefaultDatastoreConfig(),
		Resolver: Resolver{
			FetchTimeout: *NewOptionalDuration(DefaultFetchTimeout),
		},
	}
	return conf, nil
}
