package options

// BlockRmSettings represent the settings for BlockAPI.Rm
type BlockRmSettings struct {
	Force bool
}

// BlockRmOption is the signature of an option for BlockAPI.Rm
type BlockRmOption func(*BlockRmSettings) error

// BlockRmOptions compile a series of BlockRmOption into a ready to use
// BlockRmSettings
func BlockRmOptions(opts ...BlockRmOption) (*BlockRmSettings, error) {
	options := &BlockRmSettings{
		Force: false,
	}

	for _, opt := range opts {
		err := opt(options)
		if err != nil {
			return nil, err
		}
	}
	return options, nil
}

type blockOpts struct{}

// Block provides access to the options for the Block API.
var Block blockOpts

// Force is an option for Block.Rm which, when set to true, will ignore
// non-existing blocks
func (blockOpts) Force(force bool) BlockRmOption {
	return func(settings *BlockRmSettings) error {
		settings.Force = force
		return nil
	}
}
