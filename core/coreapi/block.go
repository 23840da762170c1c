package coreapi

import (
	"context"

	util "github.com/ipfs/pincore/blocks/blockstore/util"
	caopts "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/path"

	cid "github.com/ipfs/go-cid"
)

type BlockAPI CoreAPI

// Rm removes the block p names unless a pin reaches it.
func (api *BlockAPI) Rm(ctx context.Context, p path.Path, opts ...caopts.BlockRmOption) error {
	c, err := api.core().ResolvePath(ctx, p)
	if err != nil {
		return err
	}

	settings, err := caopts.BlockRmOptions(opts...)
	if err != nil {
		return err
	}
	cids := []cid.Cid{c}
	o := util.RmBlocksOpts{Force: settings.Force}

	out, err := util.RmBlocks(ctx, api.blockstore, api.pinning, cids, o)
	if err != nil {
		return err
	}

	select {
	case res, ok := <-out:
		if !ok {
			return nil
		}
		if res.Error != nil {
			return res.Error
		}
		log.Debugw("block removed", "cid", c)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (api *BlockAPI) core() *CoreAPI {
	return (*CoreAPI)(api)
}
