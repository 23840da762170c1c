package coreapi

import (
	"context"
	"errors"
	"fmt"

	caopts "github.com/ipfs/pincore/core/coreapi/options"
	"github.com/ipfs/pincore/errs"
	"github.com/ipfs/pincore/path"
	"github.com/ipfs/pincore/pin"

	cid "github.com/ipfs/go-cid"
)

type PinAPI CoreAPI

// ErrNotPinnedUnderType is returned when a path resolves, but the node it
// names holds no pin of the requested type.
type ErrNotPinnedUnderType struct {
	Path path.Path
	Type string
}

func (e *ErrNotPinnedUnderType) Error() string {
	return fmt.Sprintf("path '%s' is not pinned", e.Path)
}

// NotPinnedUnderType marks the error for errs.Kind.
func (e *ErrNotPinnedUnderType) NotPinnedUnderType() bool { return true }

func parseMode(typeStr string) (pin.Mode, error) {
	mode, ok := pin.StringToMode(typeStr)
	if !ok {
		return pin.NotPinned, errs.InvalidArgument("invalid type '%s', must be one of {direct, indirect, recursive, all}", typeStr)
	}
	return mode, nil
}

// Add pins the node p names, with its whole DAG unless the pin is direct.
func (api *PinAPI) Add(ctx context.Context, p path.Path, opts ...caopts.PinAddOption) (cid.Cid, error) {
	settings, err := caopts.PinAddOptions(opts...)
	if err != nil {
		return cid.Undef, err
	}

	c, err := api.core().ResolvePath(ctx, p)
	if err != nil {
		return cid.Undef, fmt.Errorf("pin: %w", err)
	}

	mode := pin.Direct
	if settings.Recursive {
		mode = pin.Recursive
	}

	defer api.blockstore.PinLock(ctx).Unlock(ctx)

	if err := api.pinning.Pin(ctx, c, mode); err != nil {
		return cid.Undef, fmt.Errorf("pin: %w", err)
	}
	log.Debugw("pin added", "path", p, "cid", c, "mode", mode)
	return c, nil
}

// Ls lists the pins of the requested type.
func (api *PinAPI) Ls(ctx context.Context, opts ...caopts.PinLsOption) ([]pin.Listing, error) {
	settings, err := caopts.PinLsOptions(opts...)
	if err != nil {
		return nil, err
	}

	mode, err := parseMode(settings.Type)
	if err != nil {
		return nil, err
	}

	defer api.blockstore.ReadLock(ctx).Unlock(ctx)

	return api.pinning.Ls(ctx, mode)
}

// LsPath resolves p and lists how the node it names is pinned. A path that
// cannot be resolved fails with the resolution error; a resolved path with
// no pin of the requested type fails with *ErrNotPinnedUnderType.
func (api *PinAPI) LsPath(ctx context.Context, p path.Path, opts ...caopts.PinLsOption) ([]pin.Listing, error) {
	settings, err := caopts.PinLsOptions(opts...)
	if err != nil {
		return nil, err
	}

	mode, err := parseMode(settings.Type)
	if err != nil {
		return nil, err
	}

	defer api.blockstore.ReadLock(ctx).Unlock(ctx)

	c, err := api.core().ResolvePath(ctx, p)
	if err != nil {
		return nil, err
	}

	listings, err := api.pinning.LsCid(ctx, c, mode)
	if errors.Is(err, pin.ErrNotPinnedKind) {
		return nil, &ErrNotPinnedUnderType{Path: p, Type: settings.Type}
	}
	return listings, err
}

// IsPinned reports whether the node p names is pinned, and how.
func (api *PinAPI) IsPinned(ctx context.Context, p path.Path, opts ...caopts.PinIsPinnedOption) (string, bool, error) {
	settings, err := caopts.PinIsPinnedOptions(opts...)
	if err != nil {
		return "", false, err
	}

	mode, err := parseMode(settings.WithType)
	if err != nil {
		return "", false, err
	}

	defer api.blockstore.ReadLock(ctx).Unlock(ctx)

	c, err := api.core().ResolvePath(ctx, p)
	if err != nil {
		return "", false, fmt.Errorf("error resolving path: %w", err)
	}

	return api.pinning.IsPinnedWithType(ctx, c, mode)
}

// Rm removes the pin on the node p names. A recursive removal drops the
// recursive and the direct pin; otherwise only the direct pin goes.
func (api *PinAPI) Rm(ctx context.Context, p path.Path, opts ...caopts.PinRmOption) (cid.Cid, error) {
	settings, err := caopts.PinRmOptions(opts...)
	if err != nil {
		return cid.Undef, err
	}

	c, err := api.core().ResolvePath(ctx, p)
	if err != nil {
		return cid.Undef, err
	}

	mode := pin.Direct
	if settings.Recursive {
		mode = pin.Any
	}

	// Note: unpinning rewrites the pin record, so we need to take a lock to
	// prevent a concurrent garbage collection
	defer api.blockstore.PinLock(ctx).Unlock(ctx)

	if err := api.pinning.Unpin(ctx, c, mode); err != nil {
		return cid.Undef, err
	}
	return c, nil
}

// Update moves a recursive pin from one DAG to another.
func (api *PinAPI) Update(ctx context.Context, from path.Path, to path.Path, opts ...caopts.PinUpdateOption) error {
	settings, err := caopts.PinUpdateOptions(opts...)
	if err != nil {
		return err
	}

	fc, err := api.core().ResolvePath(ctx, from)
	if err != nil {
		return err
	}

	tc, err := api.core().ResolvePath(ctx, to)
	if err != nil {
		return err
	}

	defer api.blockstore.PinLock(ctx).Unlock(ctx)

	return api.pinning.Update(ctx, fc, tc, settings.Unpin)
}

// Verify checks that every pinned DAG is complete.
func (api *PinAPI) Verify(ctx context.Context) ([]pin.PinStatus, error) {
	defer api.blockstore.ReadLock(ctx).Unlock(ctx)

	return api.pinning.Verify(ctx)
}

func (api *PinAPI) core() *CoreAPI {
	return (*CoreAPI)(api)
}
