package core

import (
	"errors"
)

var (
	// ErrFormat is returned when a file or chunk does not start with the expected magic.
	ErrFormat = errors.New("invalid format")
	// ErrLookup is returned when a scene or asset handle is absent from an index.
	ErrLookup = errors.New("handle not found")
	// ErrStream is returned once a stream failed a read, write or seek.
	ErrStream = errors.New("stream is no longer good")
	// ErrPartialAsset marks an asset that produced no bytes while building a pack.
	ErrPartialAsset = errors.New("asset failed to serialize")
	// ErrAssetMissing is returned for index entries with a zero-length payload.
	ErrAssetMissing = errors.New("asset is missing from the pack")
	// ErrUnsupportedAssetType is returned when no serializer is registered for a type.
	ErrUnsupportedAssetType = errors.New("unsupported asset type")
	// ErrPackCorrupted is returned by a strict pack after one of its chunks failed validation.
	ErrPackCorrupted = errors.New("asset pack is corrupted")
	ErrUnknown       = errors.New("unknown")
)
