package loaders

import (
	"os"

	"github.com/spaghettifunk/epoch/engine/resources"
)

// Binary is an asset kept as its raw file contents, such as a compiled
// script module or an audio clip. Packs do not carry these.
type Binary struct {
	resources.Base

	Type resources.AssetType
	Data []byte
}

func (b *Binary) AssetType() resources.AssetType {
	return b.Type
}

type BinaryLoader struct {
	Type resources.AssetType
}

func (bl *BinaryLoader) Load(path string) (resources.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Binary{Type: bl.Type, Data: data}, nil
}

func (bl *BinaryLoader) Unload(asset resources.Asset) error {
	if b, ok := asset.(*Binary); ok {
		b.Data = nil
	}
	return nil
}
