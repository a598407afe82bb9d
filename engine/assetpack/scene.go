package assetpack

import (
	"fmt"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

// SceneRuntimeSerializer stores a scene as its text document in a length-prefixed string.
type SceneRuntimeSerializer struct{}

func (s *SceneRuntimeSerializer) SerializeToAssetPack(handle resources.Handle, w serialization.Writer, source AssetSource) (SerializationInfo, error) {
	info := SerializationInfo{Offset: w.Position()}
	asset, err := source.GetAsset(handle)
	if err != nil {
		return info, err
	}
	sc, ok := asset.(*scene.Scene)
	if !ok {
		return info, fmt.Errorf("asset %d is a %s, not a scene", handle, asset.AssetType())
	}
	data, err := scene.Marshal(sc)
	if err != nil {
		return info, err
	}
	if err := serialization.WriteString(w, string(data)); err != nil {
		return info, err
	}
	info.Size = w.Position() - info.Offset
	return info, nil
}

func readSceneDocument(r serialization.Reader, info AssetInfo) (string, error) {
	if err := seekChunk(r, info); err != nil {
		return "", err
	}
	doc, err := serialization.ReadString(r)
	if err != nil {
		return "", fmt.Errorf("%w: scene document: %w", core.ErrFormat, err)
	}
	if r.Position() > info.End() {
		return "", fmt.Errorf("%w: scene document runs past its chunk", core.ErrFormat)
	}
	return doc, nil
}

func (s *SceneRuntimeSerializer) DeserializeFromAssetPack(r serialization.Reader, info AssetInfo) (resources.Asset, error) {
	doc, err := readSceneDocument(r, info)
	if err != nil {
		return nil, err
	}
	return scene.Unmarshal(resources.InvalidHandle, []byte(doc))
}

func (s *SceneRuntimeSerializer) ValidateChunk(r serialization.Reader, info AssetInfo) error {
	_, err := s.DeserializeFromAssetPack(r, info)
	return err
}
