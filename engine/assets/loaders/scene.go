package loaders

import (
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

type SceneLoader struct{}

// Load reads a scene file. The manager assigns the handle afterwards.
func (sl *SceneLoader) Load(path string) (resources.Asset, error) {
	return scene.LoadFile(resources.InvalidHandle, path)
}

func (sl *SceneLoader) Unload(resources.Asset) error {
	return nil
}
