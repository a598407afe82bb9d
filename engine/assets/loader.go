package assets

import "github.com/spaghettifunk/epoch/engine/resources"

// Loader imports one asset type from its source file.
type Loader interface {
	Load(path string) (resources.Asset, error)
	Unload(resources.Asset) error
}
