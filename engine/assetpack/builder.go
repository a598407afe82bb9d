package assetpack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/project"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

type BuildError int

const (
	BuildErrorNone BuildError = iota
	BuildErrorNoStartScene
)

func (e BuildError) Error() string {
	switch e {
	case BuildErrorNone:
		return "no error"
	case BuildErrorNoStartScene:
		return "project has no valid start scene"
	}
	return fmt.Sprintf("build error %d", int(e))
}

// Builder plans and writes the asset pack of a project.
type Builder struct {
	registry *Registry
	source   AssetSource
	// Now stamps the build version. Defaults to time.Now.
	Now func() time.Time
}

func NewBuilder(registry *Registry, source AssetSource) *Builder {
	return &Builder{registry: registry, source: source, Now: time.Now}
}

// Build writes proj's asset pack to proj.AssetPackPath(). Scenes are collected
// starting from the start scene and following scene references; each scene
// lists the assets its entities use plus their dependencies. progress ends at
// exactly 1.0 on success. Without a usable start scene nothing is written and
// BuildErrorNoStartScene is returned.
func (b *Builder) Build(proj *project.Project, progress *Progress) (*SerializeResult, error) {
	return b.BuildTo(proj, proj.AssetPackPath(), progress)
}

// BuildTo is Build writing to path instead of the project's pack location.
func (b *Builder) BuildTo(proj *project.Project, path string, progress *Progress) (*SerializeResult, error) {
	file, err := b.Plan(proj.Config.StartScene, progress)
	if err != nil {
		return nil, err
	}

	appBinary, err := readAppBinary(proj.ScriptModuleFilePath())
	if err != nil {
		return nil, err
	}

	s := NewSerializer(b.registry, b.source)
	result, err := s.SerializeToFile(path, file, appBinary, progress)
	if err != nil {
		core.LogError("asset pack build failed: %s", err)
		return nil, err
	}
	progress.Complete()
	core.LogInfo("asset pack written to %s", path)
	return result, nil
}

// Plan builds the index skeleton: every scene reachable from startScene and
// the assets each one needs. Offsets and sizes are filled in by the Serializer.
func (b *Builder) Plan(startScene resources.Handle, progress *Progress) (*File, error) {
	if !b.isScene(startScene) {
		core.LogError("cannot build asset pack: start scene %d is not a scene asset", startScene)
		return nil, BuildErrorNoStartScene
	}

	scenes, err := b.sceneClosure(startScene)
	if err != nil {
		return nil, err
	}
	progress.Add(0.1)

	file := NewFile(core.DateTimeStamp(b.Now()))
	increment := 0.4 / float64(len(scenes))
	for _, sh := range scenes {
		si := file.AddScene(sh)
		sc, err := b.loadScene(sh)
		if err != nil {
			core.LogWarn("scene %d could not be loaded, it will be packed without assets: %s", sh, err)
			progress.Add(increment)
			continue
		}
		for _, ah := range sc.AssetReferences() {
			b.addAsset(si, ah, map[resources.Handle]struct{}{})
		}
		// Script fields may name any asset type; scenes among them are
		// filtered out by addAsset and reached through sceneClosure.
		for _, ah := range sc.ScriptReferences() {
			b.addAsset(si, ah, map[resources.Handle]struct{}{})
		}
		progress.Add(increment)
	}
	return file, nil
}

func (b *Builder) isScene(handle resources.Handle) bool {
	if !handle.IsValid() {
		return false
	}
	md, ok := b.source.GetMetadata(handle)
	return ok && md.Type == resources.AssetTypeScene
}

func (b *Builder) loadScene(handle resources.Handle) (*scene.Scene, error) {
	asset, err := b.source.GetAsset(handle)
	if err != nil {
		return nil, err
	}
	sc, ok := asset.(*scene.Scene)
	if !ok {
		return nil, fmt.Errorf("asset %d is a %s, not a scene", handle, asset.AssetType())
	}
	return sc, nil
}

// sceneClosure walks scene references breadth first. Each scene is listed once.
func (b *Builder) sceneClosure(start resources.Handle) ([]resources.Handle, error) {
	visited := map[resources.Handle]struct{}{start: {}}
	queue := []resources.Handle{start}
	var out []resources.Handle
	for len(queue) > 0 {
		sh := queue[0]
		queue = queue[1:]
		out = append(out, sh)

		sc, err := b.loadScene(sh)
		if err != nil {
			if sh == start {
				core.LogError("cannot build asset pack: start scene %d: %s", sh, err)
				return nil, BuildErrorNoStartScene
			}
			continue
		}
		for _, ref := range sc.ScriptReferences() {
			if _, seen := visited[ref]; seen {
				continue
			}
			md, ok := b.source.GetMetadata(ref)
			if !ok || md.IsMemoryAsset || md.Type != resources.AssetTypeScene {
				continue
			}
			visited[ref] = struct{}{}
			queue = append(queue, ref)
		}
	}
	return out, nil
}

// addAsset records handle in si and recurses into its dependencies. Memory
// assets and handles the registry does not know are skipped.
func (b *Builder) addAsset(si *SceneInfo, handle resources.Handle, visiting map[resources.Handle]struct{}) {
	if _, ok := visiting[handle]; ok {
		return
	}
	visiting[handle] = struct{}{}

	md, ok := b.source.GetMetadata(handle)
	if !ok {
		core.LogWarn("asset %d is referenced but not registered, skipping", handle)
		return
	}
	if md.IsMemoryAsset || md.Type == resources.AssetTypeScene {
		return
	}
	si.AddAsset(handle, md.Type)
	if !b.registry.Supports(md.Type) {
		return
	}

	asset, err := b.source.GetAsset(handle)
	if err != nil {
		return
	}
	if dp, ok := asset.(resources.DependencyProvider); ok {
		for _, dep := range dp.Dependencies() {
			if dep.IsValid() {
				b.addAsset(si, dep, visiting)
			}
		}
	}
}

func readAppBinary(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("no app binary at %s, packing an empty one", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading app binary: %w", err)
	}
	return data, nil
}

// Build is a shortcut for NewBuilder(registry, source).Build(proj, progress).
func Build(proj *project.Project, source AssetSource, registry *Registry, progress *Progress) (*SerializeResult, error) {
	return NewBuilder(registry, source).Build(proj, progress)
}
