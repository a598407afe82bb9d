package systems

import (
	"errors"
	"runtime"

	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/renderer"
)

type SystemManagerConfig struct {
	/** @brief Number of job workers. Zero means one per CPU. */
	JobWorkers int
	/** @brief Size of the job queue. */
	JobQueueSize int
}

type SystemManager struct {
	jobSystem    *JobSystem
	assetManager *RuntimeAssetManager
}

func NewSystemManager(config SystemManagerConfig, pack *assetpack.AssetPack, backend renderer.Backend) (*SystemManager, error) {
	workers := config.JobWorkers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	js, err := NewJobSystem(workers, config.JobQueueSize)
	if err != nil {
		return nil, err
	}
	am := NewRuntimeAssetManager(pack, backend, js)
	if _, err := am.LoadBuiltInAssets(); err != nil {
		return nil, errors.Join(err, js.Shutdown())
	}
	return &SystemManager{
		jobSystem:    js,
		assetManager: am,
	}, nil
}

func (sm *SystemManager) JobSystem() *JobSystem {
	return sm.jobSystem
}

func (sm *SystemManager) AssetManager() *RuntimeAssetManager {
	return sm.assetManager
}

// Shutdown drains the job queue before releasing assets so no job sees a cleared cache.
func (sm *SystemManager) Shutdown() error {
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	return sm.assetManager.Shutdown()
}
