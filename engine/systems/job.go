package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/epoch/engine/core"
)

// JobTask is one unit of work. OnComplete or OnFailure runs on the worker
// after Run returns, followed by OnCompletionCallback if set.
type JobTask struct {
	Name string
	Run  func() (any, error)

	OnComplete           func(result any)
	OnFailure            func(err error)
	OnCompletionCallback func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemStopped = errors.New("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job JobTask) {
	if job.OnCompletionCallback != nil {
		defer job.OnCompletionCallback()
	}
	if job.Run == nil {
		return
	}
	result, err := job.Run()
	if err != nil {
		core.LogError("job '%s' failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete(result)
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

// AddWorkNonBlocking queues jt from a new goroutine and returns immediately.
func (js *JobSystem) AddWorkNonBlocking(jt JobTask) {
	go func() {
		if err := js.Submit(jt); err != nil {
			core.LogWarn("dropping job '%s': %s", jt.Name, err)
		}
	}()
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 */
func (js *JobSystem) Submit(jt JobTask) error {
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed {
		return ErrJobSystemStopped
	}
	js.jobQueue <- jt
	return nil
}
