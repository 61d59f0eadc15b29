package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	TASK_CHAN_SIZE = 100
)

type WorkerFunction = func(t *tomb.Tomb, task any) error
type WorkerPool struct {
	n     int      // number of workers
	tasks chan any // task queue
}

func NewWorkerPool(size uint) *WorkerPool {
	if size == 0 {
		size = 1
	}
	return &WorkerPool{
		n:     int(size),
		tasks: make(chan any, TASK_CHAN_SIZE),
	}
}

func (pool *WorkerPool) Size() int { return pool.n }

// Setup starts the workers on t. It must be called from a goroutine t is
// already tracking so the tomb cannot die while workers are being added.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	for id := range pool.n {
		t.Go(func() error {
			return pool.worker(t, id, work)
		})
	}
}

// AddTask queues a task, blocking while the queue is full. It returns false
// if the tomb started dying first.
func (pool *WorkerPool) AddTask(t *tomb.Tomb, task any) bool {
	select {
	case <-t.Dying():
		return false
	case pool.tasks <- task:
		return true
	}
}

// Close signals that no more tasks will be added. Workers exit once the
// queue drains.
func (pool *WorkerPool) Close() {
	close(pool.tasks)
}

// Workers wait on tasks in the task queue and action them. Any error from
// work kills the tomb.
func (pool *WorkerPool) worker(t *tomb.Tomb, id int, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task, ok := <-pool.tasks:
			if !ok {
				return nil
			}
			if err := work(t, task); err != nil {
				log.Error().Err(err).Int("id", id).Msg("worker exiting")
				return err
			}
		}
	}
}
