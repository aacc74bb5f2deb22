package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultTaskTimeout = 5 * time.Minute

var _ TaskRunner = (*Pool)(nil)

// Pool runs tasks on a fixed number of workers. Unlike a scheduler it has
// no ticker and no retry: every task runs once and Run returns when all of
// them are done.
type Pool struct {
	workerCount int
	timeout     time.Duration
}

type queuedTask struct {
	index int
	task  TaskInterface
}

func NewPool(workerCount int, timeout time.Duration) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Pool{workerCount: workerCount, timeout: timeout}
}

// Run executes tasks and returns their errors indexed like tasks. Tasks
// not started before ctx is cancelled report ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []TaskInterface) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	taskQueue := make(chan queuedTask)
	var wg sync.WaitGroup

	for i := 0; i < min(p.workerCount, len(tasks)); i++ {
		wg.Add(1)
		go p.worker(ctx, i, taskQueue, errs, &wg)
	}

	for i, task := range tasks {
		select {
		case taskQueue <- queuedTask{index: i, task: task}:
		case <-ctx.Done():
			for j := i; j < len(tasks); j++ {
				errs[j] = ctx.Err()
			}
			close(taskQueue)
			wg.Wait()
			return errs
		}
	}

	close(taskQueue)
	wg.Wait()

	return errs
}

func (p *Pool) worker(ctx context.Context, id int, taskQueue <-chan queuedTask, errs []error, wg *sync.WaitGroup) {
	defer wg.Done()

	for queued := range taskQueue {
		errs[queued.index] = p.executeTask(ctx, id, queued.task)
	}
}

func (p *Pool) executeTask(ctx context.Context, workerID int, task TaskInterface) error {
	task.Start()

	taskCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err != nil {
		log.Error().
			Int("worker_id", workerID).
			Str("type", string(task.GetType())).
			Str("source", task.GetSourceName()).
			Str("id", task.GetID()).
			Err(err).
			Msg("Worker task execution failed")
	}

	return err
}
