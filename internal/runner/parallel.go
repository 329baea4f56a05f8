package runner

import (
	"context"
	"sync"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/discovery"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
)

// WorkerPool manages parallel script execution
type WorkerPool struct {
	executor   *Executor
	maxWorkers int
}

// NewWorkerPool creates a new worker pool for parallel script execution
func NewWorkerPool(executor *Executor, maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		executor:   executor,
		maxWorkers: maxWorkers,
	}
}

// ExecuteParallel runs scripts with the configured concurrency limit. Runs are
// returned in script order.
func (wp *WorkerPool) ExecuteParallel(ctx context.Context, scripts []discovery.Script) []*ScriptRun {
	numScripts := len(scripts)
	if numScripts == 0 {
		return nil
	}

	// If only one worker or one script, fall back to sequential execution
	if wp.maxWorkers == 1 || numScripts == 1 {
		return wp.executor.ExecuteBatch(ctx, scripts)
	}

	logger.Debug("Starting parallel execution with %d workers for %d scripts", wp.maxWorkers, numScripts)

	jobs := make(chan *scriptJob, numScripts)
	results := make(chan *scriptResult, numScripts)

	var wg sync.WaitGroup
	for i := 0; i < wp.maxWorkers; i++ {
		wg.Add(1)
		go wp.worker(ctx, i, jobs, results, &wg)
	}

	for i := range scripts {
		jobs <- &scriptJob{
			script: &scripts[i],
			index:  i,
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	runs := make([]*ScriptRun, numScripts)
	for result := range results {
		runs[result.index] = result.run
		logger.Debug("[%s] %s (worker %d)", result.run.Status, result.run.Script.Name(), result.workerID)
	}

	return runs
}

// scriptJob represents a single script to execute
type scriptJob struct {
	script *discovery.Script
	index  int
}

// scriptResult represents the result of a script execution
type scriptResult struct {
	run      *ScriptRun
	index    int
	workerID int
}

// worker is the goroutine that processes script jobs
func (wp *WorkerPool) worker(ctx context.Context, workerID int, jobs <-chan *scriptJob, results chan<- *scriptResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			now := time.Now()
			results <- &scriptResult{
				run: &ScriptRun{
					Script:    job.script,
					StartTime: now,
					EndTime:   now,
					Status:    RunFailed,
					Error:     ctx.Err(),
				},
				index:    job.index,
				workerID: workerID,
			}
			continue
		}

		results <- &scriptResult{
			run:      wp.executor.Execute(ctx, job.script),
			index:    job.index,
			workerID: workerID,
		}
	}
}
