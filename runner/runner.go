/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/golang/glog"
)

// The task for Runner to run in parallels
type Task[R any] struct {
	ID   int
	Name string
	Run  func(ctx context.Context) (R, error)
}

type taskResult[R any] struct {
	id     int
	name   string
	result R
	err    error
}

// A goroutine workgroup to run tasks in parallel. Results and errors are
// indexed by task ID.
type ParaTaskRunner[R any] struct {
	ctx         context.Context
	workerWg    sync.WaitGroup
	collectorWg sync.WaitGroup
	jobsChan    chan Task[R]
	resultsChan chan taskResult[R]
	results     []R
	errors      []error
	progress    *Progress
}

func (pt *ParaTaskRunner[R]) worker() {
	defer pt.workerWg.Done()
	for j := range pt.jobsChan {
		if pt.progress != nil {
			pt.progress.Start(j.Name)
		}
		pt.resultsChan <- pt.runTask(j)
		if pt.progress != nil {
			pt.progress.Finish(j.Name)
		}
	}
}

func (pt *ParaTaskRunner[R]) runTask(j Task[R]) (result taskResult[R]) {
	result = taskResult[R]{id: j.ID, name: j.Name}
	defer func() {
		// recover from possible panic
		if r := recover(); r != nil {
			glog.Error("Recovered in task: ", r, string(debug.Stack()))
			result.err = fmt.Errorf("panic in task %s: %v", j.Name, r)
		}
	}()
	if err := pt.ctx.Err(); err != nil {
		result.err = err
		return result
	}
	result.result, result.err = j.Run(pt.ctx)
	return result
}

// NewParaTaskRunner starts numWorkers workers, one per CPU when it is not
// positive, for taskNums tasks with IDs in [0, taskNums). progress may be
// nil.
func NewParaTaskRunner[R any](ctx context.Context, numWorkers, taskNums int, progress *Progress) *ParaTaskRunner[R] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	pt := &ParaTaskRunner[R]{
		ctx:         ctx,
		jobsChan:    make(chan Task[R], numWorkers),
		resultsChan: make(chan taskResult[R], numWorkers),
		results:     make([]R, taskNums),
		errors:      make([]error, taskNums),
		progress:    progress,
	}
	for w := 0; w < numWorkers; w++ {
		pt.workerWg.Add(1)
		go pt.worker()
	}
	pt.collectorWg.Add(1)
	go func() {
		defer pt.collectorWg.Done()
		for r := range pt.resultsChan {
			if r.err != nil {
				glog.Errorf("task %s got error %v", r.name, r.err)
			}
			pt.results[r.id] = r.result
			pt.errors[r.id] = r.err
		}
	}()
	return pt
}

// AddTask queues task. It blocks while all workers are busy and fails once
// the context is done.
func (pt *ParaTaskRunner[R]) AddTask(task Task[R]) error {
	if task.ID < 0 || task.ID >= len(pt.results) {
		return fmt.Errorf("task id %d out of range [0, %d)", task.ID, len(pt.results))
	}
	select {
	case pt.jobsChan <- task:
		return nil
	case <-pt.ctx.Done():
		return pt.ctx.Err()
	}
}

// Wait until all the tasks workers and collectors are finished and all
// results are collected. The runner cannot be used afterwards.
func (pt *ParaTaskRunner[R]) CollectResultsAndErrors() ([]R, []error) {
	close(pt.jobsChan)
	pt.workerWg.Wait()
	close(pt.resultsChan)
	pt.collectorWg.Wait()
	return pt.results, pt.errors
}

// Run executes tasks and joins their errors.
func Run[R any](ctx context.Context, numWorkers int, tasks []Task[R], progress *Progress) ([]R, error) {
	pt := NewParaTaskRunner[R](ctx, numWorkers, len(tasks), progress)
	var addErr error
	for _, task := range tasks {
		if addErr = pt.AddTask(task); addErr != nil {
			break
		}
	}
	results, errs := pt.CollectResultsAndErrors()
	return results, errors.Join(append(errs, addErr)...)
}
