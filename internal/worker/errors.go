package worker

import (
	"errors"
	"fmt"

	"github.com/sgryjp/cldb/internal/equipment"
)

var (
	// ErrFetcherRequired is returned when no page fetcher is given.
	ErrFetcherRequired = errors.New("worker: fetcher is required")

	// ErrAssemblerRequired is returned when no assembler is given.
	ErrAssemblerRequired = errors.New("worker: assembler is required")

	// ErrReconcilerRequired is returned when no reconciler is given.
	ErrReconcilerRequired = errors.New("worker: reconciler is required")
)

// TaskError is a failure while processing one task.
type TaskError struct {
	Task equipment.FetchTask
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
