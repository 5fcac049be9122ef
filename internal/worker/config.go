// Package worker runs fetch tasks through the extraction pipeline on a
// bounded pool of goroutines.
package worker

import "runtime"

// MinCount is the smallest explicit worker count.
const MinCount = 1

// Config holds configuration for the worker pool.
type Config struct {
	// Count is the number of concurrent workers. Zero or less means one per CPU.
	Count int `mapstructure:"count"`

	// KeepGoing collects task failures instead of aborting the run.
	KeepGoing bool `mapstructure:"keep_going"`
}

// Workers resolves the effective worker count.
func (c Config) Workers() int {
	if c.Count < MinCount {
		return runtime.NumCPU()
	}
	return c.Count
}

// workersFor bounds the worker count by the number of tasks.
func (c Config) workersFor(tasks int) int {
	return max(min(c.Workers(), tasks), MinCount)
}
