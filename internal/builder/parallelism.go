package builder

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// DefaultJobs is the worker pool size of parallel builds: the logical core
// count, or the Go runtime's CPU count when the CPU cannot be identified.
func DefaultJobs() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}

	return runtime.NumCPU()
}

// poolSize returns the number of workers for n files
func (b *Builder) poolSize(n int, parallel bool) int {
	if !parallel {
		return 1
	}

	size := b.jobs
	if size <= 0 {
		size = DefaultJobs()
	}

	if size > n {
		size = n
	}

	if size < 1 {
		size = 1
	}

	return size
}
