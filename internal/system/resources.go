package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Budget is how much parallelism a render may use.
type Budget struct {
	Workers int
	// Window caps the frames in flight: rendered but not yet delivered.
	Window int
}

// memoryShare is the fraction of available memory frame buffers may take.
const memoryShare = 0.25

// RecommendedBudget sizes the worker pool from the logical CPU count and
// the in-flight window from available memory, for frames of frameBytes.
// workers > 0 overrides the CPU based count.
func RecommendedBudget(ctx context.Context, frameBytes int, workers int) Budget {
	if workers <= 0 {
		n, err := cpu.CountsWithContext(ctx, true)
		if err != nil || n <= 0 {
			n = runtime.NumCPU()
		}
		workers = n
	}

	window := 4 * workers
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && frameBytes > 0 {
		window = budgetWindow(workers, vm.Available, frameBytes)
	}
	return Budget{Workers: workers, Window: window}
}

func budgetWindow(workers int, available uint64, frameBytes int) int {
	fit := int(float64(available) * memoryShare / float64(frameBytes))
	window := 4 * workers
	if fit < window {
		window = fit
	}
	if window < workers {
		window = workers
	}
	if window < 1 {
		window = 1
	}
	return window
}
