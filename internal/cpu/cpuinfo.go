package cpu

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// defaultWorkers resolves the worker count used when the caller leaves it
// unset. The logical core count from CPUID is preferred; GOMAXPROCS caps it
// so a restricted scheduler (cgroups, taskset) is respected.
func defaultWorkers() int {
	n := cpuid.CPU.LogicalCores
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return min(n, runtime.GOMAXPROCS(0))
}

var hostLogOnce sync.Once

// logHost emits a one-time description of the execution host.
func logHost(logger *slog.Logger) {
	hostLogOnce.Do(func() {
		logger.Debug("cpu backend host",
			"brand", cpuid.CPU.BrandName,
			"physicalCores", cpuid.CPU.PhysicalCores,
			"logicalCores", cpuid.CPU.LogicalCores,
			"avx2", cpuid.CPU.Has(cpuid.AVX2),
			"fma3", cpuid.CPU.Has(cpuid.FMA3))
	})
}
