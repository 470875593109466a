package build

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// WorkerCount число воркеров сборки: половина физических ядер, не меньше одного.
// Если gopsutil не смог определить ядра, берётся runtime.NumCPU.
func WorkerCount() int {
	cores, err := cpu.Counts(false)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}
	return max(1, cores/2)
}
