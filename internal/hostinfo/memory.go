package hostinfo

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryInfo is a snapshot of system memory in bytes
type MemoryInfo struct {
	Total     uint64
	Available uint64
}

// GetMemoryInfo reads current system memory statistics
func GetMemoryInfo() (MemoryInfo, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("failed to get virtual memory info: %w", err)
	}
	return MemoryInfo{Total: vm.Total, Available: vm.Available}, nil
}

// GridBytes is the memory held by one rendered float64 image of width x height pixels
func GridBytes(width, height int) uint64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return uint64(width) * uint64(height) * 8
}

// CapWorkers limits workers so that each can hold perWorker bytes within
// half of the available memory. It never returns less than one.
func CapWorkers(workers int, perWorker, available uint64) int {
	if workers < 1 {
		workers = 1
	}
	if perWorker == 0 || available == 0 {
		return workers
	}
	fit := available / 2 / perWorker
	if fit < 1 {
		return 1
	}
	if fit < uint64(workers) {
		return int(fit)
	}
	return workers
}
