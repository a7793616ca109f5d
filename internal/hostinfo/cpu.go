// Package hostinfo reports CPU and memory facts used to size realization workers.
package hostinfo

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	LogicalCores     int
	PerformanceCores int  // 0 when the CPU is not a known hybrid design
	AVX2             bool // vector kernels used by moment reductions
}

// Hybrid Intel desktop parts by model number prefix, P-core counts
var intelPerformanceCores = map[string]int{
	"12900": 8, "12700": 8, "12600": 6, "12400": 6, "12100": 4,
	"13900": 8, "13700": 8, "13600": 6, "13500": 6, "13400": 6, "13100": 4,
	"14900": 8, "14700": 8, "14600": 6, "14400": 6, "14100": 4,
	"ultra 9 285": 8, "ultra 7 265": 8, "ultra 7 255": 8, "ultra 5 235": 6, "ultra 5 225": 4,
}

// Apple silicon P-core counts, the larger variant where binned parts differ
var applePerformanceCores = map[string]int{
	"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
	"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
	"m3": 4, "m3 pro": 8, "m3 max": 12, "m3 ultra": 24,
	"m4": 6, "m4 pro": 8, "m4 max": 12,
}

var (
	intelCoreRegex  = regexp.MustCompile(`intel.*core.*i[3579]-(\d{5})`)
	intelUltraRegex = regexp.MustCompile(`intel.*core.*(ultra\s+[579])\s+(?:processor\s+)?(\d{3})`)
	appleRegex      = regexp.MustCompile(`apple\s+(m[1-4](?:\s+(?:pro|max|ultra))?)`)
)

// GetCPUSpec returns the specification of the host CPU
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PerformanceCores: performanceCores(cpuid.CPU.BrandName),
		AVX2:             cpuid.CPU.Supports(cpuid.AVX2),
	}
}

// OptimalWorkers returns the recommended number of realization workers.
// Hybrid CPUs use their performance cores only.
func (c CPUSpec) OptimalWorkers() int {
	available := runtime.NumCPU()
	if c.PerformanceCores > 0 {
		return min(c.PerformanceCores, available)
	}
	if c.LogicalCores > 0 {
		return min(c.LogicalCores, available)
	}
	return available
}

func performanceCores(brandName string) int {
	brandName = strings.ToLower(brandName)

	if m := intelCoreRegex.FindStringSubmatch(brandName); m != nil {
		return intelPerformanceCores[m[1]]
	}
	if m := intelUltraRegex.FindStringSubmatch(brandName); m != nil {
		key := strings.Join(strings.Fields(m[1]), " ") + " " + m[2]
		return intelPerformanceCores[key]
	}
	if m := appleRegex.FindStringSubmatch(brandName); m != nil {
		return applePerformanceCores[strings.Join(strings.Fields(m[1]), " ")]
	}
	return 0
}
