package parallel

import "runtime"

import "github.com/klauspost/cpuid/v2"

// DefaultLimit reports the number of goroutines ForEach should use when the
// caller has no preference: the logical core count, or NumCPU if unknown.
func DefaultLimit() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Describe returns the CPU brand and whether AVX2 / AVX-512 are available.
func Describe() (brand string, avx2, avx512 bool) {
	return cpuid.CPU.BrandName, cpuid.CPU.Supports(cpuid.AVX2), cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ)
}
