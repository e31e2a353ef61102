//go:build cuda

// Package cu reports CUDA devices available to training
package cu

import (
	"fmt"

	"gorgonia.org/cu"
)

// Devices lists the CUDA devices of the host.
func Devices() ([]Device, error) {
	n, err := cu.NumDevices()
	if err != nil {
		return nil, fmt.Errorf("cuda: %w", err)
	}
	out := make([]Device, 0, n)
	for i := 0; i < n; i++ {
		dev, err := cu.GetDevice(i)
		if err != nil {
			return nil, fmt.Errorf("cuda device %d: %w", i, err)
		}
		name, err := dev.Name()
		if err != nil {
			return nil, fmt.Errorf("cuda device %d: %w", i, err)
		}
		mem, err := dev.TotalMem()
		if err != nil {
			return nil, fmt.Errorf("cuda device %d: %w", i, err)
		}
		major, minor, err := dev.ComputeCapability()
		if err != nil {
			return nil, fmt.Errorf("cuda device %d: %w", i, err)
		}
		out = append(out, Device{Ordinal: i, Name: name, Memory: mem, Major: major, Minor: minor})
	}
	return out, nil
}

// Available reports whether the binary was built with CUDA support.
const Available = true
