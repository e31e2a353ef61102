//go:build !cuda

// Package cu reports CUDA devices available to training
package cu

// Devices returns no devices when built without the cuda tag.
func Devices() ([]Device, error) {
	return nil, nil
}

// Available reports whether the binary was built with CUDA support.
const Available = false
