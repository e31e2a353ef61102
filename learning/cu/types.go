package cu

import "fmt"

// Device describes one CUDA device.
type Device struct {
	Ordinal      int
	Name         string
	Memory       int64 // bytes
	Major, Minor int   // compute capability
}

func (d Device) String() string {
	return fmt.Sprintf("#%d %s (sm_%d%d, %d MiB)", d.Ordinal, d.Name, d.Major, d.Minor, d.Memory>>20)
}
