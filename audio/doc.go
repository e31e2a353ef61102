// Package audio reads and writes mono PCM waveforms as float64 samples in [-1, 1].
package audio
