// Package mel computes log-power mel spectrograms and inverts them back to
// waveforms with Griffin-Lim phase reconstruction.
package mel
