// Package tacotron implements the text to mel spectrogram network
package tacotron
