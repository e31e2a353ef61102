// Package plot renders loss curves and spectrograms to PNG
package plot
