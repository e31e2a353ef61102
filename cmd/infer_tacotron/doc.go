// Package main synthesizes speech from text with a trained tacotron checkpoint.
package main
