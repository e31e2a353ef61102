// Package main trains a tacotron text to mel spectrogram model on an LJSpeech
// style corpus: a list.txt manifest of "file|transcript" lines next to the WAV
// files. Training can be interrupted and resumed from the saved checkpoint.
// With --validation-split the tail of the corpus is held out and its loss
// logged every epoch; --best-only then skips periodic checkpoints that do
// not lower it.
package main
