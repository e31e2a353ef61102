// Package ljspeech assembles an LJSpeech style corpus (list.txt plus wav files)
// into token sequences and mel spectrograms ready for batching.
package ljspeech
