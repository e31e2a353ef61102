// Package text implements transcript normalization and the character level tokenizer.
package text
