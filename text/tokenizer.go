package text

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrVocabularyMismatch is returned when an imported vocabulary is not a valid mapping.
var ErrVocabularyMismatch = errors.New("vocabulary mismatch")

// Pad is the token id used for padding. It never maps to a character.
const Pad = 0

// Tokenizer maps characters to contiguous ids starting at 1.
type Tokenizer struct {
	index map[rune]int
	chars []rune // chars[id-1]
}

// NewTokenizer creates an empty tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{index: make(map[rune]int)}
}

// TokenizerFromVocabulary rebuilds a tokenizer from a vocabulary previously
// returned by Vocabulary.
func TokenizerFromVocabulary(vocab []rune) (*Tokenizer, error) {
	t := NewTokenizer()
	for i, r := range vocab {
		if _, dup := t.index[r]; dup {
			return nil, fmt.Errorf("%w: duplicate character %q", ErrVocabularyMismatch, r)
		}
		t.index[r] = i + 1
	}
	t.chars = append([]rune(nil), vocab...)
	return t, nil
}

// Fit builds the vocabulary over all texts in one pass. Ids are ordered by
// descending character count, ties keep the order of first appearance.
// A previous vocabulary is discarded.
func (t *Tokenizer) Fit(texts []string) {
	counts := make(map[rune]int)
	var order []rune
	for _, s := range texts {
		for _, r := range strings.ToLower(s) {
			if _, ok := counts[r]; !ok {
				order = append(order, r)
			}
			counts[r]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	t.index = make(map[rune]int, len(order))
	for i, r := range order {
		t.index[r] = i + 1
	}
	t.chars = order
}

// Encode converts s into ids. Characters unseen during Fit are dropped.
func (t *Tokenizer) Encode(s string) (ret []int) {
	for _, r := range strings.ToLower(s) {
		if id, ok := t.index[r]; ok {
			ret = append(ret, id)
		}
	}
	return
}

// Decode converts ids back into a string, skipping padding and unknown ids.
func (t *Tokenizer) Decode(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		if id <= Pad || id > len(t.chars) {
			continue
		}
		b.WriteRune(t.chars[id-1])
	}
	return b.String()
}

// VocabSize is the number of ids including the padding id.
func (t *Tokenizer) VocabSize() int {
	return len(t.chars) + 1
}

// Vocabulary returns the characters in id order (id 1 first).
func (t *Tokenizer) Vocabulary() []rune {
	return append([]rune(nil), t.chars...)
}

// EncodeAll encodes every text with t.
func EncodeAll(t *Tokenizer, texts []string) [][]int {
	ret := make([][]int, len(texts))
	for i, s := range texts {
		ret[i] = t.Encode(s)
	}
	return ret
}
