package text

import "strings"

// Normalize lowercases s and replaces every period with a space.
// Other punctuation is kept as is.
func Normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), ".", " ")
}

// NormalizeAll normalizes every transcript, in order.
func NormalizeAll(texts []string) (ret []string) {
	ret = make([]string, len(texts))
	for i, s := range texts {
		ret[i] = Normalize(s)
	}
	return
}
