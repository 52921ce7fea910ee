// Package simhash fingerprints listing pages by the set of device links
// they carry, so that a site answering every out-of-range page number with
// its last page can be recognised.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Fingerprint computes a 64-bit SimHash over a set of tokens. Duplicate
// tokens count once and order does not matter.
func Fingerprint(tokens []string) uint64 {
	var vector [64]int
	seen := make(map[string]struct{}, len(tokens))

	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}

		h := fnv.New64a()
		h.Write([]byte(tok))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}
	if len(seen) == 0 {
		return 0
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// FingerprintText fingerprints the words of text.
func FingerprintText(text string) uint64 {
	return Fingerprint(strings.Fields(text))
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
