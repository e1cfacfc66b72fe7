// Package bucketing provides the deterministic string-to-bucket mapping that
// every evaluator in the platform shares. The same (key, userID) pair must
// hash to the identical bucket in the browser SDK, the mobile SDKs, and this
// server, otherwise users flip-flop between flag sides and experiment
// variations on every surface they touch. Do not change the algorithm, the
// seed, or the delimiter without a coordinated release of all SDKs.
package bucketing

import "unicode/utf16"

// HashString hashes s with a djb2 XOR variant (seed 5381) followed by the
// MurmurHash3 finalizer for avalanche. The input is consumed as UTF-16 code
// units, surrogate pairs included, to match the JavaScript SDKs which hash
// by charCodeAt. All arithmetic wraps at 32 bits.
func HashString(s string) uint32 {
	h := uint32(5381)
	for _, r := range s {
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			h = ((h << 5) + h) ^ uint32(hi)
			h = ((h << 5) + h) ^ uint32(lo)
			continue
		}
		h = ((h << 5) + h) ^ uint32(r)
	}

	// MurmurHash3 fmix32
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// BucketPercentage maps a (key, userID) pair to a percentage in
// [0.00, 99.99] with two decimal places of resolution. The key scopes the
// bucket namespace: the same user lands in unrelated buckets for different
// flags and experiments.
func BucketPercentage(key, userID string) float64 {
	return float64(HashString(key+":"+userID)%10000) / 100
}
