package hash

import (
	"github.com/spaolacci/murmur3"
)

// Hash returns the hash value of data. Used by the bloom filter to derive
// bit locations.
func Hash(data []byte) uint64 {
	return murmur3.Sum64(data)
}
