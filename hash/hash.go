package hash

import "github.com/zeebo/blake3"

// Size of the digest in bytes.
const Size = 32

// New returns a fresh blake3 hasher.
var New = blake3.New

// Sum returns the blake3 digest of all chunks.
func Sum(chunks ...[]byte) (rst [Size]byte) {
	hh := GetHasher()
	defer PutHasher(hh)
	for _, chunk := range chunks {
		hh.Write(chunk)
	}
	hh.Sum(rst[:0])
	return rst
}
