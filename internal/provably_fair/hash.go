package provably_fair

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestLength is the length of a hex encoded SHA-256 digest.
const DigestLength = sha256.Size * 2

// Digest returns the lowercase hex SHA-256 digest of input.
//
// crypto/sha256 cannot fail on in-memory input, so there is no error path here; platform level
// hashing failures surface as panics from the runtime and are fatal to the process.
func Digest(input []byte) string {
	sum := sha256.Sum256(input)

	return hex.EncodeToString(sum[:])
}

// Commit seals a server seed. The result is published before the seed is ever used.
func Commit(serverSeed string) string {
	return Digest([]byte(serverSeed))
}
