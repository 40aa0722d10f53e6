// Package digest provides the named hash algorithms used to identify blocks
// and transactions on the ledger.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"
)

// Set of supported algorithm names.
const (
	MD5       = "md5"
	SHA1      = "sha1"
	SHA256    = "sha256"
	SHA512    = "sha512"
	RIPEMD160 = "ripemd160"
	Keccak256 = "keccak256"
)

// Default is the algorithm used for block and transaction identity.
const Default = Keccak256

// algorithms maps a name to the constructor of a fresh hash state.
var algorithms = map[string]func() hash.Hash{
	MD5:       md5.New,
	SHA1:      sha1.New,
	SHA256:    sha256.New,
	SHA512:    sha512.New,
	RIPEMD160: ripemd160.New,
	Keccak256: func() hash.Hash { return crypto.NewKeccakState() },
}

// Provider represents the behavior of a hash capability the ledger calls
// through. Implementations must be stateless between calls.
type Provider interface {
	Name() string
	Digest(data ...[]byte) []byte
	Size() int
}

// =============================================================================

// Hasher is a Provider backed by one of the supported algorithms.
type Hasher struct {
	name string
	fn   func() hash.Hash
	size int
}

// New constructs a Hasher for the named algorithm.
func New(name string) (Hasher, error) {
	fn, exists := algorithms[strings.ToLower(name)]
	if !exists {
		return Hasher{}, fmt.Errorf("unsupported hash algorithm %q, supported %v", name, Supported())
	}

	h := Hasher{
		name: strings.ToLower(name),
		fn:   fn,
		size: fn().Size(),
	}

	return h, nil
}

// MustNew is like New but panics when the algorithm is not supported. It
// should only be used with the exported algorithm constants.
func MustNew(name string) Hasher {
	h, err := New(name)
	if err != nil {
		panic(err)
	}
	return h
}

// Name returns the algorithm name.
func (h Hasher) Name() string {
	return h.name
}

// Digest hashes the concatenation of the specified byte slices. A new hash
// state is constructed for every call.
func (h Hasher) Digest(data ...[]byte) []byte {
	st := h.fn()
	for _, b := range data {
		st.Write(b)
	}
	return st.Sum(nil)
}

// Size returns the number of bytes produced by Digest.
func (h Hasher) Size() int {
	return h.size
}

// HexLength returns the number of characters in a hex encoded digest.
func (h Hasher) HexLength() int {
	return h.size * 2
}

// HexDigest returns the hex encoding of the digest.
func (h Hasher) HexDigest(data ...[]byte) string {
	return hex.EncodeToString(h.Digest(data...))
}

// =============================================================================

// Supported returns the sorted list of algorithm names.
func Supported() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Hex digests the data with the provider and hex encodes the result.
func Hex(p Provider, data ...[]byte) string {
	return hex.EncodeToString(p.Digest(data...))
}
