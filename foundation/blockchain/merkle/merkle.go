// Package merkle computes merkle roots and inclusion proofs over an ordered
// set of values. It's used to produce the transactions root of a block.
package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
)

// Set of proof directions. Left means the proof hash is concatenated first.
const (
	Left  = 0
	Right = 1
)

// ErrEmpty is returned when a tree is constructed with no values.
var ErrEmpty = errors.New("cannot construct tree with no content")

// Tree represents a merkle tree over values of some type T. Each level of
// the tree is kept as a slice of hashes with the leaf level at index 0.
type Tree[T any] struct {
	values []T
	levels [][][]byte
	leaf   func(T) ([]byte, error)
	digest digest.Provider
}

// WithDigest is used to change the default digest of sha256 when
// constructing a new tree.
func WithDigest[T any](p digest.Provider) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.digest = p
	}
}

// NewTree constructs a tree from the values. The leaf function provides the
// bytes that are hashed to form each leaf.
func NewTree[T any](values []T, leaf func(T) ([]byte, error), options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		leaf:   leaf,
		digest: digest.MustNew(digest.SHA256),
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Root returns the root hash of the tree.
func (t *Tree[T]) Root() []byte {
	top := t.levels[len(t.levels)-1]
	return append([]byte(nil), top[0]...)
}

// RootHex returns the hex encoding of the root hash.
func (t *Tree[T]) RootHex() string {
	return hex.EncodeToString(t.Root())
}

// Values returns a copy of the values in the tree.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.values))
	copy(values, t.values)
	return values
}

// Proof returns the sibling hashes from the leaf at the specified index up
// to the root, along with the direction each one is concatenated.
func (t *Tree[T]) Proof(index int) ([][]byte, []int, error) {
	if index < 0 || index >= len(t.values) {
		return nil, nil, fmt.Errorf("index %d out of range, tree has %d values", index, len(t.values))
	}

	var proof [][]byte
	var order []int

	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}

		proof = append(proof, level[sibling])
		if sibling < index {
			order = append(order, Left)
		} else {
			order = append(order, Right)
		}

		index /= 2
	}

	return proof, order, nil
}

// Verify recomputes every level from the values and checks the result
// matches the stored root.
func (t *Tree[T]) Verify() error {
	other := Tree[T]{leaf: t.leaf, digest: t.digest}
	if err := other.generate(t.values); err != nil {
		return err
	}

	if !bytes.Equal(other.Root(), t.Root()) {
		return errors.New("root hash invalid")
	}

	return nil
}

// =============================================================================

// VerifyProof checks that the leaf bytes combined with the proof produce
// the specified root.
func VerifyProof(p digest.Provider, root []byte, leafData []byte, proof [][]byte, order []int) error {
	if len(proof) != len(order) {
		return errors.New("proof and order length mismatch")
	}

	hash := p.Digest(leafData)
	for i := range proof {
		switch order[i] {
		case Left:
			hash = p.Digest(proof[i], hash)
		default:
			hash = p.Digest(hash, proof[i])
		}
	}

	if !bytes.Equal(hash, root) {
		return errors.New("proof does not lead to the root")
	}

	return nil
}

// =============================================================================

// generate builds every level of the tree. An odd node at any level is
// paired with itself.
func (t *Tree[T]) generate(values []T) error {
	if len(values) == 0 {
		return ErrEmpty
	}

	level := make([][]byte, 0, len(values))
	for i, value := range values {
		data, err := t.leaf(value)
		if err != nil {
			return fmt.Errorf("leaf %d: %w", i, err)
		}
		level = append(level, t.digest.Digest(data))
	}

	levels := [][][]byte{level}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := i + 1
			if right == len(level) {
				right = i
			}
			next = append(next, t.digest.Digest(level[i], level[right]))
		}

		levels = append(levels, next)
		level = next
	}

	t.values = append([]T(nil), values...)
	t.levels = levels

	return nil
}
