// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package consensus

import (
	"crypto/sha256"
	"encoding/binary"
)

// sha256Pair implements the SSZ merkleization step: the parent of two
// sibling chunks is the SHA-256 hash of their concatenation.
func sha256Pair(left, right Bytes32) Bytes32 {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return sha256.Sum256(buf[:])
}

// nextPowerOfTwo returns the smallest power of two >= n (n >= 1).
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// merkleize folds leaves into a single SSZ Merkle root, zero-padding up to
// the next power of two.
func merkleize(leaves []Bytes32) Bytes32 {
	if len(leaves) == 0 {
		return Bytes32{}
	}

	n := nextPowerOfTwo(len(leaves))
	layer := make([]Bytes32, n)
	copy(layer, leaves)

	for n > 1 {
		next := make([]Bytes32, n/2)
		for i := 0; i < n/2; i++ {
			next[i] = sha256Pair(layer[2*i], layer[2*i+1])
		}
		layer = next
		n /= 2
	}
	return layer[0]
}

// uint64Leaf serializes a basic uint64 field the way SSZ defines
// hash_tree_root for basic types: little-endian bytes, right-padded with
// zeros to a full chunk. It is not hashed further.
func uint64Leaf(v uint64) Bytes32 {
	var leaf Bytes32
	binary.LittleEndian.PutUint64(leaf[:8], v)
	return leaf
}

// pubkeyRoot computes hash_tree_root of a BLSPubkey (Vector[byte, 48]):
// pack the 48 bytes into two 32-byte chunks (the second zero-padded) and
// merkleize.
func pubkeyRoot(pk PublicKey) Bytes32 {
	var chunk0, chunk1 Bytes32
	copy(chunk0[:], pk[:32])
	copy(chunk1[:], pk[32:48])
	return sha256Pair(chunk0, chunk1)
}

// syncCommitteeRoot computes hash_tree_root(SyncCommittee): the container
// has two fields, pubkeys (a Vector[BLSPubkey, 512]) and aggregate_pubkey.
func syncCommitteeRoot(sc *SyncCommittee) Bytes32 {
	pubkeyLeaves := make([]Bytes32, len(sc.Pubkeys))
	for i, pk := range sc.Pubkeys {
		pubkeyLeaves[i] = pubkeyRoot(pk)
	}
	pubkeysRoot := merkleize(pubkeyLeaves)
	aggregateRoot := pubkeyRoot(sc.AggregatePubkey)
	return sha256Pair(pubkeysRoot, aggregateRoot)
}

// headerRoot computes hash_tree_root(BeaconBlockHeader): five fields,
// padded to eight leaves.
func headerRoot(h *Header) Bytes32 {
	leaves := []Bytes32{
		uint64Leaf(h.Slot),
		uint64Leaf(h.ProposerIndex),
		h.ParentRoot,
		h.StateRoot,
		h.BodyRoot,
	}
	return merkleize(leaves)
}
