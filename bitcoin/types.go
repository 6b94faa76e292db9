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

package bitcoin

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// addressHRP is the bech32 human-readable part used to encode sidechain
// addresses. It has nothing to do with any Bitcoin network; the sidechain
// happens to reuse bech32 for its own account addresses.
const addressHRP = "nomic"

// Address is the sidechain's account address: a bech32-encoded 20-byte hash.
type Address [20]byte

// String renders the canonical text form used by the watch-script store.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		// a is always exactly 20 bytes; ConvertBits cannot fail on a
		// fixed-size, already-byte-aligned input.
		panic(err)
	}
	s, err := bech32.Encode(addressHRP, conv)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseAddress decodes the canonical text form back into an Address.
func ParseAddress(s string) (Address, error) {
	var addr Address

	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if hrp != addressHRP {
		return addr, fmt.Errorf("invalid address %q: unexpected prefix %q", s, hrp)
	}

	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(conv) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: expected %d bytes, got %d", s, len(addr), len(conv))
	}
	copy(addr[:], conv)
	return addr, nil
}

// SignatoryKey is a single signer in a SignatorySet, weighted by voting
// power the way the sidechain's validator set is.
type SignatoryKey struct {
	PubKey *btcec.PublicKey
	Voting uint64
}

// SignatorySet is a versioned threshold-signer group. Addresses derived
// against the same sigset always produce the same output script; addresses
// derived against different sigsets (even for the same destination address)
// produce different scripts, which is what lets WatchedScripts disambiguate
// them.
type SignatorySet struct {
	SigsetIndex    uint32
	Keys           []SignatoryKey
	DepositTimeout uint64 // UNIX seconds
}

// Index returns the monotone signatory-set index.
func (s *SignatorySet) Index() uint32 { return s.SigsetIndex }

// Timeout returns the UNIX-second deadline after which deposits against
// this signatory set are no longer honored.
func (s *SignatorySet) Timeout() uint64 { return s.DepositTimeout }

// Clone makes a deep copy, matching the "cloned on first insert" ownership
// rule: WatchedScripts never aliases a caller's SignatorySet.
func (s *SignatorySet) Clone() *SignatorySet {
	clone := &SignatorySet{
		SigsetIndex:    s.SigsetIndex,
		DepositTimeout: s.DepositTimeout,
		Keys:           make([]SignatoryKey, len(s.Keys)),
	}
	copy(clone.Keys, s.Keys)
	return clone
}

// OutputScript derives the watched Bitcoin output script for a destination
// address under this signatory set: a threshold P2WSH script over the
// sigset's ordered public keys, salted with the destination address and
// the sigset index so that every depositor gets a distinct script even
// against the same sigset, and the same destination gets a distinct
// script under each sigset index.
func (s *SignatorySet) OutputScript(dest Address) ([]byte, error) {
	if len(s.Keys) == 0 {
		return nil, fmt.Errorf("signatory set %d has no keys", s.SigsetIndex)
	}

	redeem, err := s.redeemScript(dest)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder()
	h := sha256.Sum256(redeem)
	builder.AddOp(txscript.OP_0)
	builder.AddData(h[:])
	return builder.Script()
}

// redeemScript builds the underlying multisig script, requiring votes
// representing more than 2/3 of total voting power, and binding the
// destination address and sigset index into the script so distinct
// depositors and distinct sigsets never collide on the same watched script.
func (s *SignatorySet) redeemScript(dest Address) ([]byte, error) {
	keys := make([]SignatoryKey, len(s.Keys))
	copy(keys, s.Keys)
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].PubKey.SerializeCompressed(), keys[j].PubKey.SerializeCompressed()) < 0
	})

	var total uint64
	pubKeys := make([]*btcec.PublicKey, len(keys))
	for i, k := range keys {
		total += k.Voting
		pubKeys[i] = k.PubKey
	}
	threshold := total*2/3 + 1

	builder := txscript.NewScriptBuilder()
	builder.AddData(dest[:])
	builder.AddOp(txscript.OP_DROP)
	builder.AddInt64(int64(s.SigsetIndex))
	builder.AddOp(txscript.OP_DROP)
	builder.AddInt64(int64(threshold))
	for _, pk := range pubKeys {
		builder.AddData(pk.SerializeCompressed())
	}
	builder.AddInt64(int64(len(pubKeys)))
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	return builder.Script()
}

// WrappedHeader pairs a Bitcoin block header with its height, the unit the
// sidechain's header chain accepts and validates.
type WrappedHeader struct {
	wire.BlockHeader
	Height uint32
}

// OutputMatch is a candidate deposit detected while scanning a block: the
// signatory set the output was derived from, the output's index in the
// transaction, and the destination address it pays out to.
type OutputMatch struct {
	SigsetIndex uint32
	Vout        uint32
	Dest        Address
}
