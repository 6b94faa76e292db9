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

// Package consensus implements the Altair/Deneb beacon-chain light-client
// protocol: bootstrap and update verification, Merkle-branch inclusion
// proofs, BLS sync-committee signature checks, and the fixed-layout binary
// encoding the sidechain persists light-client state in.
package consensus

import "github.com/ethereum/go-ethereum/common/hexutil"

// Bytes32 is a 32-byte Merkle root, state root, or validators root.
type Bytes32 [32]byte

// String renders a root the way go-ethereum's own hash types do, for use
// in log lines.
func (b Bytes32) String() string { return hexutil.Encode(b[:]) }

// PublicKey is a compressed BLS12-381 G1 point (48 bytes), the serialized
// form used throughout the beacon chain's SSZ containers.
type PublicKey [48]byte

// Signature is a compressed BLS12-381 G2 point (96 bytes).
type Signature [96]byte

// Header is a beacon block header, the unit the light client tracks.
type Header struct {
	Slot          uint64
	ProposerIndex uint64
	ParentRoot    Bytes32
	StateRoot     Bytes32
	BodyRoot      Bytes32
}

// SyncCommittee is the Altair committee of 512 validators whose aggregate
// BLS signature attests to beacon headers for the light-client protocol.
type SyncCommittee struct {
	Pubkeys         [512]PublicKey
	AggregatePubkey PublicKey
}

// SyncAggregate is the bitfield of participating sync-committee members and
// their aggregate signature over a signing root.
type SyncAggregate struct {
	// SyncCommitteeBits is the SSZ bitvector serialization (64 bytes,
	// packing 512 bits) identifying which committee members signed.
	SyncCommitteeBits      []byte
	SyncCommitteeSignature Signature
}

// Bootstrap is the signed initial state a light client starts tracking
// from: a trusted header plus the sync committee active at that header and
// its Merkle inclusion proof against the header's state root.
type Bootstrap struct {
	Header                     Header
	CurrentSyncCommittee       SyncCommittee
	CurrentSyncCommitteeBranch []Bytes32
}

// Update is a single light-client protocol message. It is a full update
// when NextSyncCommittee is non-nil, otherwise a finality-only update.
type Update struct {
	AttestedHeader          Header
	NextSyncCommittee       *SyncCommittee
	NextSyncCommitteeBranch []Bytes32
	FinalizedHeader         Header
	FinalityBranch          []Bytes32
	SyncAggregate           SyncAggregate
	SignatureSlot           uint64
}

// Network carries the chain parameters needed to compute fork-version
// domains and expected slots. Only a single active fork (Deneb) is
// modeled, matching how this light client's governing design treats fork
// schedules: the chain it tracks is always past the Deneb fork.
type Network struct {
	GenesisValidatorsRoot Bytes32
	DenebForkVersion      uint32
	GenesisTime           uint64
}

// EthereumMainnet returns the network parameters for Ethereum mainnet.
func EthereumMainnet() Network {
	return Network{
		GenesisValidatorsRoot: Bytes32{
			0x4b, 0x36, 0x3d, 0xb9, 0x4e, 0x28, 0x61, 0x20,
			0xd7, 0x6e, 0xb9, 0x05, 0x34, 0x0f, 0xdd, 0x4e,
			0x54, 0xbf, 0xe9, 0xf0, 0x6b, 0xf3, 0x3f, 0xf6,
			0xcf, 0x5a, 0xd2, 0x7f, 0x51, 0x1b, 0xfe, 0x95,
		},
		DenebForkVersion: 4,
		GenesisTime:      1606824023,
	}
}
