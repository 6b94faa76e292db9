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

import "encoding/binary"

// domainSyncCommittee is DOMAIN_SYNC_COMMITTEE, the literal 4-byte domain
// type tag from the Altair specification (not a little-endian encoding of
// an integer — the byte sequence itself is the constant).
var domainSyncCommittee = [4]byte{0x07, 0x00, 0x00, 0x00}

// forkVersionBytes renders Network.DenebForkVersion the way this light
// client's Update wire format expects it: little-endian encoded into a
// 4-byte fork version.
func forkVersionBytes(v uint32) [4]byte {
	var out [4]byte
	binary.LittleEndian.PutUint32(out[:], v)
	return out
}

// computeForkDataRoot computes hash_tree_root(ForkData{current_version,
// genesis_validators_root}).
func computeForkDataRoot(forkVersion [4]byte, genesisValidatorsRoot Bytes32) Bytes32 {
	var versionLeaf Bytes32
	copy(versionLeaf[:4], forkVersion[:])
	return sha256Pair(versionLeaf, genesisValidatorsRoot)
}

// computeDomain computes compute_domain(domainType, forkVersion,
// genesisValidatorsRoot): the domain type followed by the top 28 bytes of
// the fork data root.
func computeDomain(domainType [4]byte, forkVersion [4]byte, genesisValidatorsRoot Bytes32) Bytes32 {
	forkDataRoot := computeForkDataRoot(forkVersion, genesisValidatorsRoot)
	var domain Bytes32
	copy(domain[:4], domainType[:])
	copy(domain[4:], forkDataRoot[:28])
	return domain
}

// computeSigningRoot computes hash_tree_root(SigningData{objectRoot,
// domain}).
func computeSigningRoot(objectRoot Bytes32, domain Bytes32) Bytes32 {
	return sha256Pair(objectRoot, domain)
}
