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
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

// blsDomainSeparationTag is the ciphersuite eth2 signs sync-committee
// messages under: the proof-of-possession variant, which lets the
// aggregate-signature check skip an explicit rogue-key proof because
// validator registration already enforced one.
const blsDomainSeparationTag = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSZ_RO_POP_"

// verifySyncCommitteeSignature checks that signature is a valid BLS
// aggregate signature by every key in participants over message.
func verifySyncCommitteeSignature(participants []PublicKey, message Bytes32, signature Signature) (bool, error) {
	if len(participants) == 0 {
		return false, fmt.Errorf("no participating signatories")
	}

	pubkeys := make([]*blst.P1Affine, len(participants))
	for i, pk := range participants {
		p := new(blst.P1Affine).Uncompress(pk[:])
		if p == nil {
			return false, fmt.Errorf("public key %d: invalid encoding", i)
		}
		if !p.KeyValidate() {
			return false, fmt.Errorf("public key %d: failed subgroup check", i)
		}
		pubkeys[i] = p
	}

	sig := new(blst.P2Affine).Uncompress(signature[:])
	if sig == nil {
		return false, fmt.Errorf("invalid signature encoding")
	}
	if !sig.SigValidate(false) {
		return false, fmt.Errorf("signature fails subgroup check")
	}

	return sig.FastAggregateVerify(false, pubkeys, message[:], []byte(blsDomainSeparationTag)), nil
}
