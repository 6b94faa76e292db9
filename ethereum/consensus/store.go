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
	"math/bits"
)

const (
	slotsPerEpoch                = 32
	epochsPerSyncCommitteePeriod = 256
	minSyncCommitteeParticipants = 1
)

// Store is the light client's tracked state (Altair's LightClientStore): a
// finalized header backed by a signed sync-committee majority, the
// committee that signs for the current period, the next period's
// committee once known, and the most recent (not necessarily finalized)
// header seen.
type Store struct {
	FinalizedHeader               Header
	CurrentSyncCommittee          SyncCommittee
	NextSyncCommittee             *SyncCommittee
	OptimisticHeader              Header
	PreviousMaxActiveParticipants uint64
	CurrentMaxActiveParticipants  uint64
}

// Clone returns a deep copy, used by tests asserting a failed update left
// the store untouched.
func (s *Store) Clone() *Store {
	clone := *s
	if s.NextSyncCommittee != nil {
		next := *s.NextSyncCommittee
		clone.NextSyncCommittee = &next
	}
	return &clone
}

func computeSyncCommitteePeriod(slot uint64) uint64 {
	return slot / (slotsPerEpoch * epochsPerSyncCommitteePeriod)
}

func countSetBits(bitfield []byte) int {
	n := 0
	for _, b := range bitfield {
		n += bits.OnesCount8(b)
	}
	return n
}

// VerifyBootstrap checks that bootstrap's sync committee is correctly
// rooted in its header's state root.
func VerifyBootstrap(bootstrap *Bootstrap) error {
	leaf := syncCommitteeRoot(&bootstrap.CurrentSyncCommittee)
	if !isValidMerkleBranch(leaf, bootstrap.CurrentSyncCommitteeBranch, currentSyncCommitteeGIndex, bootstrap.Header.StateRoot) {
		return fmt.Errorf("current sync committee branch does not verify against header state root")
	}
	return nil
}

// ApplyBootstrap initializes a Store from a verified bootstrap.
func ApplyBootstrap(bootstrap *Bootstrap) *Store {
	return &Store{
		FinalizedHeader:      bootstrap.Header,
		CurrentSyncCommittee: bootstrap.CurrentSyncCommittee,
		OptimisticHeader:     bootstrap.Header,
	}
}

// participantPubkeys returns the sync committee members marked present in
// bits, in committee order.
func participantPubkeys(committee *SyncCommittee, bitfield []byte) []PublicKey {
	var pks []PublicKey
	for i := range committee.Pubkeys {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if byteIdx >= len(bitfield) {
			break
		}
		if bitfield[byteIdx]&(1<<bitIdx) != 0 {
			pks = append(pks, committee.Pubkeys[i])
		}
	}
	return pks
}

// verifySyncAggregate runs the shared tail of verify_update and
// verify_finality_update: committee selection, signing-root computation,
// and the BLS aggregate check.
func verifySyncAggregate(store *Store, attestedHeader *Header, sa *SyncAggregate, signatureSlot uint64, genesisValidatorsRoot Bytes32, denebForkVersion uint32) error {
	participantCount := countSetBits(sa.SyncCommitteeBits)
	if participantCount < minSyncCommitteeParticipants {
		return fmt.Errorf("insufficient sync committee participants: %d", participantCount)
	}

	storePeriod := computeSyncCommitteePeriod(store.FinalizedHeader.Slot)
	signaturePeriod := computeSyncCommitteePeriod(signatureSlot)

	var committee *SyncCommittee
	switch signaturePeriod {
	case storePeriod:
		committee = &store.CurrentSyncCommittee
	case storePeriod + 1:
		if store.NextSyncCommittee == nil {
			return fmt.Errorf("signature period %d requires a next sync committee the store does not have", signaturePeriod)
		}
		committee = store.NextSyncCommittee
	default:
		return fmt.Errorf("signature period %d is not store period %d or %d", signaturePeriod, storePeriod, storePeriod+1)
	}

	participants := participantPubkeys(committee, sa.SyncCommitteeBits)

	domain := computeDomain(domainSyncCommittee, forkVersionBytes(denebForkVersion), genesisValidatorsRoot)
	signingRoot := computeSigningRoot(headerRoot(attestedHeader), domain)

	ok, err := verifySyncCommitteeSignature(participants, signingRoot, sa.SyncCommitteeSignature)
	if err != nil {
		return fmt.Errorf("verifying sync committee signature: %w", err)
	}
	if !ok {
		return fmt.Errorf("sync committee signature does not verify")
	}
	return nil
}

// applyMaxActiveParticipants raises CurrentMaxActiveParticipants to the
// participant count of an applied update when that count is higher.
// PreviousMaxActiveParticipants is never changed here: this store always
// applies the newest verified update and has no forced best-update
// selection that would read it.
func applyMaxActiveParticipants(store *Store, participantCount int) {
	count := uint64(participantCount)
	if count > store.CurrentMaxActiveParticipants {
		store.CurrentMaxActiveParticipants = count
	}
}

// VerifyUpdate checks a full update (next sync committee present) against
// store at expectedSlot, following the Altair/Deneb light-client update
// rules referenced by this client's governing design.
func VerifyUpdate(store *Store, update *Update, expectedSlot uint64, genesisValidatorsRoot Bytes32, denebForkVersion uint32) error {
	if update.NextSyncCommittee == nil {
		return fmt.Errorf("full update requires a next sync committee")
	}

	if !(expectedSlot >= update.SignatureSlot &&
		update.SignatureSlot > update.AttestedHeader.Slot &&
		update.AttestedHeader.Slot >= update.FinalizedHeader.Slot) {
		return fmt.Errorf("update violates slot ordering")
	}

	storePeriod := computeSyncCommitteePeriod(store.FinalizedHeader.Slot)
	signaturePeriod := computeSyncCommitteePeriod(update.SignatureSlot)
	if store.NextSyncCommittee != nil {
		if signaturePeriod != storePeriod && signaturePeriod != storePeriod+1 {
			return fmt.Errorf("signature period %d is not store period %d or %d", signaturePeriod, storePeriod, storePeriod+1)
		}
	} else if signaturePeriod != storePeriod {
		return fmt.Errorf("signature period %d does not match store period %d", signaturePeriod, storePeriod)
	}

	attestedPeriod := computeSyncCommitteePeriod(update.AttestedHeader.Slot)
	updateHasNextCommittee := store.NextSyncCommittee == nil && attestedPeriod == storePeriod
	if !(update.AttestedHeader.Slot > store.FinalizedHeader.Slot || updateHasNextCommittee) {
		return fmt.Errorf("update is not relevant: attested slot does not advance finality and introduces no new sync committee")
	}

	finalizedRoot := headerRoot(&update.FinalizedHeader)
	if !isValidMerkleBranch(finalizedRoot, update.FinalityBranch, finalizedRootGIndex, update.AttestedHeader.StateRoot) {
		return fmt.Errorf("finality branch does not verify against attested header state root")
	}

	if attestedPeriod == storePeriod && store.NextSyncCommittee != nil {
		if syncCommitteeRoot(update.NextSyncCommittee) != syncCommitteeRoot(store.NextSyncCommittee) {
			return fmt.Errorf("next sync committee conflicts with the committee the store already has for this period")
		}
	}
	nextCommitteeLeaf := syncCommitteeRoot(update.NextSyncCommittee)
	if !isValidMerkleBranch(nextCommitteeLeaf, update.NextSyncCommitteeBranch, nextSyncCommitteeGIndex, update.AttestedHeader.StateRoot) {
		return fmt.Errorf("next sync committee branch does not verify against attested header state root")
	}

	return verifySyncAggregate(store, &update.AttestedHeader, &update.SyncAggregate, update.SignatureSlot, genesisValidatorsRoot, denebForkVersion)
}

// ApplyUpdate mutates store with a verified full update: rotates in the
// next sync committee when the update's finalized header has entered the
// next period, and advances the finalized/optimistic headers.
func ApplyUpdate(store *Store, update *Update) {
	storePeriod := computeSyncCommitteePeriod(store.FinalizedHeader.Slot)
	attestedPeriod := computeSyncCommitteePeriod(update.AttestedHeader.Slot)
	finalizedPeriod := computeSyncCommitteePeriod(update.FinalizedHeader.Slot)

	if store.NextSyncCommittee == nil && update.NextSyncCommittee != nil && attestedPeriod == storePeriod {
		store.NextSyncCommittee = update.NextSyncCommittee
	} else if finalizedPeriod == storePeriod+1 {
		store.CurrentSyncCommittee = *store.NextSyncCommittee
		store.NextSyncCommittee = update.NextSyncCommittee
	}

	if update.FinalizedHeader.Slot > store.FinalizedHeader.Slot {
		store.FinalizedHeader = update.FinalizedHeader
	}
	if update.AttestedHeader.Slot > store.OptimisticHeader.Slot {
		store.OptimisticHeader = update.AttestedHeader
	}

	applyMaxActiveParticipants(store, countSetBits(update.SyncAggregate.SyncCommitteeBits))
}

// VerifyFinalityUpdate checks a finality-only update (no sync committee
// rotation) against store.
func VerifyFinalityUpdate(store *Store, update *Update, expectedSlot uint64, genesisValidatorsRoot Bytes32, denebForkVersion uint32) error {
	if !(expectedSlot >= update.SignatureSlot &&
		update.SignatureSlot > update.AttestedHeader.Slot &&
		update.AttestedHeader.Slot >= update.FinalizedHeader.Slot) {
		return fmt.Errorf("update violates slot ordering")
	}

	if !(update.AttestedHeader.Slot > store.FinalizedHeader.Slot) {
		return fmt.Errorf("update is not relevant: attested slot does not advance finality")
	}

	finalizedRoot := headerRoot(&update.FinalizedHeader)
	if !isValidMerkleBranch(finalizedRoot, update.FinalityBranch, finalizedRootGIndex, update.AttestedHeader.StateRoot) {
		return fmt.Errorf("finality branch does not verify against attested header state root")
	}

	return verifySyncAggregate(store, &update.AttestedHeader, &update.SyncAggregate, update.SignatureSlot, genesisValidatorsRoot, denebForkVersion)
}

// ApplyFinalityUpdate mutates store with a verified finality update.
func ApplyFinalityUpdate(store *Store, update *Update) {
	if update.FinalizedHeader.Slot > store.FinalizedHeader.Slot {
		store.FinalizedHeader = update.FinalizedHeader
	}
	if update.AttestedHeader.Slot > store.OptimisticHeader.Slot {
		store.OptimisticHeader = update.AttestedHeader
	}
	applyMaxActiveParticipants(store, countSetBits(update.SyncAggregate.SyncCommitteeBits))
}
