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
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeHeader writes the fixed 112-byte little-endian encoding of h.
func EncodeHeader(w io.Writer, h *Header) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h.Slot)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf[:], h.ProposerIndex)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.ParentRoot[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.StateRoot[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.BodyRoot[:]); err != nil {
		return err
	}
	return nil
}

// DecodeHeader reads the encoding written by EncodeHeader.
func DecodeHeader(r io.Reader) (Header, error) {
	var h Header
	var buf [8]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return h, fmt.Errorf("reading slot: %w", err)
	}
	h.Slot = binary.LittleEndian.Uint64(buf[:])

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return h, fmt.Errorf("reading proposer index: %w", err)
	}
	h.ProposerIndex = binary.LittleEndian.Uint64(buf[:])

	if _, err := io.ReadFull(r, h.ParentRoot[:]); err != nil {
		return h, fmt.Errorf("reading parent root: %w", err)
	}
	if _, err := io.ReadFull(r, h.StateRoot[:]); err != nil {
		return h, fmt.Errorf("reading state root: %w", err)
	}
	if _, err := io.ReadFull(r, h.BodyRoot[:]); err != nil {
		return h, fmt.Errorf("reading body root: %w", err)
	}
	return h, nil
}

// EncodeSyncCommittee writes the fixed 24,624-byte encoding of sc: 512
// pubkeys followed by the aggregate pubkey.
func EncodeSyncCommittee(w io.Writer, sc *SyncCommittee) error {
	for i := range sc.Pubkeys {
		if _, err := w.Write(sc.Pubkeys[i][:]); err != nil {
			return err
		}
	}
	_, err := w.Write(sc.AggregatePubkey[:])
	return err
}

// DecodeSyncCommittee reads the encoding written by EncodeSyncCommittee.
func DecodeSyncCommittee(r io.Reader) (SyncCommittee, error) {
	var sc SyncCommittee
	for i := range sc.Pubkeys {
		if _, err := io.ReadFull(r, sc.Pubkeys[i][:]); err != nil {
			return sc, fmt.Errorf("reading pubkey %d: %w", i, err)
		}
	}
	if _, err := io.ReadFull(r, sc.AggregatePubkey[:]); err != nil {
		return sc, fmt.Errorf("reading aggregate pubkey: %w", err)
	}
	return sc, nil
}

// EncodeSyncAggregate writes sa's length-prefixed bitfield followed by the
// fixed 96-byte signature.
func EncodeSyncAggregate(w io.Writer, sa *SyncAggregate) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(sa.SyncCommitteeBits)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(sa.SyncCommitteeBits); err != nil {
		return err
	}
	_, err := w.Write(sa.SyncCommitteeSignature[:])
	return err
}

// DecodeSyncAggregate reads the encoding written by EncodeSyncAggregate.
func DecodeSyncAggregate(r io.Reader) (SyncAggregate, error) {
	var sa SyncAggregate
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return sa, fmt.Errorf("reading bitfield length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	sa.SyncCommitteeBits = make([]byte, n)
	if _, err := io.ReadFull(r, sa.SyncCommitteeBits); err != nil {
		return sa, fmt.Errorf("reading bitfield: %w", err)
	}
	if _, err := io.ReadFull(r, sa.SyncCommitteeSignature[:]); err != nil {
		return sa, fmt.Errorf("reading signature: %w", err)
	}
	return sa, nil
}

// EncodeNetwork writes the fixed 44-byte encoding of n.
func EncodeNetwork(w io.Writer, n *Network) error {
	if _, err := w.Write(n.GenesisValidatorsRoot[:]); err != nil {
		return err
	}
	var buf4 [4]byte
	binary.LittleEndian.PutUint32(buf4[:], n.DenebForkVersion)
	if _, err := w.Write(buf4[:]); err != nil {
		return err
	}
	var buf8 [8]byte
	binary.LittleEndian.PutUint64(buf8[:], n.GenesisTime)
	_, err := w.Write(buf8[:])
	return err
}

// DecodeNetwork reads the encoding written by EncodeNetwork.
func DecodeNetwork(r io.Reader) (Network, error) {
	var n Network
	if _, err := io.ReadFull(r, n.GenesisValidatorsRoot[:]); err != nil {
		return n, fmt.Errorf("reading genesis validators root: %w", err)
	}
	var buf4 [4]byte
	if _, err := io.ReadFull(r, buf4[:]); err != nil {
		return n, fmt.Errorf("reading deneb fork version: %w", err)
	}
	n.DenebForkVersion = binary.LittleEndian.Uint32(buf4[:])
	var buf8 [8]byte
	if _, err := io.ReadFull(r, buf8[:]); err != nil {
		return n, fmt.Errorf("reading genesis time: %w", err)
	}
	n.GenesisTime = binary.LittleEndian.Uint64(buf8[:])
	return n, nil
}

// encodeOptionTag/decodeOptionTag implement the option tag shared by
// every optional field in the format: 0x00 absent, 0x01 present.
func encodeOptionTag(w io.Writer, present bool) error {
	tag := byte(0x00)
	if present {
		tag = 0x01
	}
	_, err := w.Write([]byte{tag})
	return err
}

func decodeOptionTag(r io.Reader) (bool, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return false, fmt.Errorf("reading option tag: %w", err)
	}
	switch tag[0] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("invalid option tag %#x", tag[0])
	}
}

// EncodeStore writes the LightClientStore persistence encoding:
// finalized_header || current_sync_committee || option<next_sync_committee>
// || optimistic_header || previous_max_active_participants:u64 ||
// current_max_active_participants:u64 || network.
func EncodeStore(w io.Writer, s *Store, network *Network) error {
	if err := EncodeHeader(w, &s.FinalizedHeader); err != nil {
		return fmt.Errorf("encoding finalized header: %w", err)
	}
	if err := EncodeSyncCommittee(w, &s.CurrentSyncCommittee); err != nil {
		return fmt.Errorf("encoding current sync committee: %w", err)
	}
	if err := encodeOptionTag(w, s.NextSyncCommittee != nil); err != nil {
		return err
	}
	if s.NextSyncCommittee != nil {
		if err := EncodeSyncCommittee(w, s.NextSyncCommittee); err != nil {
			return fmt.Errorf("encoding next sync committee: %w", err)
		}
	}
	if err := EncodeHeader(w, &s.OptimisticHeader); err != nil {
		return fmt.Errorf("encoding optimistic header: %w", err)
	}
	var buf8 [8]byte
	binary.LittleEndian.PutUint64(buf8[:], s.PreviousMaxActiveParticipants)
	if _, err := w.Write(buf8[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf8[:], s.CurrentMaxActiveParticipants)
	if _, err := w.Write(buf8[:]); err != nil {
		return err
	}
	return EncodeNetwork(w, network)
}

// DecodeStore reads the encoding written by EncodeStore, returning the
// store and the network it was persisted alongside.
func DecodeStore(r io.Reader) (*Store, Network, error) {
	var network Network

	finalizedHeader, err := DecodeHeader(r)
	if err != nil {
		return nil, network, fmt.Errorf("decoding finalized header: %w", err)
	}
	currentSyncCommittee, err := DecodeSyncCommittee(r)
	if err != nil {
		return nil, network, fmt.Errorf("decoding current sync committee: %w", err)
	}

	hasNext, err := decodeOptionTag(r)
	if err != nil {
		return nil, network, err
	}
	var nextSyncCommittee *SyncCommittee
	if hasNext {
		sc, err := DecodeSyncCommittee(r)
		if err != nil {
			return nil, network, fmt.Errorf("decoding next sync committee: %w", err)
		}
		nextSyncCommittee = &sc
	}

	optimisticHeader, err := DecodeHeader(r)
	if err != nil {
		return nil, network, fmt.Errorf("decoding optimistic header: %w", err)
	}

	var buf8 [8]byte
	if _, err := io.ReadFull(r, buf8[:]); err != nil {
		return nil, network, fmt.Errorf("decoding previous max active participants: %w", err)
	}
	previousMax := binary.LittleEndian.Uint64(buf8[:])
	if _, err := io.ReadFull(r, buf8[:]); err != nil {
		return nil, network, fmt.Errorf("decoding current max active participants: %w", err)
	}
	currentMax := binary.LittleEndian.Uint64(buf8[:])

	network, err = DecodeNetwork(r)
	if err != nil {
		return nil, network, fmt.Errorf("decoding network: %w", err)
	}

	return &Store{
		FinalizedHeader:               finalizedHeader,
		CurrentSyncCommittee:          currentSyncCommittee,
		NextSyncCommittee:             nextSyncCommittee,
		OptimisticHeader:              optimisticHeader,
		PreviousMaxActiveParticipants: previousMax,
		CurrentMaxActiveParticipants:  currentMax,
	}, network, nil
}
