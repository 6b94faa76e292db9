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

// Package ethereum implements the sidechain's Ethereum light client: a
// beacon-chain state machine driven by a bootstrap and a stream of
// sync-committee updates (see the consensus subpackage for the underlying
// Altair/Deneb protocol).
package ethereum

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/nnsW3/nomic/ethereum/consensus"
)

// LightClient tracks Ethereum's finalized beacon chain head from a
// bootstrap plus a sequence of verified updates. A failed Update call
// leaves Slot and StateRoot unchanged.
type LightClient struct {
	store   *consensus.Store
	network consensus.Network
}

// New constructs a LightClient from a verified bootstrap. Verification
// failure leaves no observable state: the returned error is the only
// effect.
func New(bootstrap *consensus.Bootstrap, network consensus.Network) (*LightClient, error) {
	if err := consensus.VerifyBootstrap(bootstrap); err != nil {
		return nil, fmt.Errorf("invalid bootstrap: %w", err)
	}

	store := consensus.ApplyBootstrap(bootstrap)
	log.Info("initialized ethereum light client",
		"slot", store.FinalizedHeader.Slot,
		"state_root", store.FinalizedHeader.StateRoot,
		"genesis_time", network.GenesisTime,
	)

	return &LightClient{store: store, network: network}, nil
}

// NewFromStore resumes a LightClient from a decoded store, as loaded by
// DecodeLightClient.
func NewFromStore(store *consensus.Store, network consensus.Network) *LightClient {
	return &LightClient{store: store, network: network}
}

// Update applies a single light-client protocol message at nowSeconds,
// dispatching to the full-update or finality-update path depending on
// whether a next sync committee is present. On verification failure the
// store is left exactly as it was.
func (c *LightClient) Update(update *consensus.Update, nowSeconds uint64) error {
	expectedSlot := (nowSeconds - c.network.GenesisTime) / 12

	if update.NextSyncCommittee != nil {
		if err := consensus.VerifyUpdate(c.store, update, expectedSlot, c.network.GenesisValidatorsRoot, c.network.DenebForkVersion); err != nil {
			return fmt.Errorf("invalid update: %w", err)
		}
		consensus.ApplyUpdate(c.store, update)
		log.Info("applied ethereum light client update",
			"finalized_slot", c.store.FinalizedHeader.Slot,
			"state_root", c.store.FinalizedHeader.StateRoot,
			"rotated_sync_committee", true,
		)
		return nil
	}

	if err := consensus.VerifyFinalityUpdate(c.store, update, expectedSlot, c.network.GenesisValidatorsRoot, c.network.DenebForkVersion); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}
	consensus.ApplyFinalityUpdate(c.store, update)
	log.Info("applied ethereum light client finality update",
		"finalized_slot", c.store.FinalizedHeader.Slot,
		"state_root", c.store.FinalizedHeader.StateRoot,
	)
	return nil
}

// Slot returns the finalized header's slot.
func (c *LightClient) Slot() uint64 { return c.store.FinalizedHeader.Slot }

// StateRoot returns the finalized header's state root.
func (c *LightClient) StateRoot() consensus.Bytes32 { return c.store.FinalizedHeader.StateRoot }

// Network returns the chain parameters the client was constructed with.
func (c *LightClient) Network() consensus.Network { return c.network }

// Store exposes the underlying light-client store for callers needing the
// raw Altair-protocol state (e.g. persistence).
func (c *LightClient) Store() *consensus.Store { return c.store }

// EncodeLightClient writes the persistence encoding described in the
// binary wire format documentation: the store's fields followed by the
// network it was constructed with.
func EncodeLightClient(c *LightClient) ([]byte, error) {
	var buf bytes.Buffer
	if err := consensus.EncodeStore(&buf, c.store, &c.network); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeLightClient reads the encoding written by EncodeLightClient.
func DecodeLightClient(data []byte) (*LightClient, error) {
	store, network, err := consensus.DecodeStore(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &LightClient{store: store, network: network}, nil
}
