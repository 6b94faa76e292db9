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

import "time"

// Config tunes the relay loops. Exposed so a deployment can override the
// rescan floor and batch sizing without touching the core.
type Config struct {
	// HeaderBatchSize bounds how many consecutive headers relay_header_batch
	// fetches and submits per call.
	HeaderBatchSize int

	// RescanBlocks floors how many blocks the deposit relay rescans on a
	// gap, covering reorg depth beyond the confirmation window.
	RescanBlocks int

	HeaderRelayInterval     time.Duration
	DepositRelayInterval    time.Duration
	CheckpointRelayInterval time.Duration
	WaitForNewBlockTimeout  time.Duration
}

// DefaultConfig returns the relayer's baseline tuning.
func DefaultConfig() Config {
	return Config{
		HeaderBatchSize:         25,
		RescanBlocks:            1100,
		HeaderRelayInterval:     2 * time.Second,
		DepositRelayInterval:    2 * time.Second,
		CheckpointRelayInterval: 10 * time.Second,
		WaitForNewBlockTimeout:  3 * time.Second,
	}
}
