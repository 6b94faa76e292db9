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

package ethereum

import "time"

// Config tunes how an external relayer loop drives a LightClient. The
// core itself only exposes New/Update; Config is for the cmd-level poll
// loop that fetches bootstraps and updates from a beacon node API and
// feeds them in.
type Config struct {
	// UpdatePollInterval is how often the driving loop checks a beacon
	// node for a new sync-committee update.
	UpdatePollInterval time.Duration

	// FinalityPollInterval is how often it checks for a finality-only
	// update between full updates.
	FinalityPollInterval time.Duration
}

// DefaultConfig returns the light client driver's baseline tuning.
func DefaultConfig() Config {
	return Config{
		UpdatePollInterval:   12 * time.Second,
		FinalityPollInterval: 6 * time.Second,
	}
}
