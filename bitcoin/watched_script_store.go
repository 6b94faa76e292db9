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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// CheckpointClient is the slice of the sidechain application client that
// WatchedScriptStore needs to resolve a sigset index to its SignatorySet.
type CheckpointClient interface {
	AllSigsets() (map[uint32]*SignatorySet, error)
}

// WatchedScriptStore is an append-only log backing a WatchedScripts index.
// It is owned exclusively by the deposit relay task; nothing else touches
// its file handle.
type WatchedScriptStore struct {
	scripts *WatchedScripts
	path    string
	file    *os.File
}

// OpenWatchedScriptStore loads path (if it exists), cross-references every
// line's sigset index against checkpoints, drops anything unresolvable or
// expired, and rewrites the file from the surviving entries before
// returning a store ready to accept further inserts.
func OpenWatchedScriptStore(path string, checkpoints CheckpointClient) (*WatchedScriptStore, error) {
	scripts := NewWatchedScripts()

	if err := loadWatchedScripts(path, scripts, checkpoints); err != nil {
		return nil, err
	}

	if err := scripts.RemoveExpired(); err != nil {
		return nil, fmt.Errorf("removing expired watched scripts: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening watched script store %q: %w", path, err)
	}

	surviving := scripts.Values()
	for _, e := range surviving {
		if err := writeEntry(file, e.Addr, e.SigsetIndex); err != nil {
			file.Close()
			return nil, err
		}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, err
	}

	log.Info("opened watched script store", "path", path, "entries", len(surviving))

	return &WatchedScriptStore{scripts: scripts, path: path, file: file}, nil
}

func loadWatchedScripts(path string, scripts *WatchedScripts, checkpoints CheckpointClient) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening watched script store %q: %w", path, err)
	}
	defer f.Close()

	sigsets, err := checkpoints.AllSigsets()
	if err != nil {
		return fmt.Errorf("fetching signatory sets: %w", err)
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	// A line that fails to parse is only an error if another non-blank
	// line follows it: a crash mid-append can leave a partially written
	// final line, which is dropped.
	var malformed error
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if malformed != nil {
			return malformed
		}

		addr, sigsetIndex, err := parseLine(line)
		if err != nil {
			malformed = fmt.Errorf("watched script store %q, line %d: %w", path, lineNo, err)
			continue
		}

		sigset, ok := sigsets[sigsetIndex]
		if !ok {
			// Referenced sigset is no longer known to the sidechain;
			// skip it silently.
			continue
		}

		if _, err := scripts.Insert(addr, sigset); err != nil {
			return fmt.Errorf("watched script store %q, line %d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading watched script store %q: %w", path, err)
	}

	return nil
}

func parseLine(line string) (Address, uint32, error) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return Address{}, 0, fmt.Errorf("malformed line %q", line)
	}

	addr, err := ParseAddress(parts[0])
	if err != nil {
		return Address{}, 0, fmt.Errorf("parsing address: %w", err)
	}

	sigsetIndex, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Address{}, 0, fmt.Errorf("parsing sigset index: %w", err)
	}

	return addr, uint32(sigsetIndex), nil
}

func writeEntry(f *os.File, addr Address, sigsetIndex uint32) error {
	_, err := fmt.Fprintf(f, "%s,%d\n", addr, sigsetIndex)
	return err
}

// Insert adds addr to the index under sigset, appending a single line to
// the backing file if the entry is new.
func (s *WatchedScriptStore) Insert(addr Address, sigset *SignatorySet) error {
	inserted, err := s.scripts.Insert(addr, sigset)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	return writeEntry(s.file, addr, sigset.Index())
}

// Scripts returns the underlying index.
func (s *WatchedScriptStore) Scripts() *WatchedScripts { return s.scripts }

// Close releases the file handle.
func (s *WatchedScriptStore) Close() error { return s.file.Close() }
