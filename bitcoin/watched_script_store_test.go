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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubCheckpoints struct {
	sigsets map[uint32]*SignatorySet
}

func (s *stubCheckpoints) AllSigsets() (map[uint32]*SignatorySet, error) { return s.sigsets, nil }

func TestOpenWatchedScriptStoreCreatesFileWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched_scripts")

	checkpoints := &stubCheckpoints{sigsets: map[uint32]*SignatorySet{}}
	store, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, 0, store.Scripts().Len())
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestWatchedScriptStoreInsertPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched_scripts")

	sigset := testSignatorySet(t, 1, 1_000_000_000_000, 2)
	checkpoints := &stubCheckpoints{sigsets: map[uint32]*SignatorySet{1: sigset}}

	store, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)

	addr := testAddress(0x01)
	require.NoError(t, store.Insert(addr, sigset))
	require.NoError(t, store.Close())

	reopened, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 1, reopened.Scripts().Len())
	script, err := sigset.OutputScript(addr)
	require.NoError(t, err)
	require.True(t, reopened.Scripts().Has(script))
}

func TestWatchedScriptStoreDropsEntriesForUnknownSigsets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched_scripts")

	sigset := testSignatorySet(t, 1, 1_000_000_000_000, 2)
	checkpoints := &stubCheckpoints{sigsets: map[uint32]*SignatorySet{1: sigset}}

	store, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)
	require.NoError(t, store.Insert(testAddress(0x01), sigset))
	require.NoError(t, store.Close())

	// The sigset that backed the persisted entry is no longer known to
	// the sidechain; reopening should silently drop it rather than error.
	checkpoints.sigsets = map[uint32]*SignatorySet{}
	reopened, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 0, reopened.Scripts().Len())
}

func TestWatchedScriptStoreCompactsExpiredEntriesOnOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched_scripts")

	// A deposit timeout of 1 (UNIX second) is long past by the time this
	// test runs.
	sigset := testSignatorySet(t, 1, 1, 2)
	checkpoints := &stubCheckpoints{sigsets: map[uint32]*SignatorySet{1: sigset}}

	store, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)
	require.NoError(t, store.Insert(testAddress(0x01), sigset))
	require.NoError(t, store.Close())

	reopened, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 0, reopened.Scripts().Len())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, string(contents))
}

func TestWatchedScriptStoreToleratesTrailingBlankLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched_scripts")

	sigset := testSignatorySet(t, 1, 1_000_000_000_000, 2)
	addr := testAddress(0x01)
	require.NoError(t, os.WriteFile(path, []byte(addr.String()+",1\n\n"), 0o644))

	checkpoints := &stubCheckpoints{sigsets: map[uint32]*SignatorySet{1: sigset}}
	store, err := OpenWatchedScriptStore(path, checkpoints)
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, 1, store.Scripts().Len())
}
