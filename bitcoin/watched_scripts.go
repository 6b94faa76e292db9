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

// scriptKey is the map key for a derived Bitcoin output script. Scripts can
// be of varying length, so we key on the string form of the raw bytes.
type scriptKey string

type scriptEntry struct {
	dest        Address
	sigsetIndex uint32
}

type sigsetEntry struct {
	sigset *SignatorySet
	addrs  []Address
}

// WatchedScripts indexes Bitcoin output scripts derived from (destination
// address, signatory set) pairs, grouped by signatory set so that an
// expired set's addresses can be removed in bulk.
type WatchedScripts struct {
	scripts map[scriptKey]scriptEntry
	// sigsets is iterated in ascending index order by RemoveExpired, so its
	// keys are also kept in order, a sorted slice beside the map.
	order   []uint32
	sigsets map[uint32]*sigsetEntry

	now func() time.Time
}

// NewWatchedScripts constructs an empty index.
func NewWatchedScripts() *WatchedScripts {
	return &WatchedScripts{
		scripts: make(map[scriptKey]scriptEntry),
		sigsets: make(map[uint32]*sigsetEntry),
		now:     time.Now,
	}
}

// Insert derives addr's output script under sigset and adds it to the
// index. Returns false without modifying anything if the script is already
// present.
func (w *WatchedScripts) Insert(addr Address, sigset *SignatorySet) (bool, error) {
	script, err := sigset.OutputScript(addr)
	if err != nil {
		return false, err
	}
	key := scriptKey(script)

	if _, ok := w.scripts[key]; ok {
		return false, nil
	}

	w.scripts[key] = scriptEntry{dest: addr, sigsetIndex: sigset.Index()}

	entry, ok := w.sigsets[sigset.Index()]
	if !ok {
		entry = &sigsetEntry{sigset: sigset.Clone()}
		w.sigsets[sigset.Index()] = entry
		w.insertOrder(sigset.Index())
	}
	entry.addrs = append(entry.addrs, addr)

	return true, nil
}

func (w *WatchedScripts) insertOrder(index uint32) {
	i := 0
	for ; i < len(w.order); i++ {
		if w.order[i] > index {
			break
		}
	}
	w.order = append(w.order, 0)
	copy(w.order[i+1:], w.order[i:])
	w.order[i] = index
}

// Get returns the (address, sigset index) pair watching script, if any.
func (w *WatchedScripts) Get(script []byte) (Address, uint32, bool) {
	e, ok := w.scripts[scriptKey(script)]
	return e.dest, e.sigsetIndex, ok
}

// Has reports whether script is currently watched.
func (w *WatchedScripts) Has(script []byte) bool {
	_, ok := w.scripts[scriptKey(script)]
	return ok
}

// Len returns the number of watched scripts.
func (w *WatchedScripts) Len() int { return len(w.scripts) }

// IsEmpty reports whether the index holds no scripts.
func (w *WatchedScripts) IsEmpty() bool { return len(w.scripts) == 0 }

// RemoveExpired drops every watched script belonging to a signatory set
// whose deposit_timeout has passed, stopping at the first sigset (in
// ascending index order) that has not yet expired.
//
// This relies on signatory-set rotation producing monotonically
// increasing deposit timeouts alongside monotonically increasing indices.
// Callers whose sidechain cannot guarantee that ordering should iterate
// the full map instead.
func (w *WatchedScripts) RemoveExpired() error {
	now := uint64(w.now().Unix())

	cut := 0
	for ; cut < len(w.order); cut++ {
		entry := w.sigsets[w.order[cut]]
		if now < entry.sigset.Timeout() {
			break
		}

		for _, addr := range entry.addrs {
			script, err := entry.sigset.OutputScript(addr)
			if err != nil {
				return err
			}
			delete(w.scripts, scriptKey(script))
		}
		delete(w.sigsets, w.order[cut])
	}

	w.order = w.order[cut:]
	return nil
}

// WatchedEntry is an (address, sigset index) pair backing a watched script.
type WatchedEntry struct {
	Addr        Address
	SigsetIndex uint32
}

// Values returns every (address, sigset index) pair currently watched, in
// no particular order. Used by WatchedScriptStore to compact its file.
func (w *WatchedScripts) Values() []WatchedEntry {
	out := make([]WatchedEntry, 0, len(w.scripts))
	for _, e := range w.scripts {
		out = append(out, WatchedEntry{Addr: e.dest, SigsetIndex: e.sigsetIndex})
	}
	return out
}
