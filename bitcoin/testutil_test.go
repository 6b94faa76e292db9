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
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// fakeChain is an in-memory Bitcoin full node: a linear or forking set of
// blocks keyed by hash, enough to drive HeaderInfo/Header/Block/best-hash
// without a real bitcoind.
type fakeChain struct {
	blocks   map[chainhash.Hash]*wire.MsgBlock
	heights  map[chainhash.Hash]int32
	children map[chainhash.Hash][]chainhash.Hash
	best     chainhash.Hash
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		blocks:   make(map[chainhash.Hash]*wire.MsgBlock),
		heights:  make(map[chainhash.Hash]int32),
		children: make(map[chainhash.Hash][]chainhash.Hash),
	}
}

// addBlock appends a block on top of parent (the zero hash for genesis)
// and returns its hash.
func (c *fakeChain) addBlock(parent chainhash.Hash, nonce uint32, txs ...*wire.MsgTx) chainhash.Hash {
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			PrevBlock: parent,
			Nonce:     nonce,
		},
	}
	for _, tx := range txs {
		block.Transactions = append(block.Transactions, tx)
	}
	hash := block.BlockHash()

	height := int32(0)
	if parent != (chainhash.Hash{}) {
		height = c.heights[parent] + 1
	}

	c.blocks[hash] = block
	c.heights[hash] = height
	c.children[parent] = append(c.children[parent], hash)
	return hash
}

func (c *fakeChain) setBest(hash chainhash.Hash) { c.best = hash }

func (c *fakeChain) confirmations(hash chainhash.Hash) int64 {
	return int64(c.heights[c.best]-c.heights[hash]) + 1
}

func (c *fakeChain) nextOnBestChain(hash chainhash.Hash) *chainhash.Hash {
	// Walk back from best to find the child of hash on the active chain.
	cursor := c.best
	for cursor != (chainhash.Hash{}) || c.heights[cursor] == 0 {
		block, ok := c.blocks[cursor]
		if !ok {
			return nil
		}
		if block.Header.PrevBlock == hash {
			next := cursor
			return &next
		}
		if cursor == c.genesisOf(cursor) {
			break
		}
		cursor = block.Header.PrevBlock
	}
	return nil
}

func (c *fakeChain) genesisOf(hash chainhash.Hash) chainhash.Hash {
	cursor := hash
	for {
		block, ok := c.blocks[cursor]
		if !ok || block.Header.PrevBlock == (chainhash.Hash{}) {
			return cursor
		}
		cursor = block.Header.PrevBlock
	}
}

type fakeRPC struct {
	chain *fakeChain
}

func (f *fakeRPC) GetBestBlockHash() (chainhash.Hash, error) { return f.chain.best, nil }

func (f *fakeRPC) HeaderInfo(hash chainhash.Hash) (HeaderInfo, error) {
	block, ok := f.chain.blocks[hash]
	if !ok {
		return HeaderInfo{}, fmt.Errorf("unknown block %s", hash)
	}
	info := HeaderInfo{
		Hash:          hash,
		Height:        f.chain.heights[hash],
		Confirmations: f.chain.confirmations(hash),
	}
	if block.Header.PrevBlock != (chainhash.Hash{}) || f.chain.heights[hash] > 0 {
		prev := block.Header.PrevBlock
		info.PreviousBlockHash = &prev
	}
	info.NextBlockHash = f.chain.nextOnBestChain(hash)
	return info, nil
}

func (f *fakeRPC) Header(hash chainhash.Hash) (wire.BlockHeader, error) {
	block, ok := f.chain.blocks[hash]
	if !ok {
		return wire.BlockHeader{}, fmt.Errorf("unknown block %s", hash)
	}
	return block.Header, nil
}

func (f *fakeRPC) Block(hash chainhash.Hash) (*wire.MsgBlock, error) {
	block, ok := f.chain.blocks[hash]
	if !ok {
		return nil, fmt.Errorf("unknown block %s", hash)
	}
	return block, nil
}

func (f *fakeRPC) WaitForNewBlock(timeoutMS int64) error { return nil }

func (f *fakeRPC) TxOutProof(txids []chainhash.Hash, blockHash chainhash.Hash) ([]byte, error) {
	return []byte("proof"), nil
}

var sentRawTxs []*wire.MsgTx
var sendRawTxErr error

func (f *fakeRPC) SendRawTransaction(tx *wire.MsgTx) error {
	sentRawTxs = append(sentRawTxs, tx)
	return sendRawTxErr
}

type fakeHeaders struct {
	hash  chainhash.Hash
	added [][]WrappedHeader
}

func (h *fakeHeaders) Hash() (chainhash.Hash, error) { return h.hash, nil }
func (h *fakeHeaders) Add(batch []WrappedHeader) error {
	h.added = append(h.added, batch)
	h.hash = batch[len(batch)-1].BlockHash()
	return nil
}

type fakeCheckpoints struct {
	sigsets      map[uint32]*SignatorySet
	completedTxs []*wire.MsgTx
}

func (c *fakeCheckpoints) AllSigsets() (map[uint32]*SignatorySet, error) { return c.sigsets, nil }
func (c *fakeCheckpoints) Sigset(index uint32) (*SignatorySet, error) {
	s, ok := c.sigsets[index]
	if !ok {
		return nil, fmt.Errorf("unknown sigset %d", index)
	}
	return s, nil
}
func (c *fakeCheckpoints) CompletedTxs() ([]*wire.MsgTx, error) { return c.completedTxs, nil }

type outpoint struct {
	txid chainhash.Hash
	vout uint32
}

type fakeProcessedOutpoints struct {
	set map[outpoint]bool
}

func (p *fakeProcessedOutpoints) Contains(txid chainhash.Hash, vout uint32) (bool, error) {
	return p.set[outpoint{txid, vout}], nil
}

type relayedDeposit struct {
	tx          *wire.MsgTx
	height      uint32
	vout        uint32
	sigsetIndex uint32
	dest        Address
}

type fakeDeposits struct {
	relayed []relayedDeposit
	err     error
}

func (d *fakeDeposits) RelayDeposit(tx *wire.MsgTx, height uint32, proof []byte, vout uint32, sigsetIndex uint32, dest Address) error {
	if d.err != nil {
		return d.err
	}
	d.relayed = append(d.relayed, relayedDeposit{tx, height, vout, sigsetIndex, dest})
	return nil
}

type fakeApp struct {
	headers     *fakeHeaders
	checkpoints *fakeCheckpoints
	processed   *fakeProcessedOutpoints
	deposits    *fakeDeposits
}

func (a *fakeApp) Headers() HeaderClient                     { return a.headers }
func (a *fakeApp) Checkpoints() CheckpointQueueClient         { return a.checkpoints }
func (a *fakeApp) ProcessedOutpoints() ProcessedOutpointClient { return a.processed }
func (a *fakeApp) Deposits() DepositClient                    { return a.deposits }

func newFakeApp() *fakeApp {
	return &fakeApp{
		headers:     &fakeHeaders{},
		checkpoints: &fakeCheckpoints{sigsets: make(map[uint32]*SignatorySet)},
		processed:   &fakeProcessedOutpoints{set: make(map[outpoint]bool)},
		deposits:    &fakeDeposits{},
	}
}
