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
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/log"
)

// Announcement is an (address, sigset index) pair produced by an external
// depositor service and consumed by the deposit relay.
type Announcement struct {
	Addr        Address
	SigsetIndex uint32
}

// Relayer bundles the three long-lived Bitcoin relay tasks. Each task is
// its own self-restarting loop and is meant to be launched in its own
// goroutine by the caller; Relayer holds no lock because each
// task only touches resources it exclusively owns.
type Relayer struct {
	cfg   Config
	btc   RPCClient
	app   AppClient
	store *WatchedScriptStore
}

// NewRelayer constructs a Relayer. store is owned exclusively by the
// deposit relay task from this point on.
func NewRelayer(cfg Config, btc RPCClient, app AppClient, store *WatchedScriptStore) *Relayer {
	return &Relayer{cfg: cfg, btc: btc, app: app, store: store}
}

// RunHeaderRelay mirrors Bitcoin's best chain into the sidechain's header
// queue forever, retrying on error.
func (r *Relayer) RunHeaderRelay(ctx context.Context) error {
	log.Info("starting header relay")

	var lastReportedHash *chainhash.Hash
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.relayHeaders(ctx, &lastReportedHash); err != nil {
			log.Warn("header relay error", "err", err)
			if sleepCtx(ctx, r.cfg.HeaderRelayInterval) {
				return ctx.Err()
			}
		}
	}
}

// relayHeaders runs one pass of the header-relay loop body: while the
// sidechain and full node disagree, relay a batch and loop immediately
// without sleeping to drain the gap; once they agree, report once
// and block on wait_for_new_block.
func (r *Relayer) relayHeaders(ctx context.Context, lastReportedHash **chainhash.Hash) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fullnodeHash, err := r.btc.GetBestBlockHash()
		if err != nil {
			return fmt.Errorf("getting full node tip: %w", err)
		}
		sidechainHash, err := r.app.Headers().Hash()
		if err != nil {
			return fmt.Errorf("getting sidechain tip: %w", err)
		}

		if fullnodeHash != sidechainHash {
			if err := r.relayHeaderBatch(fullnodeHash, sidechainHash); err != nil {
				return err
			}
			continue
		}

		if *lastReportedHash == nil || **lastReportedHash != fullnodeHash {
			*lastReportedHash = &fullnodeHash
			info, err := r.btc.HeaderInfo(fullnodeHash)
			if err != nil {
				return fmt.Errorf("getting tip info: %w", err)
			}
			log.Info("sidechain header state is up-to-date", "hash", fullnodeHash, "height", info.Height)
		}

		if err := r.btc.WaitForNewBlock(r.cfg.WaitForNewBlockTimeout.Milliseconds()); err != nil {
			return fmt.Errorf("waiting for new block: %w", err)
		}
	}
}

// relayHeaderBatch submits up to HeaderBatchSize headers from just after
// the common ancestor of fullnodeHash and sidechainHash.
func (r *Relayer) relayHeaderBatch(fullnodeHash, sidechainHash chainhash.Hash) error {
	fullnodeInfo, err := r.btc.HeaderInfo(fullnodeHash)
	if err != nil {
		return fmt.Errorf("getting full node header info: %w", err)
	}
	sidechainInfo, err := r.btc.HeaderInfo(sidechainHash)
	if err != nil {
		return fmt.Errorf("getting sidechain header info: %w", err)
	}

	if fullnodeInfo.Height < sidechainInfo.Height {
		// Full node is still syncing; nothing to relay yet.
		return nil
	}

	ancestor, err := r.commonAncestor(fullnodeHash, sidechainHash)
	if err != nil {
		return fmt.Errorf("finding common ancestor: %w", err)
	}

	batch, err := r.headerBatch(ancestor.Hash)
	if err != nil {
		return fmt.Errorf("fetching header batch: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	log.Info("relaying headers",
		"hash", batch[0].BlockHash(),
		"height", batch[0].Height,
		"batch_len", len(batch),
	)

	if err := r.app.Headers().Add(batch); err != nil {
		return fmt.Errorf("submitting header batch: %w", err)
	}
	log.Info("relayed headers")

	return nil
}

// headerBatch fetches up to HeaderBatchSize consecutive headers following
// fromHash, walking forward via next_block_hash.
func (r *Relayer) headerBatch(fromHash chainhash.Hash) ([]WrappedHeader, error) {
	cursor, err := r.btc.HeaderInfo(fromHash)
	if err != nil {
		return nil, err
	}

	headers := make([]WrappedHeader, 0, r.cfg.HeaderBatchSize)
	for i := 0; i < r.cfg.HeaderBatchSize; i++ {
		if cursor.NextBlockHash == nil {
			break
		}
		cursor, err = r.btc.HeaderInfo(*cursor.NextBlockHash)
		if err != nil {
			return nil, err
		}

		header, err := r.btc.Header(cursor.Hash)
		if err != nil {
			return nil, err
		}

		headers = append(headers, WrappedHeader{BlockHeader: header, Height: uint32(cursor.Height)})
	}

	return headers, nil
}

// commonAncestor finds the shared ancestor of a and b by walking the
// higher chain back one block at a time, using confirmation counts to
// detect when one hash is already an ancestor of the other.
func (r *Relayer) commonAncestor(a, b chainhash.Hash) (HeaderInfo, error) {
	infoA, err := r.btc.HeaderInfo(a)
	if err != nil {
		return HeaderInfo{}, err
	}
	infoB, err := r.btc.HeaderInfo(b)
	if err != nil {
		return HeaderInfo{}, err
	}

	for infoA.Hash != infoB.Hash {
		switch {
		case infoA.Height > infoB.Height && infoB.Confirmations-1 == int64(infoA.Height-infoB.Height):
			return infoB, nil
		case infoB.Height > infoA.Height && infoA.Confirmations-1 == int64(infoB.Height-infoA.Height):
			return infoA, nil
		case infoA.Height > infoB.Height:
			if infoA.PreviousBlockHash == nil {
				return HeaderInfo{}, fmt.Errorf("hash %s has no previous block", infoA.Hash)
			}
			infoA, err = r.btc.HeaderInfo(*infoA.PreviousBlockHash)
			if err != nil {
				return HeaderInfo{}, err
			}
		default:
			if infoB.PreviousBlockHash == nil {
				return HeaderInfo{}, fmt.Errorf("hash %s has no previous block", infoB.Hash)
			}
			infoB, err = r.btc.HeaderInfo(*infoB.PreviousBlockHash)
			if err != nil {
				return HeaderInfo{}, err
			}
		}
	}

	return infoA, nil
}

// RunDepositRelay drains announced addresses, rescans recent blocks for
// deposits against the watched-script index, and submits SPV-proven
// matches, retrying on error.
func (r *Relayer) RunDepositRelay(ctx context.Context, announcements <-chan Announcement) error {
	log.Info("starting deposit relay")

	var prevTip *chainhash.Hash
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.relayDeposits(ctx, announcements, &prevTip); err != nil {
			log.Warn("deposit relay error", "err", err)
		}
		if sleepCtx(ctx, r.cfg.DepositRelayInterval) {
			return ctx.Err()
		}
	}
}

func (r *Relayer) relayDeposits(ctx context.Context, announcements <-chan Announcement, prevTip **chainhash.Hash) error {
	if err := r.insertAnnounced(announcements); err != nil {
		return err
	}

	tip, err := r.app.Headers().Hash()
	if err != nil {
		return fmt.Errorf("getting sidechain tip: %w", err)
	}

	prev := tip
	if *prevTip != nil {
		prev = **prevTip
		if prev == tip {
			return nil
		}
	}

	ancestor, err := r.commonAncestor(tip, prev)
	if err != nil {
		return fmt.Errorf("finding common ancestor: %w", err)
	}
	startHeight := ancestor.Height

	tipInfo, err := r.btc.HeaderInfo(tip)
	if err != nil {
		return fmt.Errorf("getting tip info: %w", err)
	}
	endHeight := tipInfo.Height

	numBlocks := int(endHeight - startHeight)
	if numBlocks < r.cfg.RescanBlocks {
		numBlocks = r.cfg.RescanBlocks
	}

	if err := r.scanForDeposits(ctx, tip, numBlocks); err != nil {
		return fmt.Errorf("scanning for deposits: %w", err)
	}

	*prevTip = &tip
	return nil
}

// insertAnnounced drains the announcement channel non-blockingly,
// resolving each address's sigset and inserting it into the watched-script
// store, then expires anything past its deposit timeout.
func (r *Relayer) insertAnnounced(announcements <-chan Announcement) error {
	for {
		select {
		case a, ok := <-announcements:
			if !ok {
				return r.store.Scripts().RemoveExpired()
			}
			sigset, err := r.app.Checkpoints().Sigset(a.SigsetIndex)
			if err != nil {
				log.Warn("could not fetch signatory set for announced address", "sigset_index", a.SigsetIndex, "err", err)
				continue
			}
			if err := r.store.Insert(a.Addr, sigset); err != nil {
				return fmt.Errorf("inserting announced address: %w", err)
			}
		default:
			return r.store.Scripts().RemoveExpired()
		}
	}
}

// scanForDeposits walks numBlocks blocks backwards from tip, checking
// every output against the watched-script index.
func (r *Relayer) scanForDeposits(ctx context.Context, tip chainhash.Hash, numBlocks int) error {
	tipInfo, err := r.btc.HeaderInfo(tip)
	if err != nil {
		return err
	}
	baseHeight := tipInfo.Height

	hash := tip
	for i := 0; i < numBlocks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		block, err := r.btc.Block(hash)
		if err != nil {
			return fmt.Errorf("fetching block %s: %w", hash, err)
		}

		height := uint32(int(baseHeight) - i)
		blockHash := block.BlockHash()
		for _, tx := range block.Transactions {
			for _, match := range r.relevantOutputs(tx) {
				if err := r.maybeRelayDeposit(tx, height, blockHash, match); err != nil {
					return err
				}
			}
		}

		hash = block.Header.PrevBlock
	}

	return nil
}

// relevantOutputs returns every output of tx whose script is currently
// watched.
func (r *Relayer) relevantOutputs(tx *wire.MsgTx) []OutputMatch {
	var matches []OutputMatch
	for vout, out := range tx.TxOut {
		dest, sigsetIndex, ok := r.store.Scripts().Get(out.PkScript)
		if !ok {
			continue
		}
		matches = append(matches, OutputMatch{
			SigsetIndex: sigsetIndex,
			Vout:        uint32(vout),
			Dest:        dest,
		})
	}
	return matches
}

// maybeRelayDeposit submits an SPV proof for a detected deposit unless
// it's already processed or is below the dust threshold.
func (r *Relayer) maybeRelayDeposit(tx *wire.MsgTx, height uint32, blockHash chainhash.Hash, match OutputMatch) error {
	txid := tx.TxHash()

	processed, err := r.app.ProcessedOutpoints().Contains(txid, match.Vout)
	if err != nil {
		return fmt.Errorf("checking processed outpoints: %w", err)
	}
	if processed {
		return nil
	}

	proof, err := r.btc.TxOutProof([]chainhash.Hash{txid}, blockHash)
	if err != nil {
		return fmt.Errorf("fetching SPV proof: %w", err)
	}

	err = r.app.Deposits().RelayDeposit(tx, height, proof, match.Vout, match.SigsetIndex, match.Dest)
	if err != nil {
		if isDustDeposit(err) {
			return nil
		}
		return fmt.Errorf("relaying deposit: %w", err)
	}

	log.Info("relayed deposit",
		"sats", tx.TxOut[match.Vout].Value,
		"dest", match.Dest,
	)
	return nil
}

// RunCheckpointRelay broadcasts completed checkpoint transactions to
// Bitcoin, treating already-broadcast/already-mined errors as success.
func (r *Relayer) RunCheckpointRelay(ctx context.Context) error {
	log.Info("starting checkpoint relay")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sleepCtx(ctx, r.cfg.CheckpointRelayInterval) {
			return ctx.Err()
		}

		if err := r.relayCheckpoints(); err != nil {
			log.Warn("checkpoint relay error", "err", err)
		}
	}
}

func (r *Relayer) relayCheckpoints() error {
	txs, err := r.app.Checkpoints().CompletedTxs()
	if err != nil {
		return fmt.Errorf("fetching completed checkpoint transactions: %w", err)
	}

	for _, tx := range txs {
		err := r.btc.SendRawTransaction(tx)
		if err != nil && !isBenignBroadcast(err) {
			return fmt.Errorf("broadcasting checkpoint transaction %s: %w", tx.TxHash(), err)
		}
	}

	return nil
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first,
// reporting whether ctx ended the wait.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
