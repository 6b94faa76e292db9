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
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

// HeaderInfo is the subset of Bitcoin Core's getblockheader verbose output
// the relay needs: height, confirmation depth against the active chain,
// and the neighboring hashes used to walk forward or backward.
type HeaderInfo struct {
	Hash              chainhash.Hash
	Height            int32
	Confirmations     int64
	PreviousBlockHash *chainhash.Hash
	NextBlockHash     *chainhash.Hash
}

// RPCClient is the Bitcoin full-node RPC surface the relay consumes.
// *CoreRPCClient implements it against a real bitcoind; tests substitute a
// stub.
type RPCClient interface {
	GetBestBlockHash() (chainhash.Hash, error)
	HeaderInfo(hash chainhash.Hash) (HeaderInfo, error)
	Header(hash chainhash.Hash) (wire.BlockHeader, error)
	Block(hash chainhash.Hash) (*wire.MsgBlock, error)
	WaitForNewBlock(timeoutMS int64) error
	TxOutProof(txids []chainhash.Hash, blockHash chainhash.Hash) ([]byte, error)
	SendRawTransaction(tx *wire.MsgTx) error
}

// HeaderClient mirrors "headers.hash()" / "headers.add(batch)".
type HeaderClient interface {
	Hash() (chainhash.Hash, error)
	Add(batch []WrappedHeader) error
}

// CheckpointQueueClient mirrors the sidechain's "checkpoints.*" surface,
// adding CheckpointClient's AllSigsets so the deposit relay and the
// watched script store can share one implementation.
type CheckpointQueueClient interface {
	CheckpointClient
	Sigset(index uint32) (*SignatorySet, error)
	CompletedTxs() ([]*wire.MsgTx, error)
}

// ProcessedOutpointClient mirrors "processed_outpoints.contains(...)".
type ProcessedOutpointClient interface {
	Contains(txid chainhash.Hash, vout uint32) (bool, error)
}

// DepositClient mirrors "relay_deposit(...)".
type DepositClient interface {
	RelayDeposit(tx *wire.MsgTx, height uint32, proof []byte, vout uint32, sigsetIndex uint32, dest Address) error
}

// AppClient is the full sidechain application client surface the relay
// consumes.
type AppClient interface {
	Headers() HeaderClient
	Checkpoints() CheckpointQueueClient
	ProcessedOutpoints() ProcessedOutpointClient
	Deposits() DepositClient
}

// CoreRPCClient adapts a btcd/rpcclient.Client, which speaks the Bitcoin
// Core JSON-RPC protocol, to RPCClient. waitfornewblock is a bitcoind RPC
// with no typed btcd binding, so it goes through RawRequest directly.
type CoreRPCClient struct {
	*rpcclient.Client
}

// NewCoreRPCClient dials a bitcoind RPC endpoint.
func NewCoreRPCClient(cfg *rpcclient.ConnConfig) (*CoreRPCClient, error) {
	client, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to bitcoind: %w", err)
	}
	return &CoreRPCClient{Client: client}, nil
}

func (c *CoreRPCClient) GetBestBlockHash() (chainhash.Hash, error) {
	hash, err := c.Client.GetBestBlockHash()
	if err != nil {
		return chainhash.Hash{}, err
	}
	return *hash, nil
}

func (c *CoreRPCClient) HeaderInfo(hash chainhash.Hash) (HeaderInfo, error) {
	res, err := c.Client.GetBlockHeaderVerbose(&hash)
	if err != nil {
		return HeaderInfo{}, err
	}

	info := HeaderInfo{
		Hash:          hash,
		Height:        res.Height,
		Confirmations: int64(res.Confirmations),
	}
	if res.PreviousHash != "" {
		prev, err := chainhash.NewHashFromStr(res.PreviousHash)
		if err != nil {
			return HeaderInfo{}, fmt.Errorf("parsing previous block hash: %w", err)
		}
		info.PreviousBlockHash = prev
	}
	if res.NextHash != "" {
		next, err := chainhash.NewHashFromStr(res.NextHash)
		if err != nil {
			return HeaderInfo{}, fmt.Errorf("parsing next block hash: %w", err)
		}
		info.NextBlockHash = next
	}
	return info, nil
}

func (c *CoreRPCClient) Header(hash chainhash.Hash) (wire.BlockHeader, error) {
	header, err := c.Client.GetBlockHeader(&hash)
	if err != nil {
		return wire.BlockHeader{}, err
	}
	return *header, nil
}

func (c *CoreRPCClient) Block(hash chainhash.Hash) (*wire.MsgBlock, error) {
	return c.Client.GetBlock(&hash)
}

func (c *CoreRPCClient) WaitForNewBlock(timeoutMS int64) error {
	_, err := c.Client.RawRequest("waitfornewblock", []interface{}{timeoutMS})
	return err
}

func (c *CoreRPCClient) TxOutProof(txids []chainhash.Hash, blockHash chainhash.Hash) ([]byte, error) {
	ptrs := make([]*chainhash.Hash, len(txids))
	for i := range txids {
		ptrs[i] = &txids[i]
	}
	proofHex, err := c.Client.GetTxOutProof(ptrs, &blockHash)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(proofHex)
}

func (c *CoreRPCClient) SendRawTransaction(tx *wire.MsgTx) error {
	_, err := c.Client.SendRawTransaction(tx, false)
	return err
}
