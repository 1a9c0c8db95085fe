// Package chain reads transactions and receipts from an EVM endpoint.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Receipt is the inclusion state of a transaction. Confirmations are
// derived from the current head; the receipt itself carries none.
type Receipt struct {
	BlockNumber   uint64
	Confirmations uint64
	Succeeded     bool
	GasUsed       uint64
}

// Transaction is the donation-relevant slice of a transaction body.
// To is nil for contract creations.
type Transaction struct {
	From  common.Address
	To    *common.Address
	Value *big.Int
}

// Backend captures the subset of ethclient used by the reader.
type Backend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client reads receipts and transaction bodies from an EVM node.
type Client struct {
	eth Backend
}

// Dial connects to an EVM RPC endpoint.
func Dial(rpcURL string) (*Client, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}
	return &Client{eth: c}, nil
}

// NewClient wraps an existing backend.
func NewClient(eth Backend) *Client {
	return &Client{eth: eth}
}

// Receipt fetches the receipt for txHash. An unmined transaction yields
// (nil, nil); only genuine query faults are errors.
func (c *Client) Receipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	rec, err := c.eth.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch receipt %s: %w", txHash.Hex(), err)
	}

	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch head: %w", err)
	}

	mined := rec.BlockNumber.Uint64()
	var confirmations uint64
	if head >= mined {
		confirmations = head - mined + 1
	}

	return &Receipt{
		BlockNumber:   mined,
		Confirmations: confirmations,
		Succeeded:     rec.Status == types.ReceiptStatusSuccessful,
		GasUsed:       rec.GasUsed,
	}, nil
}

// Transaction fetches the transaction body for txHash. A missing
// transaction yields (nil, nil).
func (c *Client) Transaction(ctx context.Context, txHash common.Hash) (*Transaction, error) {
	tx, _, err := c.eth.TransactionByHash(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", txHash.Hex(), err)
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("recover sender %s: %w", txHash.Hex(), err)
	}

	return &Transaction{
		From:  from,
		To:    tx.To(),
		Value: tx.Value(),
	}, nil
}

// Ping checks endpoint connectivity with a head fetch.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.eth.BlockNumber(ctx); err != nil {
		return fmt.Errorf("ping evm rpc: %w", err)
	}
	return nil
}
