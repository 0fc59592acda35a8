// Package chainwatch defines the chain-observation contract a tumble session
// needs once its transactions are broadcast: confirmation of the fund
// transaction, and detection of whichever of the redeem or refund path
// spends the joint output first. A concrete ChainNotifier is supplied by the
// caller (backed by btcd's websocket notifications, Bitcoin Core's ZeroMQ
// feed, an Electrum server, or similar); this package only resolves what to
// do once an event arrives.
package chainwatch

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ChainNotifier is a trusted source of targeted Bitcoin chain events. The
// interface is intentionally narrow: a tumble session only ever needs to
// know when a specific transaction confirms and when a specific outpoint is
// spent, never a general wallet or full-node RPC surface.
type ChainNotifier interface {
	// RegisterConfirmationsNtfn registers an intent to be notified once
	// txid reaches numConfs confirmations.
	RegisterConfirmationsNtfn(txid *chainhash.Hash, pkScript []byte, numConfs, heightHint uint32) (*ConfirmationEvent, error)

	// RegisterSpendNtfn registers an intent to be notified once the
	// target outpoint is spent by a transaction the notifier has seen,
	// confirmed or not.
	RegisterSpendNtfn(outpoint *wire.OutPoint, pkScript []byte, heightHint uint32) (*SpendEvent, error)

	// RegisterBlockEpochNtfn registers an intent to be notified of every
	// new block connected to the tip of the main chain, used to detect
	// when a refund's relative or absolute timelock has matured.
	RegisterBlockEpochNtfn() (*BlockEpochEvent, error)

	// Start brings the notifier up; it must be ready to accept
	// registrations once this returns.
	Start() error

	// Stop tears the notifier down, closing every outstanding event
	// channel.
	Stop() error
}

// ConfirmationEvent is delivered once a registered txid reaches its target
// depth. Confirmed carries the confirming block height; it is closed
// without a send if the notifier is stopped first.
type ConfirmationEvent struct {
	Confirmed chan int32
}

// SpendDetail describes the transaction that spent a registered outpoint.
type SpendDetail struct {
	SpentOutPoint     *wire.OutPoint
	SpenderTxHash     *chainhash.Hash
	SpendingTx        *wire.MsgTx
	SpenderInputIndex uint32
	SpendingHeight    int32
}

// SpendEvent is delivered once a registered outpoint is spent. Spend is
// closed without a send if the notifier is stopped first.
type SpendEvent struct {
	Spend chan *SpendDetail
}

// BlockEpoch carries the height and hash of a newly connected block.
type BlockEpoch struct {
	Height int32
	Hash   *chainhash.Hash
}

// BlockEpochEvent delivers every newly connected block on Epochs until the
// notifier is stopped, at which point it is closed.
type BlockEpochEvent struct {
	Epochs chan *BlockEpoch
}
