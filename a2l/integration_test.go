package a2l

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/a2l/hsmcl"
	"github.com/lightninglabs/a2l/puzzlepromise"
	"github.com/lightninglabs/a2l/puzzlesolver"
	"github.com/lightninglabs/a2l/txbuilder"
)

func sampleParams(t *testing.T) Params {
	t.Helper()

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0}})

	changeAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		make([]byte, 20), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	changeScript, err := txscript.PayToAddrScript(changeAddr)
	require.NoError(t, err)
	tx.AddTxOut(wire.NewTxOut(5_000_000, changeScript))

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)

	redeemAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		make([]byte, 20), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	refundAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		append(make([]byte, 19), 0x01), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	return Params{
		PartialFundTx:         packet,
		TumbleAmount:          1_000_000,
		TumblerFee:            10_000,
		FeePerWeightUnit:      10,
		MaxSatisfactionWeight: txbuilder.MaxSatisfactionWeight,
		Expiry:                144,
		RedeemAddress:         redeemAddr,
		RefundAddress:         refundAddr,
		ChainParams:           &chaincfg.RegressionNetParams,
	}
}

// TestTumbleHappyPath drives both legs of a full tumble end to end: the
// tumbler-receiver promise leg produces a puzzle, the receiver re-blinds it
// for the sender-tumbler solver leg, the tumbler's on-chain redeem broadcast
// is simulated directly, and the recovered secret flows back to unlock the
// receiver's own redeem transaction.
func TestTumbleHappyPath(t *testing.T) {
	pp := sampleParams(t)

	he, err := hsmcl.Keygen([]byte("test-tumbler"))
	require.NoError(t, err)

	promiseTumbler0, err := puzzlepromise.NewTumbler(pp, he)
	require.NoError(t, err)

	receiver0, err := NewReceiver(pp, he.Pub)
	require.NoError(t, err)

	promiseMsg0, err := promiseTumbler0.NextMessage()
	require.NoError(t, err)

	receiver1, err := receiver0.Receive(promiseMsg0)
	require.NoError(t, err)

	promiseMsg1 := receiver1.NextMessage()

	promiseTumbler1, err := promiseTumbler0.Receive(promiseMsg1)
	require.NoError(t, err)

	promiseMsg2, err := promiseTumbler1.NextMessage()
	require.NoError(t, err)

	receiver2, err := receiver1.Receive(promiseMsg2)
	require.NoError(t, err)

	lock := receiver2.Lock()

	sender0, err := NewSender(pp, lock, he.Pub)
	require.NoError(t, err)

	solverTumbler0, err := puzzlesolver.NewTumbler(pp, he)
	require.NoError(t, err)

	solverMsg0 := sender0.NextMessage()

	solverTumbler1, err := solverTumbler0.Receive(solverMsg0)
	require.NoError(t, err)

	solverMsg1, err := solverTumbler1.NextMessage()
	require.NoError(t, err)

	sender1, err := sender0.Receive(solverMsg1)
	require.NoError(t, err)

	solverMsg2 := sender1.NextMessage()

	solverTumbler2, err := solverTumbler1.Receive(solverMsg2)
	require.NoError(t, err)

	solverMsg3, err := solverTumbler2.NextMessage()
	require.NoError(t, err)

	sender2, err := sender1.Receive(solverMsg3)
	require.NoError(t, err)

	solverMsg4 := sender2.NextMessage()

	solverTumbler4, err := solverTumbler2.Receive(solverMsg4)
	require.NoError(t, err)

	// The tumbler broadcasts its redeem transaction on the sender-tumbler
	// leg, revealing gamma on-chain; the sender observes it directly.
	broadcastRedeem := solverTumbler4.RedeemTransaction().Redeem

	sender3, err := sender2.Receive(broadcastRedeem)
	require.NoError(t, err)

	solvedPuzzle := sender3.NextMessage()

	receiver3, err := receiver2.Receive(solvedPuzzle)
	require.NoError(t, err)

	require.Len(t, receiver3.RedeemTransaction().Redeem.TxIn[0].Witness, 4)
}

// TestSenderRejectsBadTweak checks that a sender leg fails closed when the
// tumbler's re-derived puzzle point does not match tau*A'.
func TestSenderRejectsBadTweak(t *testing.T) {
	pp := sampleParams(t)

	he, err := hsmcl.Keygen([]byte("test-tumbler"))
	require.NoError(t, err)

	promiseTumbler0, err := puzzlepromise.NewTumbler(pp, he)
	require.NoError(t, err)

	receiver0, err := NewReceiver(pp, he.Pub)
	require.NoError(t, err)

	promiseMsg0, err := promiseTumbler0.NextMessage()
	require.NoError(t, err)

	receiver1, err := receiver0.Receive(promiseMsg0)
	require.NoError(t, err)

	promiseMsg1 := receiver1.NextMessage()

	promiseTumbler1, err := promiseTumbler0.Receive(promiseMsg1)
	require.NoError(t, err)

	promiseMsg2, err := promiseTumbler1.NextMessage()
	require.NoError(t, err)

	receiver2, err := receiver1.Receive(promiseMsg2)
	require.NoError(t, err)

	lock := receiver2.Lock()

	sender0, err := NewSender(pp, lock, he.Pub)
	require.NoError(t, err)

	solverTumbler0, err := puzzlesolver.NewTumbler(pp, he)
	require.NoError(t, err)

	solverMsg0 := sender0.NextMessage()

	solverTumbler1, err := solverTumbler0.Receive(solverMsg0)
	require.NoError(t, err)

	solverMsg1, err := solverTumbler1.NextMessage()
	require.NoError(t, err)

	sender1, err := sender0.Receive(solverMsg1)
	require.NoError(t, err)

	// Forge a puzzle point unrelated to tau*A'.
	_, err = sender1.Receive(puzzlesolver.Message3{APrimePrime: lock.APrime})
	require.ErrorIs(t, err, ErrPuzzleTweakMismatch)
}
