package txbuilder

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/a2l/curve"
)

func samplePartialFundTx(t *testing.T) *psbt.Packet {
	t.Helper()

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0},
	})

	// A change output belonging to the wallet, preserved after the
	// joint output that MakeTransactions prepends.
	changeAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		make([]byte, 20), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	changeScript, err := txscript.PayToAddrScript(changeAddr)
	require.NoError(t, err)
	tx.AddTxOut(wire.NewTxOut(5_000_000, changeScript))

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)
	return packet
}

func sampleParams(t *testing.T) Params {
	t.Helper()

	redeemAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		make([]byte, 20), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	refundAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		append(make([]byte, 19), 0x01), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	return Params{
		PartialFundTx:     samplePartialFundTx(t),
		JointOutputValue:  JointOutputValueFor(1_000_000, 10, MaxSatisfactionWeight),
		Takeout:           1_000_000,
		Expiry:            144,
		RedeemAddress:     redeemAddr,
		RefundAddress:     refundAddr,
		ChainParams:       &chaincfg.RegressionNetParams,
	}
}

func TestMakeTransactionsPrependsJointOutput(t *testing.T) {
	ownerA, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	ownerB, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	params := sampleParams(t)
	params.OwnerA = ownerA.PK
	params.OwnerB = ownerB.PK

	txs, err := MakeTransactions(params)
	require.NoError(t, err)

	require.Len(t, txs.Fund.TxOut, 2)
	require.Equal(t, int64(params.JointOutputValue), txs.Fund.TxOut[0].Value)

	require.Len(t, txs.Redeem.TxOut, 1)
	require.Equal(t, int64(params.Takeout), txs.Redeem.TxOut[0].Value)

	require.Equal(t, uint32(0), txs.Redeem.LockTime)
	require.Equal(t, params.Expiry, txs.Refund.LockTime)
	require.NotEqual(t, wire.MaxTxInSequenceNum, txs.Refund.TxIn[0].Sequence)
}

func TestMakeTransactionsDeterministic(t *testing.T) {
	ownerA, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	ownerB, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	params := sampleParams(t)
	params.OwnerA = ownerA.PK
	params.OwnerB = ownerB.PK

	txs1, err := MakeTransactions(params)
	require.NoError(t, err)
	txs2, err := MakeTransactions(params)
	require.NoError(t, err)

	require.Equal(t, txs1.RedeemDigest, txs2.RedeemDigest)
	require.Equal(t, txs1.RefundDigest, txs2.RefundDigest)
}

func TestCompleteAndExtractSignatureRoundTrip(t *testing.T) {
	ownerA, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	ownerB, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	params := sampleParams(t)
	params.OwnerA = ownerA.PK
	params.OwnerB = ownerB.PK

	txs, err := MakeTransactions(params)
	require.NoError(t, err)

	sigA := curve.Sign(ownerA, txs.RedeemDigest)
	sigB := curve.Sign(ownerB, txs.RedeemDigest)

	err = CompleteSpendTransaction(
		txs.Redeem, txs.WitnessScript, ownerA.PK, sigA, ownerB.PK, sigB,
	)
	require.NoError(t, err)

	extracted, err := ExtractSignatureByKey(txs.Redeem, txs.RedeemDigest, ownerA.PK)
	require.NoError(t, err)
	require.Equal(t, sigA, extracted)
}

func TestExpectedBalanceAfterTumble(t *testing.T) {
	balances := ExpectedBalanceAfterTumble(10_000_000, 10_000, 10, MaxSatisfactionWeight)

	require.EqualValues(t, 10_015_460, balances.SenderFundOut)
	require.EqualValues(t, 10_005_460, balances.TumblerFundOut)
	require.EqualValues(t, 10_010_000, balances.TumblerRedeemOut)
	require.EqualValues(t, 10_000_000, balances.ReceiverRedeemOut)
}
