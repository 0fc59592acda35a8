package puzzlesolver

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/a2l/adaptor"
	"github.com/lightninglabs/a2l/curve"
	"github.com/lightninglabs/a2l/hsmcl"
	"github.com/lightninglabs/a2l/txbuilder"
)

func sampleProtocolParams(t *testing.T) txbuilder.ProtocolParams {
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

	return txbuilder.ProtocolParams{
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

func TestSenderTumblerHappyPath(t *testing.T) {
	pp := sampleProtocolParams(t)

	he, err := hsmcl.Keygen([]byte("test-tumbler"))
	require.NoError(t, err)

	senderXs, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	tumbler0, err := NewTumbler(pp, he)
	require.NoError(t, err)

	tumbler1, err := tumbler0.Receive(Message0{Xs: senderXs.PK})
	require.NoError(t, err)

	msg1, err := tumbler1.NextMessage()
	require.NoError(t, err)
	require.True(t, curve.Verify(msg1.Xt, tumbler1.transactions.RefundDigest, msg1.SigRefundT))

	// The sender leg would re-blind the puzzle it received from the
	// promise leg by tau before handing it to the tumbler; here a fresh
	// witness stands in for the already-doubly-blinded plaintext.
	doublyBlinded, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	cAlphaPrimePrime, _, err := hsmcl.Encrypt(he.Pub, doublyBlinded)
	require.NoError(t, err)

	tumbler2, err := tumbler1.Receive(Message2{CAlphaPrimePrime: cAlphaPrimePrime})
	require.NoError(t, err)
	require.True(t, tumbler2.gamma.SK.Equal(doublyBlinded.SK))

	msg3, err := tumbler2.NextMessage()
	require.NoError(t, err)
	require.True(t, msg3.APrimePrime.Equal(doublyBlinded.PK))

	sigRedeemS, err := adaptor.EncSign(senderXs, msg3.APrimePrime, tumbler2.transactions.RedeemDigest)
	require.NoError(t, err)

	tumbler4, err := tumbler2.Receive(Message4{SigRedeemS: sigRedeemS})
	require.NoError(t, err)
	require.Len(t, tumbler4.signedRedeemTransaction.Redeem.TxIn[0].Witness, 4)
}

func TestTumbler2RejectsBadSenderSignature(t *testing.T) {
	pp := sampleProtocolParams(t)

	he, err := hsmcl.Keygen([]byte("test-tumbler"))
	require.NoError(t, err)

	senderXs, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	wrongSigner, err := curve.GenerateKeyPair()
	require.NoError(t, err)

	tumbler0, err := NewTumbler(pp, he)
	require.NoError(t, err)

	tumbler1, err := tumbler0.Receive(Message0{Xs: senderXs.PK})
	require.NoError(t, err)

	doublyBlinded, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	cAlphaPrimePrime, _, err := hsmcl.Encrypt(he.Pub, doublyBlinded)
	require.NoError(t, err)

	tumbler2, err := tumbler1.Receive(Message2{CAlphaPrimePrime: cAlphaPrimePrime})
	require.NoError(t, err)

	// Signed by the wrong key: verification under the declared sender
	// identity xs must fail once the tumbler decrypts gamma.
	sigRedeemS, err := adaptor.EncSign(wrongSigner, doublyBlinded.PK, tumbler2.transactions.RedeemDigest)
	require.NoError(t, err)

	_, err = tumbler2.Receive(Message4{SigRedeemS: sigRedeemS})
	require.Error(t, err)
}
