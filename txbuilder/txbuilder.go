// Package txbuilder derives the {fund, redeem, refund} transaction bundle
// for a single joint 2-of-2 P2WSH output from a partially-constructed
// funding transaction, computes the BIP-143 digests the protocol's adaptor
// signatures cover, and completes or inspects the resulting witnesses.
package txbuilder

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/lightninglabs/a2l/curve"
)

// MaxSatisfactionWeight is the default weight budget a fee payer should size
// a spend transaction's fee against to satisfy the 2-of-2 witness; callers
// needing a different bound pass it explicitly to JointOutputValueFor.
const MaxSatisfactionWeight = 546

// ErrNoMatchingSignature is returned by ExtractSignatureByKey when no
// witness element on the first input verifies under the claimed key.
var ErrNoMatchingSignature = errors.New("txbuilder: no witness signature matches key")

// Params bundles everything MakeTransactions needs: the wallet-chosen
// partial funding transaction, the joint output's pre-fee value and its
// post-fee takeout, the two joint owners' keys, the refund's absolute
// expiry, and the redeem/refund destinations.
type Params struct {
	// PartialFundTx carries the wallet-selected inputs and any change
	// output; its TxOut is the existing output set the joint output is
	// prepended to.
	PartialFundTx *psbt.Packet

	// JointOutputValue is the amount locked into the 2-of-2 output,
	// takeout plus the spend-transaction fee reservation.
	JointOutputValue btcutil.Amount

	// Takeout is the net value leaving the joint output, after fees.
	Takeout btcutil.Amount

	OwnerA, OwnerB curve.Point

	// Expiry is the absolute block height after which the refund
	// transaction becomes valid.
	Expiry uint32

	RedeemAddress btcutil.Address
	RefundAddress btcutil.Address

	ChainParams *chaincfg.Params
}

// ProtocolParams is the session-wide configuration both legs of the
// protocol derive their per-leg Params from: the wallet-chosen partial
// funding transaction, the tumble amount and fee schedule, the refund
// expiry, and the redeem/refund destinations. The promise and solver legs
// of a single tumble each hold their own copy of the same value.
type ProtocolParams struct {
	PartialFundTx *psbt.Packet

	// TumbleAmount is the net value the receiver ends up with.
	TumbleAmount btcutil.Amount

	// TumblerFee is the tumbler's service charge, added to the takeout on
	// the sender-tumbler leg only.
	TumblerFee btcutil.Amount

	FeePerWeightUnit btcutil.Amount
	MaxSatisfactionWeight int64

	Expiry uint32

	RedeemAddress btcutil.Address
	RefundAddress btcutil.Address

	ChainParams *chaincfg.Params
}

// SenderTumblerJointOutputTakeout is the value leaving the sender-tumbler
// joint output on redemption: the tumble amount plus the tumbler's fee.
func (p ProtocolParams) SenderTumblerJointOutputTakeout() btcutil.Amount {
	return p.TumbleAmount + p.TumblerFee
}

// SenderTumblerJointOutputValue is the value locked into the sender-tumbler
// joint output, including the spend-transaction fee reservation.
func (p ProtocolParams) SenderTumblerJointOutputValue() btcutil.Amount {
	return JointOutputValueFor(p.SenderTumblerJointOutputTakeout(), p.FeePerWeightUnit, p.MaxSatisfactionWeight)
}

// TumblerReceiverJointOutputTakeout is the value leaving the
// tumbler-receiver joint output on redemption: just the tumble amount.
func (p ProtocolParams) TumblerReceiverJointOutputTakeout() btcutil.Amount {
	return p.TumbleAmount
}

// TumblerReceiverJointOutputValue is the value locked into the
// tumbler-receiver joint output, including the spend-transaction fee
// reservation.
func (p ProtocolParams) TumblerReceiverJointOutputValue() btcutil.Amount {
	return JointOutputValueFor(p.TumblerReceiverJointOutputTakeout(), p.FeePerWeightUnit, p.MaxSatisfactionWeight)
}

// MakeSenderTumblerTransactions derives the {fund, redeem, refund} bundle
// for the sender-tumbler leg, owned jointly by ownerA and ownerB.
func (p ProtocolParams) MakeSenderTumblerTransactions(ownerA, ownerB curve.Point) (*Transactions, error) {
	return MakeTransactions(Params{
		PartialFundTx:     p.PartialFundTx,
		JointOutputValue:  p.SenderTumblerJointOutputValue(),
		Takeout:           p.SenderTumblerJointOutputTakeout(),
		OwnerA:            ownerA,
		OwnerB:            ownerB,
		Expiry:            p.Expiry,
		RedeemAddress:     p.RedeemAddress,
		RefundAddress:     p.RefundAddress,
		ChainParams:       p.ChainParams,
	})
}

// MakeTumblerReceiverTransactions derives the {fund, redeem, refund} bundle
// for the tumbler-receiver leg, owned jointly by ownerA and ownerB.
func (p ProtocolParams) MakeTumblerReceiverTransactions(ownerA, ownerB curve.Point) (*Transactions, error) {
	return MakeTransactions(Params{
		PartialFundTx:     p.PartialFundTx,
		JointOutputValue:  p.TumblerReceiverJointOutputValue(),
		Takeout:           p.TumblerReceiverJointOutputTakeout(),
		OwnerA:            ownerA,
		OwnerB:            ownerB,
		Expiry:            p.Expiry,
		RedeemAddress:     p.RedeemAddress,
		RefundAddress:     p.RefundAddress,
		ChainParams:       p.ChainParams,
	})
}

// Transactions is the {fund, redeem, refund} bundle plus their signature
// digests, derived deterministically from a Params value.
type Transactions struct {
	Fund   *wire.MsgTx
	Redeem *wire.MsgTx
	Refund *wire.MsgTx

	RedeemDigest [32]byte
	RefundDigest [32]byte

	WitnessScript []byte
	JointOutput   *wire.TxOut
}

// MakeTransactions derives the fund/redeem/refund bundle from p. It is a
// pure function of its inputs: two calls with identical Params produce
// byte-identical unsigned transactions and digests.
func MakeTransactions(p Params) (*Transactions, error) {
	if p.PartialFundTx == nil || p.PartialFundTx.UnsignedTx == nil {
		return nil, errors.New("txbuilder: nil partial fund transaction")
	}

	witnessScript, jointPkScript, err := jointOutputScripts(p.OwnerA, p.OwnerB)
	if err != nil {
		return nil, err
	}

	jointOutput := wire.NewTxOut(int64(p.JointOutputValue), jointPkScript)

	fundTx := p.PartialFundTx.UnsignedTx.Copy()
	// Prepend, never write-without-extend: the original implementation
	// this is modeled on allocated outputs[0] without first growing the
	// slice. Insert the joint output ahead of the wallet's own outputs.
	fundTx.TxOut = append([]*wire.TxOut{jointOutput}, fundTx.TxOut...)

	fundTxHash := fundTx.TxHash()
	jointOutPoint := wire.OutPoint{Hash: fundTxHash, Index: 0}

	redeemTx, err := spendTx(jointOutPoint, p.Takeout, p.RedeemAddress, 0, wire.MaxTxInSequenceNum)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: building redeem tx: %w", err)
	}

	refundTx, err := spendTx(jointOutPoint, p.Takeout, p.RefundAddress, p.Expiry, wire.MaxTxInSequenceNum-1)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: building refund tx: %w", err)
	}

	prevFetcher := txscript.NewCannedPrevOutputFetcher(jointPkScript, int64(p.JointOutputValue))

	redeemDigest, err := sigHash(redeemTx, witnessScript, jointOutput.Value, prevFetcher)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: redeem digest: %w", err)
	}
	refundDigest, err := sigHash(refundTx, witnessScript, jointOutput.Value, prevFetcher)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: refund digest: %w", err)
	}

	return &Transactions{
		Fund:          fundTx,
		Redeem:        redeemTx,
		Refund:        refundTx,
		RedeemDigest:  redeemDigest,
		RefundDigest:  refundDigest,
		WitnessScript: witnessScript,
		JointOutput:   jointOutput,
	}, nil
}

// spendTx builds a single-input, single-output transaction spending
// jointOutPoint, with an initially empty witness.
func spendTx(jointOutPoint wire.OutPoint, amount btcutil.Amount,
	dest btcutil.Address, lockTime uint32, sequence uint32) (*wire.MsgTx, error) {

	destScript, err := txscript.PayToAddrScript(dest)
	if err != nil {
		return nil, fmt.Errorf("deriving destination script: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.LockTime = lockTime
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: jointOutPoint,
		Sequence:         sequence,
	})
	tx.AddTxOut(wire.NewTxOut(int64(amount), destScript))
	return tx, nil
}

// jointOutputScripts builds the 2-of-2 witness script and its P2WSH
// scriptPubKey for ownerA/ownerB, sorted so the resulting script is a
// deterministic function of the unordered key pair.
func jointOutputScripts(ownerA, ownerB curve.Point) (witnessScript, pkScript []byte, err error) {
	aPub := ownerA.ToBytes33()
	bPub := ownerB.ToBytes33()

	// Larger serialized pubkey goes first; CompleteSpendTransaction below
	// mirrors this when placing the component signatures on the witness
	// stack.
	if bytes.Compare(aPub[:], bPub[:]) == -1 {
		aPub, bPub = bPub, aPub
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_2)
	builder.AddData(aPub[:])
	builder.AddData(bPub[:])
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	witnessScript, err = builder.Script()
	if err != nil {
		return nil, nil, fmt.Errorf("building multisig script: %w", err)
	}

	scriptHash := sha256.Sum256(witnessScript)
	wshBuilder := txscript.NewScriptBuilder()
	wshBuilder.AddOp(txscript.OP_0)
	wshBuilder.AddData(scriptHash[:])
	pkScript, err = wshBuilder.Script()
	if err != nil {
		return nil, nil, fmt.Errorf("building p2wsh script: %w", err)
	}
	return witnessScript, pkScript, nil
}

// sigHash computes the BIP-143 SIGHASH_ALL digest for the single input of
// tx spending a P2WSH output with value amt and witness script script.
func sigHash(tx *wire.MsgTx, script []byte, amt int64,
	prevFetcher txscript.PrevOutputFetcher) ([32]byte, error) {

	var digest [32]byte
	sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)
	h, err := txscript.CalcWitnessSigHash(script, sigHashes, txscript.SigHashAll, tx, 0, amt)
	if err != nil {
		return digest, err
	}
	copy(digest[:], h)
	return digest, nil
}

// CompleteSpendTransaction populates tx's sole input's witness with the
// 2-of-2 satisfaction for witnessScript, placing (pubA, sigA) and
// (pubB, sigB) in the stack order the descriptor requires.
func CompleteSpendTransaction(tx *wire.MsgTx, witnessScript []byte,
	pubA curve.Point, sigA curve.Signature,
	pubB curve.Point, sigB curve.Signature) error {

	if len(tx.TxIn) != 1 {
		return errors.New("txbuilder: expected exactly one input")
	}

	aPub := pubA.ToBytes33()
	bPub := pubB.ToBytes33()
	aSig := serializeWitnessSig(sigA)
	bSig := serializeWitnessSig(sigB)

	witness := make(wire.TxWitness, 4)
	// OP_CHECKMULTISIG pops one extra stack element; a nil placeholder
	// eats it.
	witness[0] = nil

	if bytes.Compare(aPub[:], bPub[:]) == -1 {
		witness[1] = bSig
		witness[2] = aSig
	} else {
		witness[1] = aSig
		witness[2] = bSig
	}
	witness[3] = witnessScript

	tx.TxIn[0].Witness = witness
	return nil
}

// serializeWitnessSig renders a protocol Signature as a DER-encoded ECDSA
// signature with the SIGHASH_ALL byte appended, as Bitcoin consensus rules
// require on the witness stack.
func serializeWitnessSig(sig curve.Signature) []byte {
	r, s := sig.R.ModN(), sig.S.ModN()
	ecSig := ecdsa.NewSignature(&r, &s)
	der := ecSig.Serialize()
	return append(der, byte(txscript.SigHashAll))
}

// ExtractSignatureByKey inspects the witness of tx's first input and
// returns the signature element that verifies under pubKey against digest.
func ExtractSignatureByKey(tx *wire.MsgTx, digest [32]byte, pubKey curve.Point) (curve.Signature, error) {
	if len(tx.TxIn) != 1 {
		return curve.Signature{}, errors.New("txbuilder: expected exactly one input")
	}

	for _, elem := range tx.TxIn[0].Witness {
		if len(elem) < 9 {
			continue
		}
		der := elem[:len(elem)-1]
		parsed, err := ecdsa.ParseDERSignature(der)
		if err != nil {
			continue
		}
		if parsed.Verify(digest[:], pubKey.PubKey()) {
			r, s := parsed.R(), parsed.S()
			rScalar, err := curve.ScalarFromModN(r)
			if err != nil {
				continue
			}
			sScalar, err := curve.ScalarFromModN(s)
			if err != nil {
				continue
			}
			return curve.Signature{R: rScalar, S: sScalar}, nil
		}
	}
	return curve.Signature{}, ErrNoMatchingSignature
}

// JointOutputValueFor returns the amount that must be locked in the joint
// output so that, after the spend-transaction fee, exactly takeout remains.
func JointOutputValueFor(takeout btcutil.Amount, feePerWeightUnit btcutil.Amount, maxSatWeight int64) btcutil.Amount {
	return takeout + feePerWeightUnit*btcutil.Amount(maxSatWeight)
}

// ExpectedBalances bundles the four joint-output/redeem values a happy-path
// tumble produces, matching the literal scenario table this protocol's
// end-to-end tests are checked against.
type ExpectedBalances struct {
	SenderFundOut     btcutil.Amount
	TumblerFundOut    btcutil.Amount
	TumblerRedeemOut  btcutil.Amount
	ReceiverRedeemOut btcutil.Amount
}

// ExpectedBalanceAfterTumble computes the four values a successful tumble of
// tumbleAmount, charging tumblerFee and feePerWeightUnit per weight unit of
// maxSatWeight, must produce on both legs.
func ExpectedBalanceAfterTumble(tumbleAmount, tumblerFee, feePerWeightUnit btcutil.Amount,
	maxSatWeight int64) ExpectedBalances {

	solverTakeout := tumbleAmount + tumblerFee
	promiseTakeout := tumbleAmount

	return ExpectedBalances{
		SenderFundOut:     JointOutputValueFor(solverTakeout, feePerWeightUnit, maxSatWeight),
		TumblerFundOut:    JointOutputValueFor(promiseTakeout, feePerWeightUnit, maxSatWeight),
		TumblerRedeemOut:  solverTakeout,
		ReceiverRedeemOut: promiseTakeout,
	}
}

// GetTransactionWeight computes the BIP-141 weight (4*base size + witness
// size) of tx, used to check the redeem-weight-cap testable property
// against MaxSatisfactionWeight.
func GetTransactionWeight(tx *wire.MsgTx) int64 {
	base := tx.SerializeSizeStripped()
	total := tx.SerializeSize()
	witnessSize := total - base
	return int64(base*4 + witnessSize)
}

// HashFromBytes32 is a small convenience used by puzzlepromise/puzzlesolver
// to hand a digest through as a chainhash.Hash where the surrounding code
// wants that type (e.g. logging, message framing).
func HashFromBytes32(b [32]byte) chainhash.Hash {
	var h chainhash.Hash
	copy(h[:], b[:])
	return h
}
