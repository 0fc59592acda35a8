// Package puzzlesolver implements the sender-tumbler leg of the tumble
// protocol: the sender re-blinds the puzzle it received from the receiver
// leg, demands the tumbler solve it in exchange for an adaptor signature on
// the sender-tumbler redeem transaction, and the tumbler's on-chain redeem
// broadcast is the only action in the whole protocol that reveals the
// solved puzzle.
package puzzlesolver

import (
	"github.com/go-errors/errors"

	"github.com/lightninglabs/a2l/adaptor"
	"github.com/lightninglabs/a2l/curve"
	"github.com/lightninglabs/a2l/hsmcl"
	"github.com/lightninglabs/a2l/txbuilder"
)

// ErrUnexpectedMessage is returned when a message arrives that the current
// state variant does not accept.
var ErrUnexpectedMessage = errors.New("puzzlesolver: unexpected message")

// ErrUnexpectedTransaction is returned when a transaction observation
// arrives that the current state variant does not accept.
var ErrUnexpectedTransaction = errors.New("puzzlesolver: unexpected transaction")

// ErrNoMessage is returned by NextMessage when the current state has no
// outbound message to produce.
var ErrNoMessage = errors.New("puzzlesolver: no message to send")

// ErrNoTransaction is returned when the current state has no transaction
// to surface.
var ErrNoTransaction = errors.New("puzzlesolver: no transaction available")

// Message0 is the sender's opening message: its redeem-side identity.
type Message0 struct {
	Xs curve.Point
}

// Message1 is the tumbler's reply: its redeem-side identity and its half
// of the refund co-signature.
type Message1 struct {
	Xt         curve.Point
	SigRefundT curve.Signature
}

// Message2 carries the doubly-blinded puzzle ciphertext, re-randomised by
// the sender's own tau on top of whatever blinding the promise leg applied.
type Message2 struct {
	CAlphaPrimePrime hsmcl.Ciphertext
}

// Message3 carries the tumbler's re-derived puzzle point after decrypting
// Message2, A'' = gamma*G where gamma = tau*beta*alpha.
type Message3 struct {
	APrimePrime curve.Point
}

// Message4 carries the sender's adaptor signature over the sender-tumbler
// redeem digest, locked to A''.
type Message4 struct {
	SigRedeemS adaptor.EncryptedSignature
}

// Tumbler0 is the tumbler's initial state, holding its long-term HSM-CL
// keypair and waiting for the sender's identity.
type Tumbler0 struct {
	xt curve.KeyPair
	he hsmcl.KeyPair
	pp txbuilder.ProtocolParams
}

// Tumbler1 holds the shared transaction bundle and its own refund
// signature share, waiting for the doubly-blinded puzzle.
type Tumbler1 struct {
	xt           curve.KeyPair
	he           hsmcl.KeyPair
	xs           curve.Point
	sigRefundT   curve.Signature
	transactions *txbuilder.Transactions
}

// Tumbler2 holds the decrypted puzzle secret gamma, waiting to emit A''.
type Tumbler2 struct {
	xt           curve.KeyPair
	xs           curve.Point
	gamma        curve.KeyPair
	transactions *txbuilder.Transactions
}

// Tumbler4 is terminal: it holds the fully signed, broadcast-ready redeem
// transaction. Publishing it is the step that reveals gamma.
type Tumbler4 struct {
	signedRedeemTransaction *txbuilder.Transactions
}

// NewTumbler starts a fresh sender-tumbler session for the tumbler side.
func NewTumbler(pp txbuilder.ProtocolParams, he hsmcl.KeyPair) (Tumbler0, error) {
	xt, err := curve.GenerateKeyPair()
	if err != nil {
		return Tumbler0{}, err
	}
	return Tumbler0{xt: xt, he: he, pp: pp}, nil
}

// Receive consumes Message0, builds the shared transaction bundle, and
// signs the tumbler's half of the refund.
func (t Tumbler0) Receive(msg Message0) (Tumbler1, error) {
	transactions, err := t.pp.MakeSenderTumblerTransactions(msg.Xs, t.xt.PK)
	if err != nil {
		return Tumbler1{}, err
	}

	sigRefundT := curve.Sign(t.xt, transactions.RefundDigest)

	return Tumbler1{
		xt:           t.xt,
		he:           t.he,
		xs:           msg.Xs,
		sigRefundT:   sigRefundT,
		transactions: transactions,
	}, nil
}

// NextMessage produces Message1: the tumbler's identity and refund
// signature share.
func (t Tumbler1) NextMessage() (Message1, error) {
	return Message1{Xt: t.xt.PK, SigRefundT: t.sigRefundT}, nil
}

// Receive consumes Message2, decrypting the doubly-blinded puzzle
// ciphertext under the tumbler's long-term HSM-CL key to recover
// gamma = tau*beta*alpha.
func (t Tumbler1) Receive(msg Message2) (Tumbler2, error) {
	gammaScalar, err := t.he.Decrypt(msg.CAlphaPrimePrime)
	if err != nil {
		return Tumbler2{}, err
	}

	return Tumbler2{
		xt:           t.xt,
		xs:           t.xs,
		gamma:        curve.KeyPairFromScalar(gammaScalar),
		transactions: t.transactions,
	}, nil
}

// NextMessage produces Message3: the re-derived puzzle point A'' = gamma*G.
// Emitting it carries no new secret material; the state only advances on
// the subsequent Receive of Message4.
func (t Tumbler2) NextMessage() (Message3, error) {
	return Message3{APrimePrime: t.gamma.PK}, nil
}

// Receive consumes Message4, verifies the sender's adaptor signature
// decrypts correctly under gamma, co-signs the redeem transaction, and
// completes it. The caller broadcasting the result is the only on-chain
// event that reveals gamma.
func (t Tumbler2) Receive(msg Message4) (Tumbler4, error) {
	sigRedeemS, err := adaptor.DecSig(t.gamma, msg.SigRedeemS)
	if err != nil {
		return Tumbler4{}, err
	}

	if !curve.Verify(t.xs, t.transactions.RedeemDigest, sigRedeemS) {
		return Tumbler4{}, errors.New("puzzlesolver: sender redeem signature fails to verify under gamma")
	}

	sigRedeemT := curve.Sign(t.xt, t.transactions.RedeemDigest)

	if err := txbuilder.CompleteSpendTransaction(
		t.transactions.Redeem, t.transactions.WitnessScript,
		t.xs, sigRedeemS, t.xt.PK, sigRedeemT,
	); err != nil {
		return Tumbler4{}, err
	}

	return Tumbler4{signedRedeemTransaction: t.transactions}, nil
}

// RedeemTransaction returns the fully signed, broadcast-ready redeem
// transaction.
func (t Tumbler4) RedeemTransaction() *txbuilder.Transactions {
	return t.signedRedeemTransaction
}
