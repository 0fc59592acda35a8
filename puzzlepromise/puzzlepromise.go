// Package puzzlepromise implements the tumbler-receiver leg of the tumble
// protocol: the tumbler issues an adaptor signature over the
// tumbler-receiver redeem transaction, encrypted under a fresh puzzle
// point A = alpha*G, and additionally proves (via HSM-CL) that an
// encryption of alpha under its own long-term key matches A. The receiver
// never learns alpha directly; it only forwards a re-blinded puzzle to the
// sender (package a2l wires that handoff).
package puzzlepromise

import (
	"github.com/go-errors/errors"

	"github.com/lightninglabs/a2l/adaptor"
	"github.com/lightninglabs/a2l/curve"
	"github.com/lightninglabs/a2l/hsmcl"
	"github.com/lightninglabs/a2l/txbuilder"
)

// ErrUnexpectedMessage is returned when a message arrives that the current
// state variant does not accept.
var ErrUnexpectedMessage = errors.New("puzzlepromise: unexpected message")

// ErrNoMessage is returned by NextMessage when the current state has no
// outbound message to produce.
var ErrNoMessage = errors.New("puzzlepromise: no message to send")

// Message0 is the tumbler's opening message: its redeem-side identity, the
// puzzle point A = alpha*G, and an HSM-CL ciphertext/proof binding an
// encryption of alpha to A under the tumbler's long-term key.
type Message0 struct {
	Xt      curve.Point
	A       curve.Point
	CAlpha  hsmcl.Ciphertext
	PiAlpha hsmcl.Proof
}

// Message1 is the receiver's reply: its redeem-side identity and its half
// of the refund co-signature.
type Message1 struct {
	Xr         curve.Point
	SigRefundR curve.Signature
}

// Message2 carries the tumbler's adaptor signature over the
// tumbler-receiver redeem digest, encrypted under A.
type Message2 struct {
	SigRedeemT adaptor.EncryptedSignature
}

// Tumbler0 is the tumbler's initial state: it has drawn its fresh identity
// x_t and puzzle secret alpha, and is waiting to hear the receiver's half
// of the refund transaction.
type Tumbler0 struct {
	xt    curve.KeyPair
	alpha curve.KeyPair
	he    hsmcl.KeyPair
	pp    txbuilder.ProtocolParams
}

// Tumbler1 holds the co-signed refund transaction and is ready to issue
// the adaptor-signed redeem message.
type Tumbler1 struct {
	xt                      curve.KeyPair
	alpha                   curve.KeyPair
	transactions            *txbuilder.Transactions
	signedRefundTransaction *txbuilder.Transactions
}

// NewTumbler draws a fresh tumbler-side identity and puzzle secret for a
// new tumbler-receiver session.
func NewTumbler(pp txbuilder.ProtocolParams, he hsmcl.KeyPair) (Tumbler0, error) {
	xt, err := curve.GenerateKeyPair()
	if err != nil {
		return Tumbler0{}, err
	}
	alpha, err := curve.GenerateKeyPair()
	if err != nil {
		return Tumbler0{}, err
	}
	return Tumbler0{xt: xt, alpha: alpha, he: he, pp: pp}, nil
}

// NextMessage produces Message0: the tumbler's identity, puzzle point, and
// the HSM-CL encryption of alpha under its own long-term key.
func (t Tumbler0) NextMessage() (Message0, error) {
	cAlpha, piAlpha, err := hsmcl.Encrypt(t.he.Pub, t.alpha)
	if err != nil {
		return Message0{}, err
	}
	return Message0{
		Xt:      t.xt.PK,
		A:       t.alpha.PK,
		CAlpha:  cAlpha,
		PiAlpha: piAlpha,
	}, nil
}

// Receive consumes the receiver's Message1, builds the shared transaction
// bundle, verifies and co-signs the refund transaction, and retains the
// completed refund locally. Only after this succeeds may the tumbler
// broadcast its fund transaction.
func (t Tumbler0) Receive(msg Message1) (Tumbler1, error) {
	transactions, err := t.pp.MakeTumblerReceiverTransactions(t.xt.PK, msg.Xr)
	if err != nil {
		return Tumbler1{}, err
	}

	if !curve.Verify(msg.Xr, transactions.RefundDigest, msg.SigRefundR) {
		return Tumbler1{}, errors.New("puzzlepromise: invalid receiver refund signature")
	}

	sigRefundT := curve.Sign(t.xt, transactions.RefundDigest)

	if err := txbuilder.CompleteSpendTransaction(
		transactions.Refund, transactions.WitnessScript,
		t.xt.PK, sigRefundT, msg.Xr, msg.SigRefundR,
	); err != nil {
		return Tumbler1{}, err
	}

	return Tumbler1{
		xt:                      t.xt,
		alpha:                   t.alpha,
		transactions:            transactions,
		signedRefundTransaction: transactions,
	}, nil
}

// NextMessage produces Message2: the adaptor signature over the redeem
// digest, locked to the puzzle point A.
func (t Tumbler1) NextMessage() (Message2, error) {
	sigRedeemT, err := adaptor.EncSign(t.xt, t.alpha.PK, t.transactions.RedeemDigest)
	if err != nil {
		return Message2{}, err
	}
	return Message2{SigRedeemT: sigRedeemT}, nil
}

// FundTransaction returns the unsigned fund transaction for this session.
func (t Tumbler1) FundTransaction() *txbuilder.Transactions {
	return t.transactions
}

// RefundTransaction returns the fully co-signed refund transaction,
// available for broadcast after the expiry height.
func (t Tumbler1) RefundTransaction() *txbuilder.Transactions {
	return t.signedRefundTransaction
}

// Alpha exposes the tumbler's puzzle secret, needed by the caller to hand
// the completed puzzle chain over to the solver leg once this session's
// redeem transaction is eventually broadcast.
func (t Tumbler1) Alpha() curve.KeyPair {
	return t.alpha
}
