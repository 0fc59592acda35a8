package a2l

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/lightninglabs/a2l/adaptor"
	"github.com/lightninglabs/a2l/curve"
	"github.com/lightninglabs/a2l/hsmcl"
	"github.com/lightninglabs/a2l/puzzlesolver"
	"github.com/lightninglabs/a2l/txbuilder"
)

// SolvedPuzzle is the sender's final outbound message, delivered directly
// to the receiver once the sender has observed the tumbler's redeem
// broadcast and recovered the doubly-blinded puzzle secret.
type SolvedPuzzle struct {
	AlphaBar curve.Scalar
}

// Sender0 is the sender's initial state: it holds the puzzle handed down
// from the receiver leg, the tumbler's HSM-CL public key, and a fresh
// sender-side identity, and is waiting to emit its opening message.
type Sender0 struct {
	xs    curve.KeyPair
	lock  Lock
	pp    Params
	hePub hsmcl.PublicKey
}

// Sender1 has received the tumbler's identity and refund signature share
// and drawn its blinding factor tau; it emits the re-blinded puzzle
// ciphertext and waits for the tumbler's puzzle point A''.
type Sender1 struct {
	xs         curve.KeyPair
	lock       Lock
	pp         Params
	hePub      hsmcl.PublicKey
	xt         curve.Point
	sigRefundT curve.Signature
	tau        curve.KeyPair
}

// Sender2 has emitted the re-blinded puzzle ciphertext and co-signed the
// refund transaction, and is waiting to emit its adaptor-signed redeem
// message.
type Sender2 struct {
	xs                      curve.KeyPair
	tau                     curve.KeyPair
	aPrimePrime             curve.Point
	transactions            *txbuilder.Transactions
	signedRefundTransaction *txbuilder.Transactions
	sigRedeemS              adaptor.EncryptedSignature
}

// Sender3 is terminal: it holds the recovered puzzle secret alpha_bar and
// is ready to forward it to the receiver.
type Sender3 struct {
	alphaBar                curve.Scalar
	signedRefundTransaction *txbuilder.Transactions
}

// NewSender starts a new sender session for a puzzle handed down from a
// completed puzzle-promise leg. hePub is the tumbler's HSM-CL public key,
// needed to re-randomise the puzzle ciphertext under the same modulus it
// was encrypted against.
func NewSender(pp Params, lock Lock, hePub hsmcl.PublicKey) (Sender0, error) {
	xs, err := curve.GenerateKeyPair()
	if err != nil {
		return Sender0{}, err
	}
	return Sender0{xs: xs, lock: lock, pp: pp, hePub: hePub}, nil
}

// NextMessage produces the sender's opening message: its redeem-side
// identity.
func (s Sender0) NextMessage() puzzlesolver.Message0 {
	return puzzlesolver.Message0{Xs: s.xs.PK}
}

// Receive consumes the tumbler's Message1 and draws a fresh re-blinding
// factor tau for the sender's own leg of the puzzle.
func (s Sender0) Receive(msg puzzlesolver.Message1) (Sender1, error) {
	tau, err := curve.GenerateKeyPair()
	if err != nil {
		return Sender1{}, err
	}
	return Sender1{
		xs:         s.xs,
		lock:       s.lock,
		pp:         s.pp,
		hePub:      s.hePub,
		xt:         msg.Xt,
		sigRefundT: msg.SigRefundT,
		tau:        tau,
	}, nil
}

// NextMessage produces the doubly-blinded puzzle ciphertext
// c_alpha'' = multiply(c_alpha', tau).
func (s Sender1) NextMessage() puzzlesolver.Message2 {
	cAlphaPrimePrime := hsmcl.Multiply(s.hePub, s.lock.CAlphaPrime, s.tau.SK)
	return puzzlesolver.Message2{CAlphaPrimePrime: cAlphaPrimePrime}
}

// Receive consumes the tumbler's Message3, verifying the puzzle tweak
// binds correctly before building and co-signing the sender-tumbler
// transaction bundle.
func (s Sender1) Receive(msg puzzlesolver.Message3) (Sender2, error) {
	expected := curve.PointMul(s.lock.APrime, s.tau.SK)
	if !expected.Equal(msg.APrimePrime) {
		return Sender2{}, ErrPuzzleTweakMismatch
	}

	transactions, err := s.pp.MakeSenderTumblerTransactions(s.xs.PK, s.xt)
	if err != nil {
		return Sender2{}, err
	}

	if !curve.Verify(s.xt, transactions.RefundDigest, s.sigRefundT) {
		return Sender2{}, ErrInvalidSignature
	}

	sigRefundS := curve.Sign(s.xs, transactions.RefundDigest)
	if err := txbuilder.CompleteSpendTransaction(
		transactions.Refund, transactions.WitnessScript,
		s.xs.PK, sigRefundS, s.xt, s.sigRefundT,
	); err != nil {
		return Sender2{}, err
	}

	sigRedeemS, err := adaptor.EncSign(s.xs, msg.APrimePrime, transactions.RedeemDigest)
	if err != nil {
		return Sender2{}, err
	}

	return Sender2{
		xs:                      s.xs,
		tau:                     s.tau,
		aPrimePrime:             msg.APrimePrime,
		transactions:            transactions,
		signedRefundTransaction: transactions,
		sigRedeemS:              sigRedeemS,
	}, nil
}

// NextMessage produces the sender's adaptor signature over the redeem
// digest, locked to A''.
func (s Sender2) NextMessage() puzzlesolver.Message4 {
	return puzzlesolver.Message4{SigRedeemS: s.sigRedeemS}
}

// RefundTransaction returns the fully co-signed sender-tumbler refund
// transaction, available for broadcast after expiry.
func (s Sender2) RefundTransaction() *txbuilder.Transactions {
	return s.signedRefundTransaction
}

// Receive consumes the observed redeem transaction the tumbler broadcasts,
// extracting and decrypting the puzzle secret gamma, then stripping the
// sender's own blinding factor tau to recover alpha_bar = gamma * tau^-1.
func (s Sender2) Receive(redeemTx *wire.MsgTx) (Sender3, error) {
	sig, err := txbuilder.ExtractSignatureByKey(redeemTx, s.transactions.RedeemDigest, s.xs.PK)
	if err != nil {
		return Sender3{}, ErrUnexpectedTransaction
	}

	gammaKp, err := adaptor.Recover(sig, adaptor.RecKey(s.aPrimePrime, s.sigRedeemS))
	if err != nil {
		return Sender3{}, ErrRecoveryMismatch
	}

	alphaBar := gammaKp.SK.Mul(s.tau.SK.Inv())
	log.Debugf("sender: recovered alpha_bar from tumbler redeem broadcast")

	return Sender3{alphaBar: alphaBar, signedRefundTransaction: s.signedRefundTransaction}, nil
}

// NextMessage produces the solved puzzle to deliver directly to the
// receiver.
func (s Sender3) NextMessage() SolvedPuzzle {
	return SolvedPuzzle{AlphaBar: s.alphaBar}
}

// RefundTransaction returns the fully co-signed sender-tumbler refund
// transaction, available for broadcast after expiry.
func (s Sender3) RefundTransaction() *txbuilder.Transactions {
	return s.signedRefundTransaction
}
