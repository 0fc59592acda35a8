package a2l

import (
	"github.com/lightninglabs/a2l/adaptor"
	"github.com/lightninglabs/a2l/curve"
	"github.com/lightninglabs/a2l/hsmcl"
	"github.com/lightninglabs/a2l/puzzlepromise"
	"github.com/lightninglabs/a2l/txbuilder"
)

// Receiver0 is the receiver's initial state: it holds a fresh redeem-side
// identity and the tumbler's HSM-CL public key, and is waiting for the
// tumbler's opening message.
type Receiver0 struct {
	xr    curve.KeyPair
	hePub hsmcl.PublicKey
	pp    Params
}

// Receiver1 has verified the tumbler's puzzle and built the shared
// transaction bundle; it signs its half of the refund in NextMessage and
// then waits for the tumbler's adaptor-signed redeem message.
type Receiver1 struct {
	xr           curve.KeyPair
	xt           curve.Point
	hePub        hsmcl.PublicKey
	a            curve.Point
	cAlpha       hsmcl.Ciphertext
	transactions *txbuilder.Transactions
}

// Receiver2 has re-blinded the puzzle for forwarding to the sender leg, and
// is waiting to receive the solved, unblinded puzzle secret back from the
// sender once the tumbler's redeem transaction is broadcast.
type Receiver2 struct {
	xr           curve.KeyPair
	xt           curve.Point
	hePub        hsmcl.PublicKey
	a            curve.Point
	cAlpha       hsmcl.Ciphertext
	beta         curve.KeyPair
	sigRedeemT   adaptor.EncryptedSignature
	transactions *txbuilder.Transactions
}

// Receiver3 is terminal: it holds the fully signed, broadcast-ready redeem
// transaction for the tumbler-receiver leg.
type Receiver3 struct {
	signedRedeemTransaction *txbuilder.Transactions
}

// NewReceiver starts a new receiver session. hePub is the tumbler's HSM-CL
// public key, needed to verify the encryption proof in the tumbler's
// opening message.
func NewReceiver(pp Params, hePub hsmcl.PublicKey) (Receiver0, error) {
	xr, err := curve.GenerateKeyPair()
	if err != nil {
		return Receiver0{}, err
	}
	return Receiver0{xr: xr, hePub: hePub, pp: pp}, nil
}

// Receive consumes the tumbler's Message0, verifies the HSM-CL proof binds
// the ciphertext to the puzzle point, and builds the shared transaction
// bundle. The receiver's half of the refund is signed by
// Receiver1.NextMessage.
func (r Receiver0) Receive(msg puzzlepromise.Message0) (Receiver1, error) {
	if err := hsmcl.Verify(r.hePub, msg.PiAlpha, msg.CAlpha, msg.A); err != nil {
		return Receiver1{}, ErrInvalidProof
	}

	transactions, err := r.pp.MakeTumblerReceiverTransactions(msg.Xt, r.xr.PK)
	if err != nil {
		return Receiver1{}, err
	}

	return Receiver1{
		xr:           r.xr,
		xt:           msg.Xt,
		hePub:        r.hePub,
		a:            msg.A,
		cAlpha:       msg.CAlpha,
		transactions: transactions,
	}, nil
}

// NextMessage produces Message1: the receiver's identity and its half of
// the refund co-signature.
func (r Receiver1) NextMessage() puzzlepromise.Message1 {
	sigRefundR := curve.Sign(r.xr, r.transactions.RefundDigest)
	return puzzlepromise.Message1{Xr: r.xr.PK, SigRefundR: sigRefundR}
}

// Receive consumes the tumbler's Message2, verifies the adaptor signature
// over the redeem digest and draws a fresh blinding factor beta to re-lock
// the puzzle before forwarding it to the sender leg. The receiver's own
// redeem share is signed later, in Receiver2.Receive.
func (r Receiver1) Receive(msg puzzlepromise.Message2) (Receiver2, error) {
	if err := adaptor.EncVerify(r.xt, r.a, r.transactions.RedeemDigest, msg.SigRedeemT); err != nil {
		return Receiver2{}, ErrInvalidSignature
	}

	beta, err := curve.GenerateKeyPair()
	if err != nil {
		return Receiver2{}, err
	}

	return Receiver2{
		xr:           r.xr,
		xt:           r.xt,
		hePub:        r.hePub,
		a:            r.a,
		cAlpha:       r.cAlpha,
		beta:         beta,
		sigRedeemT:   msg.SigRedeemT,
		transactions: r.transactions,
	}, nil
}

// Lock produces the re-blinded puzzle to forward to the sender leg:
// A' = beta*A and an HSM-CL ciphertext re-randomised by the same factor.
func (r Receiver2) Lock() Lock {
	return Lock{
		APrime:      curve.PointMul(r.a, r.beta.SK),
		CAlphaPrime: hsmcl.Multiply(r.hePub, r.cAlpha, r.beta.SK),
	}
}

// Receive consumes the solved puzzle the sender forwards once it has
// observed the tumbler's redeem broadcast. It strips the receiver's own
// blinding factor beta to recover the tumbler's original puzzle secret
// alpha, checks it against the puzzle point, decrypts the tumbler's
// adaptor-signed redeem signature, and completes the redeem transaction.
func (r Receiver2) Receive(msg SolvedPuzzle) (Receiver3, error) {
	alpha := msg.AlphaBar.Mul(r.beta.SK.Inv())
	alphaKp := curve.KeyPairFromScalar(alpha)

	if !alphaKp.PK.Equal(r.a) {
		return Receiver3{}, ErrRecoveryMismatch
	}

	sigRedeemT, err := adaptor.DecSig(alphaKp, r.sigRedeemT)
	if err != nil {
		return Receiver3{}, err
	}

	if !curve.Verify(r.xt, r.transactions.RedeemDigest, sigRedeemT) {
		return Receiver3{}, ErrInvalidSignature
	}

	sigRedeemR := curve.Sign(r.xr, r.transactions.RedeemDigest)

	if err := txbuilder.CompleteSpendTransaction(
		r.transactions.Redeem, r.transactions.WitnessScript,
		r.xt, sigRedeemT, r.xr.PK, sigRedeemR,
	); err != nil {
		return Receiver3{}, err
	}

	log.Debugf("receiver: completed redeem transaction for tumbler-receiver leg")
	return Receiver3{signedRedeemTransaction: r.transactions}, nil
}

// RedeemTransaction returns the fully signed, broadcast-ready redeem
// transaction.
func (r Receiver3) RedeemTransaction() *txbuilder.Transactions {
	return r.signedRedeemTransaction
}
