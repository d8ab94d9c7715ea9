package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/infosec-bank/ledger/internal/bankerr"
	"github.com/infosec-bank/ledger/internal/canonjson"
	"github.com/infosec-bank/ledger/internal/certs"
	"github.com/infosec-bank/ledger/internal/config"
	"github.com/infosec-bank/ledger/internal/cryptoutil/aesutil"
	"github.com/infosec-bank/ledger/internal/cryptoutil/rsautil"
)

// TxType enumerates the value-movement kinds a Transaction may carry.
type TxType string

const (
	TxDeposit  TxType = "deposit"
	TxWithdraw TxType = "withdraw"
	TxTransfer TxType = "transfer"
)

func (t TxType) valid() bool {
	switch t {
	case TxDeposit, TxWithdraw, TxTransfer:
		return true
	default:
		return false
	}
}

// Transaction is a signed, optionally memo-encrypted value movement, per
// SenderCert is embedded rather than referenced, so a
// transaction remains independently verifiable from its own bytes plus the
// CA's public key.
type Transaction struct {
	TxID            string            `json:"tx_id"`
	SenderCert      certs.Certificate `json:"sender_cert"`
	ReceiverID      string            `json:"receiver_id"`
	Amount          float64           `json:"amount"`
	Type            TxType            `json:"type"`
	Memo            string            `json:"memo"`
	Timestamp       string            `json:"timestamp"`
	Signature       string            `json:"signature"`
	EncryptedAESKey string            `json:"encrypted_aes_key,omitempty"`
	IV              string            `json:"iv,omitempty"`
}

// NewTransaction builds an unsigned, unencrypted transaction. Callers call
// EncryptMemo (optional) before Sign, never after — signing covers
// EncryptedAESKey and IV, so memo encryption must complete first.
func NewTransaction(senderCert certs.Certificate, receiverID string, amount float64, txType TxType, memo string) *Transaction {
	return &Transaction{
		TxID:       uuid.NewString()[:16],
		SenderCert: senderCert,
		ReceiverID: receiverID,
		Amount:     amount,
		Type:       txType,
		Memo:       memo,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// signingFields returns the full field set except Signature.
// EncryptedAESKey and IV are included, so they must already be set.
// SenderCert is always the full certificate dict: even
// system deposits embed the CA's self-signed SYSTEM certificate rather than
// the bare "SYSTEM" string literal the original bypass relied on.
func (tx *Transaction) signingFields() map[string]interface{} {
	return map[string]interface{}{
		"tx_id":             tx.TxID,
		"sender_cert":       tx.SenderCert,
		"receiver_id":       tx.ReceiverID,
		"amount":            tx.Amount,
		"type":              tx.Type,
		"memo":              tx.Memo,
		"timestamp":         tx.Timestamp,
		"encrypted_aes_key": tx.EncryptedAESKey,
		"iv":                tx.IV,
	}
}

// CanonicalSigningInput returns the exact bytes Sign and Validate operate
// over.
func (tx *Transaction) CanonicalSigningInput() ([]byte, error) {
	return canonjson.MarshalMap(tx.signingFields())
}

// EncryptMemo hybrid-encrypts tx.Memo under the recipient's RSA public key:
// a fresh AES-256 key encrypts the memo (AES-CBC, random IV), and that AES
// key is itself wrapped with RSA-OAEP. Must be called before Sign.
func (tx *Transaction) EncryptMemo(receiverPublicKeyPEM string) error {
	aesKey := make([]byte, config.AESKeySize)
	if err := randomBytes(aesKey); err != nil {
		return fmt.Errorf("generate session key: %w", err)
	}

	ivPlusCT, err := aesutil.Encrypt([]byte(tx.Memo), aesKey)
	if err != nil {
		return fmt.Errorf("%w: %v", bankerr.ErrDecryptionFailed, err)
	}

	iv := ivPlusCT[:config.AESIVSize]
	ct := ivPlusCT[config.AESIVSize:]

	wrappedKey, err := rsautil.Encrypt(receiverPublicKeyPEM, aesKey)
	if err != nil {
		return fmt.Errorf("wrap session key: %w", err)
	}

	tx.IV = base64Encode(iv)
	tx.Memo = base64Encode(ct)
	tx.EncryptedAESKey = wrappedKey
	return nil
}

// DecryptMemo reverses EncryptMemo using the receiver's private key. Per
// design, it never returns an error to the caller: any failure
// produces a sentinel string describing the failure mode, so a single
// tampered memo cannot abort history rendering.
func (tx *Transaction) DecryptMemo(receiverPrivateKeyPEM string) string {
	if tx.EncryptedAESKey == "" {
		return tx.Memo
	}

	aesKey, err := rsautil.Decrypt(receiverPrivateKeyPEM, tx.EncryptedAESKey)
	if err != nil {
		return "[memo decryption failed: invalid key]"
	}

	iv, err := base64Decode(tx.IV)
	if err != nil {
		return "[memo decryption failed: invalid iv]"
	}
	ct, err := base64Decode(tx.Memo)
	if err != nil {
		return "[memo decryption failed: invalid ciphertext]"
	}

	plaintext, err := aesutil.Decrypt(append(iv, ct...), aesKey)
	if err != nil {
		return "[memo decryption failed: bad padding or key]"
	}
	return string(plaintext)
}

// NewSystemDeposit builds an unsigned deposit transaction whose sender is
// the CA's self-signed SYSTEM certificate. The caller must still sign it
// with SignAsSystem before it can validate.
func NewSystemDeposit(ca *certs.Certificate, receiverID string, amount float64, memo string) *Transaction {
	return NewTransaction(*ca, receiverID, amount, TxDeposit, memo)
}

// SignAsSystem signs tx with the CA's own private key rather than a
// wallet's, for the one case this core trusts an unsigned-by-a-wallet
// credit: a system deposit.
func (tx *Transaction) SignAsSystem(ca *certs.CA) error {
	toSign, err := tx.CanonicalSigningInput()
	if err != nil {
		return err
	}
	sig, err := ca.SignAsSystem(toSign)
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// Sign computes the canonical signing input and signs it with the sender's
// private key.
func (tx *Transaction) Sign(senderPrivateKeyPEM string) error {
	toSign, err := tx.CanonicalSigningInput()
	if err != nil {
		return err
	}
	sig, err := rsautil.Sign(senderPrivateKeyPEM, toSign)
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// Validate checks tx against ca: every transaction,
// including system deposits, must carry a non-empty signature from a
// CA-verified sender certificate (closing the original bypass that trusted
// an unsigned "SYSTEM" sentinel outright; the
// registration path is what actually keeps SYSTEM out of reach of ordinary
// wallets, by rejecting reserved subjects before ever calling CA.Issue).
// Any failure collapses to false without revealing which step failed, per
// this core's AuthFailure propagation policy.
func (tx *Transaction) Validate(ca *certs.CA) bool {
	if !tx.Type.valid() {
		return false
	}
	if tx.Signature == "" {
		return false
	}
	if !ca.Verify(tx.SenderCert) {
		return false
	}

	toVerify, err := tx.CanonicalSigningInput()
	if err != nil {
		return false
	}
	return rsautil.Verify(tx.SenderCert.PublicKey, toVerify, tx.Signature)
}
