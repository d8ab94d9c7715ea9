package ledger

import (
	"testing"

	"github.com/infosec-bank/ledger/internal/certs"
	"github.com/infosec-bank/ledger/internal/cryptoutil/rsautil"
)

func issuedWallet(t *testing.T, ca *certs.CA, subject string) (string, certs.Certificate) {
	t.Helper()
	priv, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	cert, err := ca.Issue(subject, pub)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return priv, cert
}

func TestTransactionSignAndValidate(t *testing.T) {
	ca := mustCA(t)
	priv, cert := issuedWallet(t, ca, "alice")

	tx := NewTransaction(cert, "bob", 25, TxTransfer, "lunch money")
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !tx.Validate(ca) {
		t.Fatalf("expected a correctly signed transaction to validate")
	}
}

func TestTransactionValidateRejectsUnsigned(t *testing.T) {
	ca := mustCA(t)
	_, cert := issuedWallet(t, ca, "alice")

	tx := NewTransaction(cert, "bob", 25, TxTransfer, "")
	if tx.Validate(ca) {
		t.Fatalf("expected an unsigned transaction to fail validation")
	}
}

func TestTransactionValidateRejectsTamperedAmount(t *testing.T) {
	ca := mustCA(t)
	priv, cert := issuedWallet(t, ca, "alice")

	tx := NewTransaction(cert, "bob", 25, TxTransfer, "")
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Amount = 2500
	if tx.Validate(ca) {
		t.Fatalf("expected tampering with amount after signing to fail validation")
	}
}

func TestTransactionValidateRejectsUnknownType(t *testing.T) {
	ca := mustCA(t)
	priv, cert := issuedWallet(t, ca, "alice")

	tx := NewTransaction(cert, "bob", 25, TxType("mint"), "")
	_ = tx.Sign(priv)
	if tx.Validate(ca) {
		t.Fatalf("expected an unrecognized transaction type to fail validation")
	}
}

func TestEncryptDecryptMemoRoundTrip(t *testing.T) {
	ca := mustCA(t)
	senderPriv, senderCert := issuedWallet(t, ca, "alice")
	receiverPriv, receiverCert := issuedWallet(t, ca, "bob")

	tx := NewTransaction(senderCert, "bob", 10, TxTransfer, "see you at noon")
	if err := tx.EncryptMemo(receiverCert.PublicKey); err != nil {
		t.Fatalf("EncryptMemo: %v", err)
	}
	if err := tx.Sign(senderPriv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !tx.Validate(ca) {
		t.Fatalf("expected a signed, memo-encrypted transaction to validate")
	}

	plaintext := tx.DecryptMemo(receiverPriv)
	if plaintext != "see you at noon" {
		t.Fatalf("DecryptMemo = %q, want original memo", plaintext)
	}
}

func TestDecryptMemoWithWrongKeyFailsSoft(t *testing.T) {
	ca := mustCA(t)
	senderPriv, senderCert := issuedWallet(t, ca, "alice")
	_, receiverCert := issuedWallet(t, ca, "bob")
	wrongPriv, _ := issuedWallet(t, ca, "mallory")

	tx := NewTransaction(senderCert, "bob", 10, TxTransfer, "secret plans")
	if err := tx.EncryptMemo(receiverCert.PublicKey); err != nil {
		t.Fatalf("EncryptMemo: %v", err)
	}
	if err := tx.Sign(senderPriv); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got := tx.DecryptMemo(wrongPriv)
	if got == "secret plans" {
		t.Fatalf("expected decryption with the wrong key to fail, not recover the memo")
	}
}

func TestSystemDepositRequiresRealSignature(t *testing.T) {
	ca := mustCA(t)
	sysCert, ok := ca.SystemCertificate()
	if !ok {
		t.Fatalf("expected SYSTEM certificate to exist")
	}

	tx := NewSystemDeposit(&sysCert, "alice", 1000, "")
	if tx.Validate(ca) {
		t.Fatalf("expected an unsigned system deposit to fail validation")
	}

	if err := tx.SignAsSystem(ca); err != nil {
		t.Fatalf("SignAsSystem: %v", err)
	}
	if !tx.Validate(ca) {
		t.Fatalf("expected a CA-signed system deposit to validate")
	}
}
