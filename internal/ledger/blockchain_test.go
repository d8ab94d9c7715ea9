package ledger

import (
	"testing"

	"github.com/infosec-bank/ledger/internal/certs"
	"github.com/infosec-bank/ledger/internal/cryptoutil/rsautil"
)

func mustCA(t *testing.T) *certs.CA {
	t.Helper()
	ca, err := certs.NewCertificateAuthority(t.TempDir())
	if err != nil {
		t.Fatalf("NewCertificateAuthority: %v", err)
	}
	return ca
}

func signedDeposit(t *testing.T, ca *certs.CA, receiver string, amount float64) Transaction {
	t.Helper()
	sysCert, ok := ca.SystemCertificate()
	if !ok {
		t.Fatalf("expected SYSTEM certificate to exist")
	}
	tx := NewSystemDeposit(&sysCert, receiver, amount, "")
	if err := tx.SignAsSystem(ca); err != nil {
		t.Fatalf("SignAsSystem: %v", err)
	}
	return *tx
}

func signedTransfer(t *testing.T, ca *certs.CA, senderPriv string, senderCert certs.Certificate, receiver string, amount float64) Transaction {
	t.Helper()
	tx := NewTransaction(senderCert, receiver, amount, TxTransfer, "")
	if err := tx.Sign(senderPriv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return *tx
}

func TestNewBlockchainCreatesGenesis(t *testing.T) {
	bc, err := NewBlockchain(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewBlockchain: %v", err)
	}
	if bc.Height() != 1 {
		t.Fatalf("height = %d, want 1", bc.Height())
	}
	if bc.Latest().PreviousHash != genesisPreviousHash {
		t.Fatalf("genesis previous hash = %q", bc.Latest().PreviousHash)
	}
}

func TestAddBlockLinksToPreviousHash(t *testing.T) {
	ca := mustCA(t)
	bc, err := NewBlockchain(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewBlockchain: %v", err)
	}

	genesisHash := bc.Latest().Hash
	tx := signedDeposit(t, ca, "alice", 100)
	block, err := bc.AddBlock(tx)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if block.PreviousHash != genesisHash {
		t.Fatalf("new block does not link to genesis hash")
	}
	if bc.Height() != 2 {
		t.Fatalf("height = %d, want 2", bc.Height())
	}
}

func TestIsValidDetectsTamperedBlock(t *testing.T) {
	ca := mustCA(t)
	bc, err := NewBlockchain(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewBlockchain: %v", err)
	}

	tx := signedDeposit(t, ca, "alice", 100)
	if _, err := bc.AddBlock(tx); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if valid, badIndex := bc.IsValid(ca); !valid || badIndex != -1 {
		t.Fatalf("expected freshly mined chain to be valid, got valid=%v badIndex=%d", valid, badIndex)
	}

	bc.blocks[1].Transaction.Amount = 999999
	if valid, badIndex := bc.IsValid(ca); valid || badIndex != 1 {
		t.Fatalf("expected tampered block 1 to invalidate the chain at index 1, got valid=%v badIndex=%d", valid, badIndex)
	}
}

func TestIsValidDetectsForgedSignature(t *testing.T) {
	ca := mustCA(t)
	bc, err := NewBlockchain(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewBlockchain: %v", err)
	}

	priv, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	cert, err := ca.Issue("alice", pub)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	forgedPriv, _, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	tx := NewTransaction(cert, "bob", 50, TxTransfer, "")
	if err := tx.Sign(forgedPriv); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := bc.AddBlock(*tx); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if valid, badIndex := bc.IsValid(ca); valid || badIndex != 1 {
		t.Fatalf("expected a transaction signed by the wrong key to invalidate the chain at index 1, got valid=%v badIndex=%d", valid, badIndex)
	}
}

func TestReplayBalancesFoldsDepositsAndTransfers(t *testing.T) {
	ca := mustCA(t)
	bc, err := NewBlockchain(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewBlockchain: %v", err)
	}

	alicePriv, alicePub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	aliceCert, err := ca.Issue("alice", alicePub)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	deposit := signedDeposit(t, ca, "alice", 100)
	if _, err := bc.AddBlock(deposit); err != nil {
		t.Fatalf("AddBlock deposit: %v", err)
	}

	transfer := signedTransfer(t, ca, alicePriv, aliceCert, "bob", 40)
	if _, err := bc.AddBlock(transfer); err != nil {
		t.Fatalf("AddBlock transfer: %v", err)
	}

	if got := ReplayBalances(bc, ca, "alice"); got != 60 {
		t.Fatalf("alice balance = %v, want 60", got)
	}
	if got := ReplayBalances(bc, ca, "bob"); got != 40 {
		t.Fatalf("bob balance = %v, want 40", got)
	}
}
