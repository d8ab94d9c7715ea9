package ledger

import "testing"

func TestMineSatisfiesDifficulty(t *testing.T) {
	b, err := newBlock(1, Transaction{Type: TxDeposit}, "deadbeef")
	if err != nil {
		t.Fatalf("newBlock: %v", err)
	}
	if err := b.mine(2); err != nil {
		t.Fatalf("mine: %v", err)
	}
	if !b.verifyProofOfWork(2) {
		t.Fatalf("hash %q does not satisfy difficulty 2", b.Hash)
	}
	if !b.verifyHash() {
		t.Fatalf("mined block hash does not match recomputed hash")
	}
}

func TestVerifyHashDetectsTamper(t *testing.T) {
	b, err := newBlock(1, Transaction{Type: TxDeposit}, "deadbeef")
	if err != nil {
		t.Fatalf("newBlock: %v", err)
	}
	if err := b.mine(1); err != nil {
		t.Fatalf("mine: %v", err)
	}

	b.Transaction.Amount = 999999
	if b.verifyHash() {
		t.Fatalf("expected tampering with transaction payload to invalidate the hash")
	}
}

func TestMineZeroDifficultyTerminatesImmediately(t *testing.T) {
	b, err := newBlock(0, Transaction{Type: TxDeposit}, "0")
	if err != nil {
		t.Fatalf("newBlock: %v", err)
	}
	if err := b.mine(0); err != nil {
		t.Fatalf("mine: %v", err)
	}
	if b.Nonce != 0 {
		t.Fatalf("expected zero difficulty to accept the first hash tried, nonce = %d", b.Nonce)
	}
}
