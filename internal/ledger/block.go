package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/infosec-bank/ledger/internal/canonjson"
)

// Block is one mined, linked unit of the chain. It carries
// a single transaction, embedded as a Transaction value (a JSON object in the
// persisted chain) rather than the original's opaque AES hex blob: the transaction
// already carries its own hybrid-encrypted memo, so a second layer of
// block-level encryption only hid the very envelope readers need to verify
// signatures against.
type Block struct {
	Index        int         `json:"index"`
	Timestamp    string      `json:"timestamp"`
	AccountMask  string      `json:"account_mask"`
	Transaction  Transaction `json:"transaction"`
	TxHash       string      `json:"tx_hash"`
	PreviousHash string      `json:"previous_hash"`
	Nonce        int         `json:"nonce"`
	Hash         string      `json:"hash"`
}

// maskSubject renders a sender subject the way the chain is willing to
// show it unencrypted: its first three characters plus "***".
func maskSubject(subject string) string {
	n := len(subject)
	if n > 3 {
		n = 3
	}
	return subject[:n] + "***"
}

// transactionHash returns the SHA-256 hex digest of tx's canonical JSON
// encoding, stored alongside the block's own transaction payload so a
// reader can confirm the payload hasn't been swapped without re-deriving
// the full signing input.
func transactionHash(tx Transaction) (string, error) {
	payload, err := canonjson.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("canonicalize transaction: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// newBlock builds an unmined block linking to previousHash. The caller
// still owes it a call to mine before the hash field means anything.
func newBlock(index int, tx Transaction, previousHash string) (Block, error) {
	txHash, err := transactionHash(tx)
	if err != nil {
		return Block{}, err
	}
	return Block{
		Index:        index,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		AccountMask:  maskSubject(tx.SenderCert.Subject),
		Transaction:  tx,
		TxHash:       txHash,
		PreviousHash: previousHash,
	}, nil
}

// hashFields returns every field that feeds the block hash except Hash
// itself.
func (b Block) hashFields() map[string]interface{} {
	return map[string]interface{}{
		"index":         b.Index,
		"timestamp":     b.Timestamp,
		"account_mask":  b.AccountMask,
		"transaction":   b.Transaction,
		"tx_hash":       b.TxHash,
		"previous_hash": b.PreviousHash,
		"nonce":         b.Nonce,
	}
}

// computeHash returns the SHA-256 hex digest of b's canonical fields.
func (b Block) computeHash() (string, error) {
	payload, err := canonjson.MarshalMap(b.hashFields())
	if err != nil {
		return "", fmt.Errorf("canonicalize block: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// mine increments Nonce until computeHash yields a digest with difficulty
// leading hex zeros, matching original_source/models/block.py's
// proof-of-work loop. It sets b.Hash on success.
func (b *Block) mine(difficulty int) error {
	prefix := leadingZeroesPrefix(difficulty)
	for {
		hash, err := b.computeHash()
		if err != nil {
			return err
		}
		if hasPrefix(hash, prefix) {
			b.Hash = hash
			return nil
		}
		b.Nonce++
	}
}

func leadingZeroesPrefix(difficulty int) string {
	if difficulty <= 0 {
		return ""
	}
	zeroes := make([]byte, difficulty)
	for i := range zeroes {
		zeroes[i] = '0'
	}
	return string(zeroes)
}

func hasPrefix(hash, prefix string) bool {
	if len(hash) < len(prefix) {
		return false
	}
	return hash[:len(prefix)] == prefix
}

// verifyHash reports whether b.Hash matches its own recomputed digest,
// i.e. the block has not been tampered with after mining.
func (b Block) verifyHash() bool {
	want, err := b.computeHash()
	if err != nil {
		return false
	}
	return want == b.Hash
}

// verifyProofOfWork reports whether b.Hash actually satisfies difficulty.
func (b Block) verifyProofOfWork(difficulty int) bool {
	return hasPrefix(b.Hash, leadingZeroesPrefix(difficulty))
}
