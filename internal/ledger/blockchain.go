package ledger

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/infosec-bank/ledger/internal/bankerr"
	"github.com/infosec-bank/ledger/internal/certs"
	"github.com/infosec-bank/ledger/internal/config"
	"github.com/infosec-bank/ledger/internal/storage"
)

// genesisPreviousHash is the fixed previous-hash value the first block in
// any chain links to: 64 zeros, the width of a SHA-256 hex digest, matching
// original_source/models/blockchain.py's `"0" * 64`.
var genesisPreviousHash = strings.Repeat("0", 64)

// Blockchain is the append-only, mutex-guarded chain of mined blocks. It is
// a single-writer structure: AddBlock holds mu for the full
// construct-mine-append-persist sequence, mirroring the teacher's
// internal/blockchain/blockchain.go manager shape.
type Blockchain struct {
	mu sync.Mutex

	dataDir    string
	chainPath  string
	difficulty int

	blocks []Block
}

// NewBlockchain loads dataDir/ledger.json if present, or creates a fresh
// chain with a single genesis block otherwise.
func NewBlockchain(dataDir string, difficulty int) (*Blockchain, error) {
	bc := &Blockchain{
		dataDir:    dataDir,
		chainPath:  filepath.Join(dataDir, config.LedgerFile),
		difficulty: difficulty,
	}

	var stored []Block
	ok, err := storage.ReadJSON(bc.chainPath, &stored)
	if err != nil {
		return nil, err
	}
	if ok && len(stored) > 0 {
		bc.blocks = stored
		log.WithField("height", len(bc.blocks)).Info("blockchain: loaded chain")
		return bc, nil
	}

	genesis, err := newBlock(0, Transaction{Type: TxDeposit, Memo: "genesis"}, genesisPreviousHash)
	if err != nil {
		return nil, fmt.Errorf("build genesis block: %w", err)
	}
	if err := genesis.mine(bc.difficulty); err != nil {
		return nil, fmt.Errorf("mine genesis block: %w", err)
	}
	bc.blocks = []Block{genesis}
	if err := bc.persist(); err != nil {
		return nil, err
	}
	log.Info("blockchain: created genesis block")
	return bc, nil
}

func (bc *Blockchain) persist() error {
	return storage.WriteJSON(bc.chainPath, bc.blocks)
}

// Height returns the number of blocks currently in the chain.
func (bc *Blockchain) Height() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.blocks)
}

// Latest returns the most recently appended block.
func (bc *Blockchain) Latest() Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.blocks[len(bc.blocks)-1]
}

// Blocks returns a snapshot copy of the full chain, safe for a caller to
// range over without holding bc's lock.
func (bc *Blockchain) Blocks() []Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	out := make([]Block, len(bc.blocks))
	copy(out, bc.blocks)
	return out
}

// AddBlock mines a new block carrying tx atop the current tip and appends
// it under lock, so a concurrent reader of Blocks/Latest never observes a
// partially-mined or partially-persisted chain.
func (bc *Blockchain) AddBlock(tx Transaction) (Block, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	prev := bc.blocks[len(bc.blocks)-1]
	next, err := newBlock(prev.Index+1, tx, prev.Hash)
	if err != nil {
		return Block{}, fmt.Errorf("build block: %w", err)
	}
	if err := next.mine(bc.difficulty); err != nil {
		return Block{}, fmt.Errorf("mine block: %w", err)
	}

	bc.blocks = append(bc.blocks, next)
	if err := bc.persist(); err != nil {
		return Block{}, fmt.Errorf("%w: %v", bankerr.ErrStorageIO, err)
	}

	log.WithFields(log.Fields{"index": next.Index, "hash": next.Hash}).Info("blockchain: appended block")
	return next, nil
}

// IsValid walks the chain and reports whether every block (a) hashes to
// its own recorded Hash, (b) satisfies the configured proof-of-work
// difficulty, (c) links to the true previous block's hash, and, as an
// addition to the original's structural-only check, (d) carries a
// transaction whose embedded certificate and signature still verify
// against ca. The genesis block's seed transaction is exempt from (d): it
// never carried a signature to begin with. It returns (true, -1) if every
// block passes, or (false, i) for the index of the first block that
// fails any check, matching original_source/models/blockchain.py's
// (ok, first_bad_index) return convention.
func (bc *Blockchain) IsValid(ca *certs.CA) (bool, int) {
	bc.mu.Lock()
	blocks := make([]Block, len(bc.blocks))
	copy(blocks, bc.blocks)
	bc.mu.Unlock()

	for i, block := range blocks {
		if !block.verifyHash() {
			return false, i
		}
		if !block.verifyProofOfWork(bc.difficulty) {
			return false, i
		}
		if i == 0 {
			if block.PreviousHash != genesisPreviousHash {
				return false, i
			}
			continue
		}
		if block.PreviousHash != blocks[i-1].Hash {
			return false, i
		}
		if !block.Transaction.Validate(ca) {
			return false, i
		}
	}
	return true, -1
}

// ReplayBalances recomputes subject's balance by folding over every
// validated transaction in the chain in order, crediting deposits and
// incoming transfers and debiting withdrawals and outgoing transfers. This
// makes the chain itself authoritative for GET_BALANCE, instead of a
// separately maintained users.json table that could drift from the
// signed history. Unsigned or otherwise invalid
// transactions (including the genesis seed) are skipped rather than
// treated as an error, so a single corrupt block does not block balance
// recovery for every other account.
func ReplayBalances(bc *Blockchain, ca *certs.CA, subject string) float64 {
	balance := 0.0
	for _, block := range bc.Blocks() {
		tx := block.Transaction
		if tx.Signature == "" {
			continue
		}
		if !tx.Validate(ca) {
			continue
		}

		sender := tx.SenderCert.Subject
		switch tx.Type {
		case TxDeposit:
			if tx.ReceiverID == subject {
				balance += tx.Amount
			}
		case TxWithdraw:
			if sender == subject {
				balance -= tx.Amount
			}
		case TxTransfer:
			if sender == subject {
				balance -= tx.Amount
			}
			if tx.ReceiverID == subject {
				balance += tx.Amount
			}
		}
	}
	return balance
}
