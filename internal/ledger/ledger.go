// Package ledger contains the transaction and blockchain data model: the
// signed, hybrid-encrypted Transaction, the mined Block, and the
// append-only Blockchain that validates and persists them. It is grounded
// on original_source/models/{transaction,block,blockchain}.py, generalized
// into the teacher repo's mutex-guarded-manager idiom
// (internal/blockchain/blockchain.go in BigBossBooling-Empower1-Re-Start).
package ledger
