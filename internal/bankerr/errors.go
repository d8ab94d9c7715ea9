// Package bankerr collects the sentinel errors used across the ledger core,
// grouped by the error-kind taxonomy the system is built against:
// InvalidInput, AuthFailure, IntegrityFailure, CryptoFailure, StorageFailure,
// and StateConflict. Callers wrap these with fmt.Errorf("...: %w", ...) for
// context and compare with errors.Is.
package bankerr

import "errors"

// Kind classifies an error for callers that need to branch on category
// (e.g. an HTTP transport mapping to status codes) without inspecting
// individual sentinels.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindAuthFailure
	KindIntegrityFailure
	KindCryptoFailure
	KindStorageFailure
	KindStateConflict
)

// InvalidInput: malformed amounts, unknown recipient, self-transfer, reserved username.
var (
	ErrNonPositiveAmount      = errors.New("amount must be positive")
	ErrSelfTransfer           = errors.New("cannot transfer to self")
	ErrUnknownRecipient       = errors.New("recipient does not exist")
	ErrReservedUsername       = errors.New("username is reserved")
	ErrUserAlreadyExists      = errors.New("user id already registered")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
)

// AuthFailure: bad signature, invalid certificate.
var (
	ErrInvalidSignature   = errors.New("invalid or missing signature")
	ErrInvalidCertificate = errors.New("certificate failed CA verification")
	ErrTransactionInvalid = errors.New("transaction failed validation")
)

// IntegrityFailure: chain hash mismatch, broken link, PoW failure, replay hash mismatch.
var (
	ErrBlockHashMismatch   = errors.New("block hash does not match recomputed value")
	ErrChainLinkBroken     = errors.New("previous hash does not match prior block")
	ErrProofOfWorkFailed   = errors.New("block hash does not satisfy difficulty prefix")
	ErrPayloadHashMismatch = errors.New("transaction payload hash mismatch")
	ErrBlockIndexMismatch  = errors.New("block index does not match chain position")
)

// CryptoFailure: decryption failure, key import failure, signing failure.
var (
	ErrKeyImportFailed    = errors.New("failed to import cryptographic key")
	ErrSigningFailed      = errors.New("signing operation failed")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrCiphertextTooShort = errors.New("ciphertext shorter than IV")
)

// StorageFailure: JSON parse error, I/O error after retries.
var (
	ErrStorageIO      = errors.New("storage I/O failed after retries")
	ErrStorageCorrupt = errors.New("stored document is not valid JSON")
)

// StateConflict: concurrent state mutation failures, rollback failures.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRollbackFailed      = errors.New("balance rollback failed after a partial transfer")
	ErrConcurrentSession   = errors.New("user already has an active session")
)

// TODO: wrap these in a richer error type carrying Kind + a redacted cause
// once an external transport needs to map errors to wire status codes
// beyond the plain success/error envelope this core returns today.
