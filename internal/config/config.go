// Package config loads the ledger's runtime configuration: the fixed
// constants this core relies on (difficulty, key sizes, default balance,
// reserved usernames) plus the data directory layout, with overrides from
// a .env file and the process environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultDifficulty is the number of leading '0' hex characters a
	// mined block hash must have.
	DefaultDifficulty = 2
	// AESKeySize is the size in bytes of the symmetric key wrapped for
	// hybrid memo encryption.
	AESKeySize = 32
	// AESIVSize is the size in bytes of the AES-CBC initialization vector.
	AESIVSize = 16
	// DefaultBalance is the starting balance credited to a newly
	// registered account via a system deposit.
	DefaultBalance = 1000.00
	// CAIssuerName identifies the certificate authority in issued certs.
	CAIssuerName = "InfoSec Bank Root CA"
	// SystemSubject is the sentinel subject used for trusted system
	// deposits; it now requires a real signature
	// from a CA-issued SYSTEM certificate rather than bypassing checks.
	SystemSubject = "SYSTEM"
)

// ReservedUsernames lists subjects that can never be
// registered by a wallet.
var ReservedUsernames = map[string]bool{
	"SYSTEM": true,
	"ADMIN":  true,
	"ROOT":   true,
	"DAEMON": true,
	"GUEST":  true,
}

// IsReserved reports whether subject (case-insensitively) is reserved.
func IsReserved(subject string) bool {
	return ReservedUsernames[strings.ToUpper(subject)]
}

// Config holds the resolved runtime settings for a ledger process.
type Config struct {
	DataDir    string
	Difficulty int
	ListenAddr string
}

// filenames under DataDir.
const (
	LedgerFile       = "ledger.json"
	CertificatesFile = "certificates.json"
	CAKeyFile        = "ca_key.pem"
	AuditLogFile     = "audit_log.txt"
	KeystoreDir      = "keystore"
)

// Load resolves configuration from (in increasing priority order): built-in
// defaults, a .env file in the current directory if present, and process
// environment variables. A missing .env file is not an error — godotenv.Load
// is best-effort, matching how a bare `config.py` module behaved in the
// system this core was distilled from (always-present, never fatal if a
// local override file is absent).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:    "data",
		Difficulty: DefaultDifficulty,
		ListenAddr: "127.0.0.1:5005",
	}

	if v := os.Getenv("LEDGER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LEDGER_DIFFICULTY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Difficulty = n
		}
	}
	if v := os.Getenv("LEDGER_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	return cfg
}
