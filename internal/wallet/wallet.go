// Package wallet implements the client-side keystore: a wallet loads or
// generates its own RSA key pair, requests a certificate from the CA, and
// signs transactions it sends. It is grounded on
// original_source/models/wallet.py, adapted to the fixed on-disk keystore
// layout (keystore/<user_id>/{private.pem, public.pem,
// certificate.json}). It carries no server-side trust decisions: the CA
// and ledger packages remain the sole authorities on what is valid.
package wallet

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/infosec-bank/ledger/internal/bankerr"
	"github.com/infosec-bank/ledger/internal/certs"
	"github.com/infosec-bank/ledger/internal/config"
	"github.com/infosec-bank/ledger/internal/cryptoutil/rsautil"
	"github.com/infosec-bank/ledger/internal/ledger"
	"github.com/infosec-bank/ledger/internal/storage"
)

const walletKeyBits = 2048

const (
	privateKeyFile  = "private.pem"
	publicKeyFile   = "public.pem"
	certificateFile = "certificate.json"
)

// Wallet is a single user's local key material plus the certificate the CA
// issued for it.
type Wallet struct {
	UserID      string
	dir         string
	privateKey  string
	publicKey   string
	Certificate certs.Certificate
}

// Open loads user userID's keystore under dataDir/keystore/userID,
// generating a fresh RSA key pair if none exists yet. It does not contact
// the CA: callers that need a certificate call Register on a fresh wallet.
func Open(dataDir, userID string) (*Wallet, error) {
	dir := filepath.Join(dataDir, config.KeystoreDir, userID)
	w := &Wallet{UserID: userID, dir: dir}

	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	privRaw, privErr := os.ReadFile(privPath)
	pubRaw, pubErr := os.ReadFile(pubPath)
	if privErr == nil && pubErr == nil {
		w.privateKey = string(privRaw)
		w.publicKey = string(pubRaw)
	} else {
		priv, pub, err := rsautil.GenerateKeyPair(walletKeyBits)
		if err != nil {
			return nil, fmt.Errorf("generate wallet key pair: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create keystore dir: %w", err)
		}
		if err := os.WriteFile(privPath, []byte(priv), 0o600); err != nil {
			return nil, fmt.Errorf("persist private key: %w", err)
		}
		if err := os.WriteFile(pubPath, []byte(pub), 0o644); err != nil {
			return nil, fmt.Errorf("persist public key: %w", err)
		}
		w.privateKey = priv
		w.publicKey = pub
		log.WithField("user", userID).Info("wallet: generated new key pair")
	}

	var cert certs.Certificate
	if ok, err := storage.ReadJSON(filepath.Join(dir, certificateFile), &cert); err != nil {
		return nil, err
	} else if ok {
		w.Certificate = cert
	}

	return w, nil
}

// Register requests a certificate for w from ca (rejecting reserved
// subjects before ever asking, matching REGISTER's
// precondition) and persists it alongside the keystore.
func Register(dataDir, userID string, ca *certs.CA) (*Wallet, error) {
	if config.IsReserved(userID) {
		return nil, bankerr.ErrReservedUsername
	}
	if _, ok := ca.LookupBySubject(userID); ok {
		return nil, bankerr.ErrUserAlreadyExists
	}

	w, err := Open(dataDir, userID)
	if err != nil {
		return nil, err
	}

	cert, err := ca.Issue(userID, w.publicKey)
	if err != nil {
		return nil, fmt.Errorf("issue certificate: %w", err)
	}
	w.Certificate = cert

	if err := storage.WriteJSON(filepath.Join(w.dir, certificateFile), cert); err != nil {
		return nil, err
	}
	log.WithField("user", userID).Info("wallet: registered and certificate issued")
	return w, nil
}

// PublicKey returns w's PEM-encoded public key, e.g. so a sender can
// encrypt a memo for w.
func (w *Wallet) PublicKey() string {
	return w.publicKey
}

// Send builds, optionally memo-encrypts, and signs a transaction moving
// amount from w to receiverID. The caller still owns submitting it to a
// Blockchain.
func (w *Wallet) Send(receiverID string, amount float64, txType ledger.TxType, memo, receiverPublicKeyPEM string) (*ledger.Transaction, error) {
	tx := ledger.NewTransaction(w.Certificate, receiverID, amount, txType, memo)

	if receiverPublicKeyPEM != "" {
		if err := tx.EncryptMemo(receiverPublicKeyPEM); err != nil {
			return nil, err
		}
	}
	if err := tx.Sign(w.privateKey); err != nil {
		return nil, err
	}
	return tx, nil
}

// DecryptMemo decrypts tx's memo using w's own private key, e.g. when w is
// the receiver reviewing its transaction history.
func (w *Wallet) DecryptMemo(tx *ledger.Transaction) string {
	return tx.DecryptMemo(w.privateKey)
}
