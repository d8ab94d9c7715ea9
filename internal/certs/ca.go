package certs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/infosec-bank/ledger/internal/bankerr"
	"github.com/infosec-bank/ledger/internal/config"
	"github.com/infosec-bank/ledger/internal/cryptoutil/rsautil"
	"github.com/infosec-bank/ledger/internal/storage"
)

// nowFn is overridable in tests that need deterministic certificate
// timestamps.
var nowFn = time.Now

// caBits is the modulus size for the CA's own key pair. Wallet keys may be
// smaller (2048); the root of trust uses 4096.
const caBits = 4096

// CA is the Certificate Authority: it owns a long-lived RSA key pair and
// the store of certificates it has issued. Issuance is serialized by mu;
// Verify is stateless and lock-free, matching this core's concurrency
// model (readers observe either the pre- or post-issuance snapshot).
type CA struct {
	mu sync.Mutex

	issuer     string
	privateKey string
	publicKey  string

	dataDir  string
	certPath string

	// certificates is replaced wholesale (copy-on-write) on each issuance
	// so that concurrent readers never observe a partially-built map.
	certificates map[string]Certificate
}

// NewCertificateAuthority loads the CA's key pair from dataDir/ca_key.pem,
// generating and persisting a fresh one if absent, then loads the
// certificate store from dataDir/certificates.json. It also ensures a
// self-signed SYSTEM certificate exists, closing the bypass the original
// flags: system deposits must carry a real signature from this
// certificate's private key, which only the CA/ledger process retains.
func NewCertificateAuthority(dataDir string) (*CA, error) {
	ca := &CA{
		issuer:       config.CAIssuerName,
		dataDir:      dataDir,
		certPath:     filepath.Join(dataDir, config.CertificatesFile),
		certificates: make(map[string]Certificate),
	}

	if err := ca.loadOrGenerateKeys(); err != nil {
		return nil, err
	}
	if err := ca.loadCertificates(); err != nil {
		return nil, err
	}
	if err := ca.ensureSystemCertificate(); err != nil {
		return nil, err
	}

	return ca, nil
}

func (ca *CA) keyPath() string {
	return filepath.Join(ca.dataDir, config.CAKeyFile)
}

func (ca *CA) loadOrGenerateKeys() error {
	if raw, err := os.ReadFile(ca.keyPath()); err == nil {
		priv := string(raw)
		pub, err := publicPEMFromPrivate(priv)
		if err != nil {
			return err
		}
		ca.privateKey = priv
		ca.publicKey = pub
		log.Info("ca: loaded root keys")
		return nil
	}

	log.Warn("ca: generating new root keys")
	priv, pub, err := rsautil.GenerateKeyPair(caBits)
	if err != nil {
		return fmt.Errorf("generate CA key pair: %w", err)
	}
	ca.privateKey = priv
	ca.publicKey = pub

	if err := os.MkdirAll(ca.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(ca.keyPath(), []byte(priv), 0o600); err != nil {
		return fmt.Errorf("persist CA key pair: %w", err)
	}
	log.Info("ca: root keys generated and saved")
	return nil
}

func publicPEMFromPrivate(privPEM string) (string, error) {
	key, err := rsautil.ParsePrivateKey(privPEM)
	if err != nil {
		return "", err
	}
	return rsautil.PublicPEMFromKey(&key.PublicKey), nil
}

func (ca *CA) loadCertificates() error {
	var stored map[string]Certificate
	ok, err := storage.ReadJSON(ca.certPath, &stored)
	if err != nil {
		return err
	}
	if ok {
		ca.certificates = stored
	}
	log.WithField("count", len(ca.certificates)).Info("ca: loaded certificate store")
	return nil
}

func (ca *CA) saveCertificates() error {
	return storage.WriteJSON(ca.certPath, ca.certificates)
}

// ensureSystemCertificate issues a self-signed certificate for the SYSTEM
// subject if one is not already present, so that trusted system deposits
// can be signed instead of bypassing signature checks entirely.
func (ca *CA) ensureSystemCertificate() error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	for _, cert := range ca.certificates {
		if cert.Subject == config.SystemSubject {
			return nil
		}
	}

	cert := newUnsigned(uuid.NewString(), config.SystemSubject, ca.issuer, ca.publicKey, nowFn())
	if err := ca.sign(&cert); err != nil {
		return fmt.Errorf("sign SYSTEM certificate: %w", err)
	}

	next := cloneCertMap(ca.certificates)
	next[cert.SerialNumber] = cert
	ca.certificates = next

	if err := ca.saveCertificates(); err != nil {
		return fmt.Errorf("persist SYSTEM certificate: %w", err)
	}
	log.WithField("serial", cert.SerialNumber).Info("ca: issued self-signed SYSTEM certificate")
	return nil
}

// Issue allocates a fresh certificate for subject/publicKeyPEM, signs it
// with the CA's private key, and persists the updated store.
func (ca *CA) Issue(subject, publicKeyPEM string) (Certificate, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	cert := newUnsigned(uuid.NewString(), subject, ca.issuer, publicKeyPEM, nowFn())
	if err := ca.sign(&cert); err != nil {
		return Certificate{}, err
	}

	next := cloneCertMap(ca.certificates)
	next[cert.SerialNumber] = cert
	ca.certificates = next

	if err := ca.saveCertificates(); err != nil {
		return Certificate{}, err
	}

	log.WithFields(log.Fields{"subject": subject, "serial": cert.SerialNumber}).Info("ca: issued certificate")
	return cert, nil
}

func (ca *CA) sign(cert *Certificate) error {
	toSign, err := CanonicalSigningInput(*cert)
	if err != nil {
		return err
	}
	sig, err := rsautil.Sign(ca.privateKey, toSign)
	if err != nil {
		return err
	}
	cert.Signature = sig
	return nil
}

// Verify reports whether cert carries a valid CA signature over its
// canonical fields. It never distinguishes failure causes to the caller.
func (ca *CA) Verify(cert Certificate) bool {
	toVerify, err := CanonicalSigningInput(cert)
	if err != nil {
		return false
	}
	return rsautil.Verify(ca.publicKey, toVerify, cert.Signature)
}

// Get returns the certificate with the given serial, if any.
func (ca *CA) Get(serial string) (Certificate, bool) {
	ca.mu.Lock()
	snapshot := ca.certificates
	ca.mu.Unlock()

	cert, ok := snapshot[serial]
	return cert, ok
}

// LookupBySubject linearly scans the store for a certificate whose subject
// matches. The store is expected to stay small.
func (ca *CA) LookupBySubject(subject string) (Certificate, bool) {
	ca.mu.Lock()
	snapshot := ca.certificates
	ca.mu.Unlock()

	for _, cert := range snapshot {
		if cert.Subject == subject {
			return cert, true
		}
	}
	return Certificate{}, false
}

// PublicKey returns the CA's own public key, e.g. so a SYSTEM deposit path
// can confirm which certificate to sign with.
func (ca *CA) PublicKey() string {
	return ca.publicKey
}

// SystemCertificate returns the self-signed SYSTEM certificate ensured at
// construction time.
func (ca *CA) SystemCertificate() (Certificate, bool) {
	return ca.LookupBySubject(config.SystemSubject)
}

// SignAsSystem signs arbitrary canonical bytes with the CA's own private
// key, used only for trusted system deposits originating inside the
// ledger process itself.
func (ca *CA) SignAsSystem(data []byte) (string, error) {
	return rsautil.Sign(ca.privateKey, data)
}

func cloneCertMap(m map[string]Certificate) map[string]Certificate {
	out := make(map[string]Certificate, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ErrCertificateNotFound mirrors the AuthFailure kind for lookups that miss.
var ErrCertificateNotFound = bankerr.ErrInvalidCertificate
