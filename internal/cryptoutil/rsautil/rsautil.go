// Package rsautil provides the RSA primitives the ledger builds on: PEM
// key-pair generation, PKCS#1 v1.5 signing/verification over SHA-256, and
// RSA-OAEP encryption used to wrap AES session keys. It mirrors
// original_source/crypto/rsa_manager.py one primitive at a time, but never
// reserializes its inputs — callers are responsible for producing the exact
// canonical bytes to be signed or verified.
package rsautil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/infosec-bank/ledger/internal/bankerr"
)

// GenerateKeyPair creates a new RSA key pair of the given modulus size
// (2048 or 4096 are the sizes this core uses) and returns both halves
// PEM-encoded in PKCS#1 form.
func GenerateKeyPair(bits int) (privPEM, pubPEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("generate rsa key: %w", err)
	}

	privBlock := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	pubBlock := &pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey),
	}

	return string(pem.EncodeToMemory(privBlock)), string(pem.EncodeToMemory(pubBlock)), nil
}

// PublicPEMFromKey PEM-encodes a public key in the same PKCS#1 form
// GenerateKeyPair produces, used to re-derive the public half of a key pair
// whose private key alone was persisted to disk.
func PublicPEMFromKey(pub *rsa.PublicKey) string {
	block := &pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	}
	return string(pem.EncodeToMemory(block))
}

// ParsePrivateKey decodes a PEM-encoded PKCS#1 RSA private key.
func ParsePrivateKey(privPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", bankerr.ErrKeyImportFailed)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bankerr.ErrKeyImportFailed, err)
	}
	return key, nil
}

// ParsePublicKey decodes a PEM-encoded PKCS#1 RSA public key.
func ParsePublicKey(pubPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pubPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", bankerr.ErrKeyImportFailed)
	}
	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bankerr.ErrKeyImportFailed, err)
	}
	return key, nil
}

// Sign signs data (PKCS#1 v1.5 over SHA-256) with privPEM and returns the
// base64-encoded signature. Returns an error on a malformed key; never on
// the data itself.
func Sign(privPEM string, data []byte) (string, error) {
	key, err := ParsePrivateKey(privPEM)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", bankerr.ErrSigningFailed, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a PKCS#1 v1.5 / SHA-256 signature against pubPEM. It never
// panics or returns an error for a wrong signature — only false — but does
// surface false for a malformed key or malformed base64, since those are
// also "not a valid signature" from the caller's point of view.
func Verify(pubPEM string, data []byte, sigB64 string) bool {
	key, err := ParsePublicKey(pubPEM)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil
}

// Encrypt wraps data (expected to be short — a 32-byte AES key in this
// core's usage) with RSA-OAEP/SHA-256 under pubPEM.
func Encrypt(pubPEM string, data []byte) (string, error) {
	key, err := ParsePublicKey(pubPEM)
	if err != nil {
		return "", err
	}

	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, key, data, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", bankerr.ErrKeyImportFailed, err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt using privPEM.
func Decrypt(privPEM string, ctB64 string) ([]byte, error) {
	key, err := ParsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext: %v", bankerr.ErrDecryptionFailed, err)
	}

	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bankerr.ErrDecryptionFailed, err)
	}
	return pt, nil
}
