// Package certs implements the X.509-style certificate model and the
// Certificate Authority that issues and verifies them, grounded on
// original_source/crypto/certificate.py and crypto/ca.py.
package certs

import (
	"time"

	"github.com/infosec-bank/ledger/internal/canonjson"
)

// defaultValidity is the lifetime stamped on an issued certificate.
// Enforcement is left as an open question — validity
// fields are informational only in this core.
const defaultValidity = 365 * 24 * time.Hour

// Certificate binds a subject identifier to an RSA public key, attested by
// a CA signature over its canonical fields.
type Certificate struct {
	SerialNumber string `json:"serial_number"`
	Subject      string `json:"subject"`
	Issuer       string `json:"issuer"`
	PublicKey    string `json:"public_key"`
	ValidFrom    string `json:"valid_from"`
	ValidTo      string `json:"valid_to"`
	Signature    string `json:"signature"`
}

// signingFields returns the canonical-JSON input for signing or verifying
// cert: every field except Signature, keys sorted ascending.
func signingFields(cert Certificate) map[string]interface{} {
	return map[string]interface{}{
		"serial_number": cert.SerialNumber,
		"subject":       cert.Subject,
		"issuer":        cert.Issuer,
		"public_key":    cert.PublicKey,
		"valid_from":    cert.ValidFrom,
		"valid_to":      cert.ValidTo,
	}
}

// CanonicalSigningInput returns the exact bytes a CA signs or verifies
// against for cert.
func CanonicalSigningInput(cert Certificate) ([]byte, error) {
	return canonjson.MarshalMap(signingFields(cert))
}

func newUnsigned(serial, subject, issuer, publicKeyPEM string, now time.Time) Certificate {
	return Certificate{
		SerialNumber: serial,
		Subject:      subject,
		Issuer:       issuer,
		PublicKey:    publicKeyPEM,
		ValidFrom:    now.UTC().Format(time.RFC3339),
		ValidTo:      now.UTC().Add(defaultValidity).Format(time.RFC3339),
	}
}
