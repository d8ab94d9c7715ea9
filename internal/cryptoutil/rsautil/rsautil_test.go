package rsautil_test

import (
	"testing"

	"github.com/infosec-bank/ledger/internal/cryptoutil/rsautil"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	priv, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	data := []byte("canonical transaction bytes")
	sig, err := rsautil.Sign(priv, data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !rsautil.Verify(pub, data, sig) {
		t.Fatalf("expected signature to verify against the matching public key")
	}
}

func TestVerifyFailsOnMutatedData(t *testing.T) {
	priv, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	sig, err := rsautil.Sign(priv, []byte("original"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if rsautil.Verify(pub, []byte("mutated"), sig) {
		t.Fatalf("expected verification to fail for mutated data")
	}
}

func TestVerifyFailsOnWrongKey(t *testing.T) {
	priv, _, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	_, otherPub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	data := []byte("payload")
	sig, err := rsautil.Sign(priv, data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if rsautil.Verify(otherPub, data, sig) {
		t.Fatalf("expected verification against a different key to fail")
	}
}

func TestVerifyFailsOnGarbageSignature(t *testing.T) {
	_, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if rsautil.Verify(pub, []byte("payload"), "not-base64!!") {
		t.Fatalf("expected malformed base64 signature to fail verification, not error")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	priv, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	sessionKey := []byte("0123456789abcdef0123456789abcdef")[:32]
	ct, err := rsautil.Encrypt(pub, sessionKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := rsautil.Decrypt(priv, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != string(sessionKey) {
		t.Fatalf("round-tripped key = %x, want %x", pt, sessionKey)
	}
}

func TestDecryptFailsWithWrongPrivateKey(t *testing.T) {
	_, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	otherPriv, _, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	ct, err := rsautil.Encrypt(pub, []byte("session-key-bytes"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := rsautil.Decrypt(otherPriv, ct); err == nil {
		t.Fatalf("expected decryption with the wrong private key to fail")
	}
}

func TestParsePrivateKeyRejectsGarbage(t *testing.T) {
	if _, err := rsautil.ParsePrivateKey("not a pem block"); err == nil {
		t.Fatalf("expected an error for a non-PEM private key")
	}
}

func TestPublicPEMFromKeyMatchesGeneratedPublic(t *testing.T) {
	priv, pub, err := rsautil.GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	key, err := rsautil.ParsePrivateKey(priv)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if rsautil.PublicPEMFromKey(&key.PublicKey) != pub {
		t.Fatalf("PublicPEMFromKey did not reproduce the original public PEM")
	}
}
