// Package aesutil implements AES-256-CBC with PKCS#7 padding and a random
// IV, matching original_source/crypto/crypto_manager.py's AES branch
// (the package's Vigenère fallback for a missing crypto library has no
// place in an idiomatic Go build and is not carried forward).
package aesutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/infosec-bank/ledger/internal/bankerr"
)

const ivSize = aes.BlockSize // 16 bytes

// Encrypt pads plaintext with PKCS#7, encrypts it under AES-256-CBC with a
// fresh random IV, and returns iv || ciphertext.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bankerr.ErrKeyImportFailed, err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)

	out := make([]byte, ivSize+len(padded))
	iv := out[:ivSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out[ivSize:], padded)

	return out, nil
}

// Decrypt splits the leading ivSize bytes off ivPlusCT as the IV, decrypts
// the remainder under AES-256-CBC, and strips PKCS#7 padding.
func Decrypt(ivPlusCT, key []byte) ([]byte, error) {
	if len(ivPlusCT) < ivSize {
		return nil, bankerr.ErrCiphertextTooShort
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bankerr.ErrKeyImportFailed, err)
	}

	iv := ivPlusCT[:ivSize]
	ct := ivPlusCT[ivSize:]
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the block size", bankerr.ErrDecryptionFailed)
	}

	padded := make([]byte, len(ct))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(padded, ct)

	return pkcs7Unpad(padded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", bankerr.ErrDecryptionFailed)
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > n || padLen > aes.BlockSize {
		return nil, fmt.Errorf("%w: invalid padding", bankerr.ErrDecryptionFailed)
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: invalid padding", bankerr.ErrDecryptionFailed)
		}
	}
	return data[:n-padLen], nil
}
