// Package cryptox implements the content cipher used to protect message
// bodies at rest. A 256-bit key is derived once at startup from a
// secret+salt pair; the same pair always yields the same key, which is
// load-bearing: content encrypted under one key is unreadable under any
// other.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived AES key length in bytes (AES-256).
	KeySize = 32

	// keyIterations matches the PBKDF2 iteration count used when the
	// existing stored content was written. Changing it re-keys everything.
	keyIterations = 65536
)

var (
	// ErrMalformedToken reports input that is not a valid encoded
	// ciphertext (bad base64 or a length that is not a whole number of
	// cipher blocks). It indicates corruption, not key rotation.
	ErrMalformedToken = errors.New("malformed ciphertext token")

	// ErrInvalidCiphertext reports input that decodes cleanly but does not
	// decrypt under the current key, typically content written under a
	// previously active key. Read paths tolerate this error.
	ErrInvalidCiphertext = errors.New("invalid ciphertext for current key")
)

// DeriveKey produces the symmetric key from the configured secret and salt
// using PBKDF2-HMAC-SHA256. Both inputs must be non-empty; a failure here is
// fatal to startup since the service cannot run without a key.
func DeriveKey(secret, salt string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	if salt == "" {
		return nil, errors.New("encryption salt is empty")
	}
	return pbkdf2.Key([]byte(secret), []byte(salt), keyIterations, KeySize, sha256.New), nil
}

// Cipher turns plaintext message bodies into opaque storable tokens and
// back. It holds only the derived key schedule, which is immutable, so a
// single Cipher is safe for concurrent use.
type Cipher struct {
	block cipher.Block
}

func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes init: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Encrypt encrypts plaintext with AES-ECB plus PKCS#7 padding and encodes
// the result as base64. The transformation is deterministic: the same
// plaintext under the same key always yields the same token. That is the
// format the stored data already uses; a nonce-based mode would re-key
// every existing message body.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		c.block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt under the current key.
//
// Failure modes are distinct so callers can react per kind:
//   - ErrMalformedToken: not valid base64, or not whole blocks;
//   - ErrInvalidCiphertext: padding check failed, i.e. content written
//     under a different key;
//   - anything else is wrapped as a generic decryption error.
func (c *Cipher) Decrypt(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrMalformedToken
	}

	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		c.block.Decrypt(out[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding byte")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
