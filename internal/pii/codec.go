// Package pii encrypts personally identifying fields at rest.
//
// Field values are sealed with AES-256-GCM under a fresh random nonce per
// call, so equal plaintexts never produce equal tokens. Fields that must be
// matched by equality (email) additionally get a deterministic blind index
// computed with HMAC-SHA256 under a separate key; the index is stored next to
// the token and is the only value ever used as a lookup predicate.
package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

// TokenSeparator joins the hex nonce and the hex ciphertext in a token:
//
//	<hex nonce>:<hex ciphertext+tag>
const TokenSeparator = ":"

// KeySize is the required length of both the encryption and the index key.
const KeySize = 32

// Codec is immutable once constructed and safe for concurrent use.
type Codec struct {
	aead     cipher.AEAD
	indexKey []byte
}

// NewCodec builds a codec from a 32-byte encryption key and a 32-byte index key.
func NewCodec(encKey, indexKey []byte) (*Codec, error) {
	if len(encKey) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(encKey))
	}
	if len(indexKey) != KeySize {
		return nil, fmt.Errorf("index key must be %d bytes, got %d", KeySize, len(indexKey))
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	ik := make([]byte, len(indexKey))
	copy(ik, indexKey)
	return &Codec{aead: aead, indexKey: ik}, nil
}

// Encrypt seals plaintext and returns a self-describing token.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + TokenSeparator + hex.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Structural problems wrap
// domain.ErrDecode; a payload that does not open under this key wraps
// domain.ErrCrypto.
func (c *Codec) Decrypt(token string) (string, error) {
	parts := strings.Split(token, TokenSeparator)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected 2 parts, got %d", domain.ErrDecode, len(parts))
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", domain.ErrDecode, err)
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", domain.ErrDecode, err)
	}
	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("%w: nonce length %d", domain.ErrCrypto, len(nonce))
	}

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCrypto, err)
	}
	return string(plain), nil
}

// LookupKey returns the deterministic blind index of value. Case and
// surrounding whitespace are ignored.
func (c *Codec) LookupKey(value string) string {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(Normalize(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize canonicalizes a lookup value.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
