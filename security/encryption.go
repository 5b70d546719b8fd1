package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MasterKeySize is the required size of the master cookie key in bytes.
const MasterKeySize = 32

// Sealer provides authenticated encryption for browser-held cookie payloads
// using AES-256-GCM. The encryption key is derived from the master key via
// HKDF-SHA256 with the purpose as the info parameter, and the purpose is
// additionally bound as associated data, so ciphertext sealed for one
// purpose never opens under another.
type Sealer struct {
	aead    cipher.AEAD
	purpose string
}

// NewSealer creates a sealer for the given purpose.
// The master key must be exactly 32 bytes.
func NewSealer(masterKey []byte, purpose string) (*Sealer, error) {
	if len(masterKey) != MasterKeySize {
		return nil, fmt.Errorf("master key must be exactly %d bytes for AES-256, got %d", MasterKeySize, len(masterKey))
	}
	if purpose == "" {
		return nil, fmt.Errorf("sealer purpose is required")
	}

	key := make([]byte, MasterKeySize)
	kdf := hkdf.New(sha256.New, masterKey, nil, []byte("cookie:"+purpose))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: aead, purpose: purpose}, nil
}

// Seal encrypts and authenticates the plaintext.
// Returns base64url-encoded [nonce][ciphertext] suitable for a cookie value.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext to the nonce slice, producing [nonce][ciphertext]
	sealed := s.aead.Seal(nonce, nonce, plaintext, []byte(s.purpose))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a base64url-encoded sealed value.
// Fails on any tampering, truncation, or purpose mismatch.
func (s *Sealer) Open(encoded string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("sealed value too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(s.purpose))
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed value: %w", err)
	}

	return plaintext, nil
}

// GenerateKey generates a new 32-byte master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// KeyFromBase64 decodes a base64-encoded master key.
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", MasterKeySize, len(key))
	}
	return key, nil
}

// KeyToBase64 encodes a master key to base64.
func KeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// GenerateRandomToken returns a base64url-encoded random token with the
// given number of bytes of entropy.
func GenerateRandomToken(numBytes int) (string, error) {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
