package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Service seals salary columns with AES-256-GCM. An unconfigured service
// passes values through unchanged so development databases stay readable.
type Service struct {
	aead cipher.AEAD
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes after decoding, got %d", len(decoded))
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

// Seal prefixes the ciphertext with a random nonce.
func (s *Service) Seal(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Service) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return sealed, nil
	}
	size := s.aead.NonceSize()
	if len(sealed) < size {
		return nil, ErrCiphertextTooShort
	}
	return s.aead.Open(nil, sealed[:size], sealed[size:], nil)
}

// SealDecimal stores an amount by its canonical string form.
func (s *Service) SealDecimal(amount decimal.Decimal) ([]byte, error) {
	return s.Seal([]byte(amount.String()))
}

func (s *Service) OpenDecimal(sealed []byte) (decimal.Decimal, error) {
	plain, err := s.Open(sealed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decrypt amount: %w", err)
	}
	if len(plain) == 0 {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(string(plain))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decrypted amount: %w", err)
	}
	return amount, nil
}

// ResolveDecimal reads a column pair holding an amount either sealed or in
// plain text. The sealed value wins when both are present; neither yields zero.
func (s *Service) ResolveDecimal(sealed []byte, plain *string) (decimal.Decimal, error) {
	if len(sealed) > 0 {
		return s.OpenDecimal(sealed)
	}
	if plain == nil {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(*plain)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount: %w", err)
	}
	return amount, nil
}

// decodeKey accepts hex, padded or raw base64, and finally the raw bytes.
func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil {
			return decoded
		}
	}
	return []byte(raw)
}
