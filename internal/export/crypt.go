package export

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
	"github.com/zarlcorp/core/pkg/zcrypto"
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Changing any of them makes existing encrypted
// exports unreadable.
const (
	kdfIterations = 100_000
	kdfKeyLen     = 32
)

var kdfSalt = []byte("salt_")

// ErrDecrypt is returned when a token cannot be opened with the password.
var ErrDecrypt = errors.New("decryption failed: wrong password or corrupt data")

// deriveKey stretches password with PBKDF2-HMAC-SHA256 and returns it as a
// Fernet key.
func deriveKey(password string) (*fernet.Key, error) {
	raw := pbkdf2.Key([]byte(password), kdfSalt, kdfIterations, kdfKeyLen, sha256.New)
	defer zcrypto.Erase(raw)

	k, err := fernet.DecodeKey(base64.URLEncoding.EncodeToString(raw))
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return k, nil
}

// Encrypt returns data as a Fernet token keyed by password.
func Encrypt(data []byte, password string) ([]byte, error) {
	k, err := deriveKey(password)
	if err != nil {
		return nil, err
	}
	defer zcrypto.Erase(k[:])

	tok, err := fernet.EncryptAndSign(data, k)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return tok, nil
}

// Decrypt opens a token produced by Encrypt.
func Decrypt(token []byte, password string) ([]byte, error) {
	k, err := deriveKey(password)
	if err != nil {
		return nil, err
	}
	defer zcrypto.Erase(k[:])

	msg := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{k})
	if msg == nil {
		return nil, ErrDecrypt
	}
	return msg, nil
}
