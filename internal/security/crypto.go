package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"soundslot/pkg/spec"

	"golang.org/x/crypto/pbkdf2"
)

// ErrNotSealed is returned when a stream does not start with the sealed asset magic.
var ErrNotSealed = errors.New("not a sealed sound asset")

// DeriveKey derives a 32-byte AES key from a passphrase and salt.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, 4096, 32, sha256.New)
}

// PackKey is the key used for sealed sound assets. An empty passphrase yields nil.
func PackKey(passphrase string) []byte {
	if passphrase == "" {
		return nil
	}
	return DeriveKey(passphrase, []byte(spec.Salt))
}

// Encrypt seals data with AES-GCM and a random nonce prefix.
func Encrypt(data []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Decrypt opens data produced by Encrypt.
func Decrypt(data []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, io.ErrUnexpectedEOF
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// WriteMagic writes the sealed asset header.
func WriteMagic(w io.Writer) error {
	_, err := w.Write([]byte(spec.SealedMagic))
	return err
}

// ReadMagic consumes and validates the sealed asset header.
func ReadMagic(r io.Reader) error {
	magic := make([]byte, len(spec.SealedMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return err
	}
	if string(magic) != spec.SealedMagic {
		return ErrNotSealed
	}
	return nil
}
