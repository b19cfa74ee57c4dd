package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrIntegrity signals that a wrapped secret failed authenticated
// decryption: either the stored blob was corrupted or the key material
// got out of sync. Callers must treat this as fatal, never retry.
var ErrIntegrity = errors.New("vault: envelope failed authentication")

// Envelope is the persisted form of a secret: the secret encrypted
// with a one-off data key, and that data key encrypted with the
// process-wide master key. The plaintext never touches storage.
type Envelope struct {
	// Secret is nonce||ciphertext||tag under the data key.
	Secret []byte
	// DataKey is nonce||ciphertext||tag of the data key under the
	// master key.
	DataKey []byte
	// KeyRef identifies this envelope's data key in storage.
	KeyRef string
}

type Vault struct {
	masterKey []byte
}

func New(masterKey []byte) (*Vault, error) {
	if len(masterKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", chacha20poly1305.KeySize, len(masterKey))
	}
	return &Vault{masterKey: masterKey}, nil
}

func NewFromBase64(encoded string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	return New(key)
}

func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	_, err = rand.Read(nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, blob []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: blob shorter than nonce", ErrIntegrity)
	}
	nonce := blob[:aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, blob[aead.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIntegrity, err.Error())
	}
	if plaintext == nil {
		// Open hands back nil for an empty plaintext, callers get the
		// same empty slice they sealed
		plaintext = []byte{}
	}
	return plaintext, nil
}

func (v *Vault) Wrap(plaintext []byte) (Envelope, error) {
	dataKey := make([]byte, chacha20poly1305.KeySize)
	_, err := rand.Read(dataKey)
	if err != nil {
		return Envelope{}, err
	}

	secret, err := seal(dataKey, plaintext)
	if err != nil {
		return Envelope{}, err
	}
	wrappedKey, err := seal(v.masterKey, dataKey)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Secret:  secret,
		DataKey: wrappedKey,
		KeyRef:  uuid.NewString(),
	}, nil
}

func (v *Vault) Unwrap(env Envelope) ([]byte, error) {
	dataKey, err := open(v.masterKey, env.DataKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := open(dataKey, env.Secret)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
