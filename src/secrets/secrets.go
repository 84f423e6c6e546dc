// Package secrets persists provider credentials encrypted at rest.
// Values are sealed with AES-256-GCM under a key derived (PBKDF2-SHA-256)
// from a random master secret created on first use. Credentials are opaque
// strings; they are never logged or validated here.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// encryptedPrefix marks a stored value as sealed:
	// ENC:base64(salt|nonce|ciphertext).
	encryptedPrefix = "ENC:"

	keySize    = 32
	saltSize   = 16
	iterations = 600000

	secretsFile = "secrets.json"
	keyFile     = "secrets.key"
)

var (
	// ErrInvalidCiphertext indicates a stored value is malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrDecryptionFailed indicates the key is wrong or the data tampered.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Store is a file-backed encrypted key-value store keyed by provider id.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	path     string
	keyPath  string
	master   []byte
	values   map[string]string
}

// Open loads (or initializes) the store under dir. The master key file is
// created with 0600 permissions on first use.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}

	s := &Store{
		path:    filepath.Join(dir, secretsFile),
		keyPath: filepath.Join(dir, keyFile),
		values:  make(map[string]string),
	}

	if err := s.loadMaster(); err != nil {
		return nil, err
	}
	if err := s.loadValues(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the credential for a provider, or the empty string when unset.
func (s *Store) Get(providerID string) (string, error) {
	s.mu.RLock()
	sealed, ok := s.values[providerID]
	s.mu.RUnlock()
	if !ok {
		return "", nil
	}
	return s.open(sealed)
}

// Set stores a credential for a provider, replacing any previous value.
// Setting the empty string removes the entry.
func (s *Store) Set(providerID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		delete(s.values, providerID)
	} else {
		sealed, err := s.seal(value)
		if err != nil {
			return err
		}
		s.values[providerID] = sealed
	}
	return s.saveValuesLocked()
}

func (s *Store) loadMaster() error {
	data, err := os.ReadFile(s.keyPath)
	if errors.Is(err, os.ErrNotExist) {
		master := make([]byte, keySize)
		if _, err := rand.Read(master); err != nil {
			return fmt.Errorf("failed to generate master secret: %w", err)
		}
		if err := os.WriteFile(s.keyPath, master, 0o600); err != nil {
			return fmt.Errorf("failed to write key file: %w", err)
		}
		s.master = master
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	if len(data) != keySize {
		return fmt.Errorf("key file %s is corrupt", s.keyPath)
	}
	s.master = data
	return nil
}

func (s *Store) loadValues() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read secrets file: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return fmt.Errorf("failed to parse secrets file: %w", err)
	}
	return nil
}

func (s *Store) saveValuesLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// seal encrypts value as ENC:base64(salt|nonce|ciphertext).
func (s *Store) seal(value string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, nonce, []byte(value), nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return encryptedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// open decrypts a sealed value.
func (s *Store) open(sealed string) (string, error) {
	if len(sealed) <= len(encryptedPrefix) || sealed[:len(encryptedPrefix)] != encryptedPrefix {
		return "", ErrInvalidCiphertext
	}

	blob, err := base64.StdEncoding.DecodeString(sealed[len(encryptedPrefix):])
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(blob) < saltSize {
		return "", ErrInvalidCiphertext
	}

	salt := blob[:saltSize]
	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	if len(blob) < saltSize+aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce := blob[saltSize : saltSize+aead.NonceSize()]
	ct := blob[saltSize+aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

func (s *Store) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.master, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
