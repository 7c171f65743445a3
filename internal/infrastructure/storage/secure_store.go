package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/you/ratelink/domain"
)

// secureVaultInfo is the HKDF info label binding derived keys to this vault
const secureVaultInfo = "ratelink-secure-store"

// SecureStoreImpl implements domain.SecureStore as an encrypted file vault.
// The whole vault is a single JSON map sealed with AES-256-GCM; the key is
// derived from a per-device secret via HKDF-SHA256. It is the stand-in for
// the platform keystore and holds only the biometric-unlock credentials.
type SecureStoreImpl struct {
	path string
	key  []byte
	mu   sync.Mutex
}

// NewSecureStore creates a secure store at path, deriving the sealing key
// from the device secret at secretPath. A missing secret is generated and
// persisted with owner-only permissions.
func NewSecureStore(path, secretPath string) (*SecureStoreImpl, error) {
	secret, err := loadOrCreateDeviceSecret(secretPath)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 32)
	h := hkdf.New(sha256.New, secret, nil, []byte(secureVaultInfo))
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return &SecureStoreImpl{path: path, key: key}, nil
}

func loadOrCreateDeviceSecret(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil && len(data) >= 32 {
		return data, nil
	}
	secret := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, err
	}
	return secret, nil
}

// SaveCredentials implements domain.SecureStore. Saving credentials also
// marks biometric unlock as enabled, mirroring the plain/secure split of
// the persisted layout.
func (s *SecureStoreImpl) SaveCredentials(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return err
	}
	vault, err := s.read()
	if err != nil {
		vault = map[string]string{}
	}
	vault[SecureKeyToken] = session.Token
	vault[SecureKeyUser] = string(userJSON)
	vault[SecureKeyBiometric] = "true"
	return s.write(vault)
}

// LoadCredentials implements domain.SecureStore
func (s *SecureStoreImpl) LoadCredentials(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vault, err := s.read()
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	token, okToken := vault[SecureKeyToken]
	userJSON, okUser := vault[SecureKeyUser]
	if !okToken || !okUser {
		return nil, domain.ErrSessionNotFound
	}
	var user domain.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, domain.ErrStoreCorrupt
	}
	session := &domain.Session{User: &user, Token: token}
	if !session.Valid() {
		return nil, domain.ErrStoreCorrupt
	}
	return session, nil
}

// BiometricEnabled implements domain.SecureStore
func (s *SecureStoreImpl) BiometricEnabled(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vault, err := s.read()
	if err != nil {
		return false, nil
	}
	return vault[SecureKeyBiometric] == "true", nil
}

// Clear implements domain.SecureStore. The whole vault is destroyed, the
// encrypted-storage equivalent of EncryptedStorage.clear().
func (s *SecureStoreImpl) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *SecureStoreImpl) read() (map[string]string, error) {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, domain.ErrStoreCorrupt
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrStoreCorrupt
	}
	var vault map[string]string
	if err := json.Unmarshal(plaintext, &vault); err != nil {
		return nil, domain.ErrStoreCorrupt
	}
	return vault, nil
}

func (s *SecureStoreImpl) write(vault map[string]string) error {
	plaintext, err := json.Marshal(vault)
	if err != nil {
		return err
	}
	gcm, err := s.aead()
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return os.WriteFile(s.path, sealed, 0o600)
}

func (s *SecureStoreImpl) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Compile-time interface compliance verification
var _ domain.SecureStore = (*SecureStoreImpl)(nil)
