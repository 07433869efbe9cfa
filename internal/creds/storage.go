package creds

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// StorageBackend defines the interface for credential storage
type StorageBackend interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
	Delete(name string) error
	Name() string
}

// KeyringStorage uses the system keyring for credential storage
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{
		serviceName: serviceName,
	}
}

func (s *KeyringStorage) Save(name string, data []byte) error {
	return keyring.Set(s.serviceName, name, string(data))
}

func (s *KeyringStorage) Load(name string) ([]byte, error) {
	data, err := keyring.Get(s.serviceName, name)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *KeyringStorage) Delete(name string) error {
	err := keyring.Delete(s.serviceName, name)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// EncryptedFileStorage stores credentials in AES-GCM encrypted files
type EncryptedFileStorage struct {
	baseDir string
	key     []byte
}

// NewEncryptedFileStorage creates an encrypted file storage backend
func NewEncryptedFileStorage(baseDir string) (*EncryptedFileStorage, error) {
	key, err := getOrCreateEncryptionKey(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}

	return &EncryptedFileStorage{
		baseDir: baseDir,
		key:     key,
	}, nil
}

func (s *EncryptedFileStorage) Save(name string, data []byte) error {
	encrypted, err := s.encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	credFile := s.getCredentialFilePath(name)
	if err := os.MkdirAll(filepath.Dir(credFile), 0700); err != nil {
		return err
	}

	return os.WriteFile(credFile, encrypted, 0600)
}

func (s *EncryptedFileStorage) Load(name string) ([]byte, error) {
	credFile := s.getCredentialFilePath(name)
	encrypted, err := os.ReadFile(credFile)
	if err != nil {
		return nil, fmt.Errorf("credentials not found for '%s'", name)
	}

	return s.decrypt(encrypted)
}

func (s *EncryptedFileStorage) Delete(name string) error {
	credFile := s.getCredentialFilePath(name)
	err := os.Remove(credFile)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *EncryptedFileStorage) Name() string {
	return "encrypted-file"
}

func (s *EncryptedFileStorage) getCredentialFilePath(name string) string {
	return filepath.Join(s.baseDir, "credentials", name+".enc")
}

// encrypt encrypts data using AES-GCM
func (s *EncryptedFileStorage) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, nil
}

// decrypt decrypts data using AES-GCM
func (s *EncryptedFileStorage) decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("invalid ciphertext")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	return plaintext, nil
}

// PlainFileStorage stores credentials in plain JSON files (development only)
type PlainFileStorage struct {
	baseDir string
}

// NewPlainFileStorage creates a plain file storage backend
func NewPlainFileStorage(baseDir string) *PlainFileStorage {
	return &PlainFileStorage{
		baseDir: baseDir,
	}
}

func (s *PlainFileStorage) Save(name string, data []byte) error {
	credFile := s.getCredentialFilePath(name)
	if err := os.MkdirAll(filepath.Dir(credFile), 0700); err != nil {
		return err
	}
	return os.WriteFile(credFile, data, 0600)
}

func (s *PlainFileStorage) Load(name string) ([]byte, error) {
	credFile := s.getCredentialFilePath(name)
	data, err := os.ReadFile(credFile)
	if err != nil {
		return nil, fmt.Errorf("credentials not found for '%s'", name)
	}
	return data, nil
}

func (s *PlainFileStorage) Delete(name string) error {
	credFile := s.getCredentialFilePath(name)
	err := os.Remove(credFile)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *PlainFileStorage) Name() string {
	return "plain-file"
}

func (s *PlainFileStorage) getCredentialFilePath(name string) string {
	return filepath.Join(s.baseDir, "credentials", name+".json")
}

// getOrCreateEncryptionKey generates or loads the encryption key
func getOrCreateEncryptionKey(baseDir string) ([]byte, error) {
	keyFile := filepath.Join(baseDir, ".keyfile")

	if data, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(data))
		if err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded), 0600); err != nil {
		return nil, err
	}

	return key, nil
}
