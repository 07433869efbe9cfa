package creds

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "nfsync"
	// MountCredential is the logical name of the share mount credential
	MountCredential = "mount"
)

// Credential is the username/password pair supplied to mount for CIFS
// shares and to sudo for privileged mount invocations.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Manager handles credential storage with backend fallback:
// system keyring, then encrypted file, then plain file.
type Manager struct {
	configDir      string
	useKeyring     bool
	useEncryption  bool
	storage        StorageBackend
	storageWarning string
}

// ManagerOptions configures the credential manager
type ManagerOptions struct {
	ForceEncryptedFile bool // Force use of encrypted file storage
	ForcePlainFile     bool // Force use of plain file storage (insecure, dev only)
}

// NewManager creates a new credential manager
func NewManager(configDir string) *Manager {
	return NewManagerWithOptions(configDir, ManagerOptions{})
}

// NewManagerWithOptions creates a new credential manager with specific options
func NewManagerWithOptions(configDir string, opts ManagerOptions) *Manager {
	mgr := &Manager{
		configDir: configDir,
	}

	if opts.ForcePlainFile {
		mgr.storage = NewPlainFileStorage(configDir)
		mgr.storageWarning = "WARNING: Using unencrypted file storage. Credentials are stored in plain text."
	} else if opts.ForceEncryptedFile || !checkKeyringAvailable() {
		storage, err := NewEncryptedFileStorage(configDir)
		if err != nil {
			// Fallback to plain file if encryption setup fails
			mgr.storage = NewPlainFileStorage(configDir)
			mgr.storageWarning = fmt.Sprintf("WARNING: Encryption setup failed (%v). Using plain file storage.", err)
		} else {
			mgr.storage = storage
			mgr.useEncryption = true
			if !opts.ForceEncryptedFile {
				mgr.storageWarning = "INFO: System keyring not available. Using encrypted file storage."
			}
		}
	} else {
		mgr.storage = NewKeyringStorage(serviceName)
		mgr.useKeyring = true
	}

	return mgr
}

// checkKeyringAvailable tests if the system keyring is usable
func checkKeyringAvailable() bool {
	const testKey = "nfsync-availability-probe"
	if err := keyring.Set(serviceName, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, testKey)
	return true
}

// Set stores a credential under the given logical name
func (m *Manager) Set(name string, cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := m.storage.Save(name, data); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Get loads the credential stored under the given logical name
func (m *Manager) Get(name string) (Credential, error) {
	data, err := m.storage.Load(name)
	if err != nil {
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("failed to parse stored credential: %w", err)
	}
	return cred, nil
}

// Clear removes the credential stored under the given logical name.
// Clearing an absent credential is a no-op.
func (m *Manager) Clear(name string) error {
	return m.storage.Delete(name)
}

// UseKeyring returns whether the manager is using the system keyring
func (m *Manager) UseKeyring() bool {
	return m.useKeyring
}

// StorageName returns the name of the active storage backend
func (m *Manager) StorageName() string {
	return m.storage.Name()
}

// StorageWarning returns a notice about degraded storage, if any
func (m *Manager) StorageWarning() string {
	return m.storageWarning
}
