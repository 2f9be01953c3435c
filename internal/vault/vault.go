package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/pbkdf2"

	"github.com/premierstats/fpl-mcp/internal/platform/logging"
)

// ErrNotFound means no credentials are available from any source. Callers
// treat this as "not configured", not as a failure.
var ErrNotFound = errors.New("no credentials found")

const (
	encryptedFileName = "credentials.enc"
	saltSize          = 16
	nonceSize         = 12
	keySize           = 32
	kdfIterations     = 600_000
)

// Credentials is the single login record one installation holds.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TeamID   string `json:"team_id" validate:"required,numeric"`
}

// Vault owns the encrypted credential file. The encryption key is derived
// from machine- and user-specific material, which deliberately binds the file
// to one machine and account: copying it elsewhere, or renaming the host or
// user, makes it permanently undecryptable.
type Vault struct {
	configDir string
	logger    *logging.Logger
	validate  *validator.Validate

	// Overridable in tests: slow KDF and hardware identity don't belong in CI.
	iterations  int
	keyMaterial func() []byte
}

func New(configDir string, logger *logging.Logger) *Vault {
	if logger == nil {
		logger = logging.Default()
	}
	v := &Vault{
		configDir:  configDir,
		logger:     logger,
		validate:   validator.New(),
		iterations: kdfIterations,
	}
	v.keyMaterial = v.defaultKeyMaterial
	return v
}

func (v *Vault) encryptedPath() string {
	return filepath.Join(v.configDir, encryptedFileName)
}

// Store validates, encrypts, and durably persists the credentials. The write
// is atomic: a crash mid-write never leaves a truncated credential file.
func (v *Vault) Store(creds Credentials) error {
	if err := v.validate.Struct(creds); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	if err := os.MkdirAll(v.configDir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	blob, err := v.encrypt(creds)
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}

	if err := writeFileAtomic(v.encryptedPath(), blob, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}

	v.logger.Info("credentials stored", "path", v.encryptedPath())
	return nil
}

// Load returns the stored credentials, preferring the encrypted file and
// falling back to the legacy plaintext sources. Decryption failures (wrong
// machine, corrupted file, tampering) degrade to the legacy chain rather
// than surfacing as errors.
func (v *Vault) Load() (Credentials, error) {
	blob, err := os.ReadFile(v.encryptedPath())
	if err == nil {
		creds, decErr := v.decrypt(blob)
		if decErr == nil && creds.complete() {
			return creds, nil
		}
		if decErr != nil {
			v.logger.Warn("failed to decrypt stored credentials, trying legacy sources", "error", decErr)
		}
	} else if !os.IsNotExist(err) {
		v.logger.Warn("failed to read credential file, trying legacy sources", "error", err)
	}

	return v.loadLegacy()
}

// Has reports whether any source can produce complete credentials.
func (v *Vault) Has() bool {
	_, err := v.Load()
	return err == nil
}

// Clear deletes the encrypted record. Legacy plaintext files are never
// touched.
func (v *Vault) Clear() error {
	err := os.Remove(v.encryptedPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

// MigrateLegacy copies credentials from the first answering legacy source
// into the encrypted store. Legacy files are left in place.
func (v *Vault) MigrateLegacy() (bool, error) {
	if _, err := os.Stat(v.encryptedPath()); err == nil {
		return false, nil
	}

	creds, err := v.loadLegacy()
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := v.Store(creds); err != nil {
		return false, fmt.Errorf("migrate legacy credentials: %w", err)
	}

	v.logger.Info("migrated legacy credentials to encrypted storage; legacy files preserved")
	return true, nil
}

func (c Credentials) complete() bool {
	return c.Email != "" && c.Password != "" && c.TeamID != ""
}

// encrypt produces salt || nonce || AES-256-GCM ciphertext of the JSON
// record. The salt rides along so decryption can re-derive the same key.
func (v *Vault) encrypt(creds Credentials) ([]byte, error) {
	plaintext, err := sonic.Marshal(creds)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	aead, err := v.newAEAD(salt)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return blob, nil
}

func (v *Vault) decrypt(blob []byte) (Credentials, error) {
	if len(blob) < saltSize+nonceSize+1 {
		return Credentials{}, fmt.Errorf("credential file too short")
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	sealed := blob[saltSize+nonceSize:]

	aead, err := v.newAEAD(salt)
	if err != nil {
		return Credentials{}, err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypt: %w", err)
	}

	var creds Credentials
	if err := sonic.Unmarshal(plaintext, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

func (v *Vault) newAEAD(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(v.keyMaterial(), salt, v.iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// defaultKeyMaterial combines machine identifier, OS username, home directory
// path, and hostname. All four are required inputs so a copied file cannot be
// opened under a different account on the same machine.
func (v *Vault) defaultKeyMaterial() []byte {
	machineID := machineIdentifier(v.logger)

	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "unknown"
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	material := make([]byte, 0, len(machineID)+len(username)+len(home)+len(hostname))
	material = append(material, machineID...)
	material = append(material, username...)
	material = append(material, home...)
	material = append(material, hostname...)
	return material
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
