package vault

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Store owns the two on-disk artifacts of a vault (salt file and encrypted
// container) and the key and records of the current session.
//
// Nothing is written to disk except by Initialize and Save.
type Store struct {
	SaltPath  string
	VaultPath string
	KDF       *KDFParams

	fs  afero.Fs
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	state   State
	key     *memguard.LockedBuffer
	records *Repository
	saved   uint64
	digest  [sha256.Size]byte
}

type Option func(*Store)

// WithFs replaces the OS filesystem, mainly for tests.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store for the given artifact paths. kdf is only used
// when a new vault is initialized; existing vaults use the parameters in
// their header.
func NewStore(saltPath, vaultPath string, kdf *KDFParams, opts ...Option) *Store {
	if kdf == nil {
		kdf = DefaultKDFParams()
	}
	s := &Store{
		SaltPath:  saltPath,
		VaultPath: vaultPath,
		KDF:       kdf,
		fs:        afero.NewOsFs(),
		log:       zap.NewNop(),
		now:       time.Now,
		state:     Locked,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State reports where the store is in its lifecycle. While not unlocked it
// looks at the disk: with neither artifact present the vault is
// Uninitialized.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentState()
}

func (s *Store) currentState() State {
	if s.state == Unlocked || s.state == Closed {
		return s.state
	}
	saltOK, _ := afero.Exists(s.fs, s.SaltPath)
	vaultOK, _ := afero.Exists(s.fs, s.VaultPath)
	if !saltOK && !vaultOK {
		return Uninitialized
	}
	return Locked
}

// Initialize creates a new vault protected by passphrase and leaves it
// unlocked with no records. It refuses to touch an existing salt or
// container.
func (s *Store) Initialize(passphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.currentState() {
	case Closed:
		return ErrClosed
	case Unlocked:
		return ErrAlreadyInitialized
	}
	if len(passphrase) == 0 {
		return fmt.Errorf("%w: master password is required", ErrValidation)
	}
	for _, p := range []string{s.SaltPath, s.VaultPath} {
		if ok, err := afero.Exists(s.fs, p); err != nil {
			return fmt.Errorf("%w: stat %s: %w", ErrIO, p, err)
		} else if ok {
			return fmt.Errorf("%w: %s exists", ErrAlreadyInitialized, p)
		}
	}
	params := *s.KDF
	if err := params.Validate(); err != nil {
		return err
	}

	salt, err := randBytes(SaltLen)
	if err != nil {
		return fmt.Errorf("vault: salt: %w", err)
	}
	key, err := DeriveKey(passphrase, salt, params)
	if err != nil {
		return err
	}
	lb := memguard.NewBufferFromBytes(key)

	for _, dir := range []string{filepath.Dir(s.SaltPath), filepath.Dir(s.VaultPath)} {
		if err := s.fs.MkdirAll(dir, 0o700); err != nil {
			lb.Destroy()
			return fmt.Errorf("%w: create %s: %w", ErrIO, dir, err)
		}
	}
	if err := atomicWriteFile(s.fs, s.SaltPath, salt, 0o600); err != nil {
		lb.Destroy()
		return fmt.Errorf("%w: write salt: %w", ErrIO, err)
	}

	// From here on a failure must not leave a salt without a container, or
	// the vault could neither be opened nor initialized again.
	rollback := func() {
		lb.Destroy()
		if err := s.fs.Remove(s.SaltPath); err != nil {
			s.log.Warn("could not remove salt after failed initialize",
				zap.String("path", s.SaltPath), zap.Error(err))
		}
	}

	repo := NewRepository(nil)
	repo.now = s.now
	raw, err := s.seal(lb.Bytes(), params, repo)
	if err != nil {
		rollback()
		return err
	}
	if err := atomicWriteFile(s.fs, s.VaultPath, raw, 0o600); err != nil {
		rollback()
		return fmt.Errorf("%w: write container: %w", ErrIO, err)
	}

	s.KDF = &params
	s.key = lb
	s.records = repo
	s.saved = repo.Revision()
	s.digest = sha256.Sum256(raw)
	s.state = Unlocked
	s.log.Info("vault initialized",
		zap.String("path", s.VaultPath),
		zap.Stringer("kdf", params.Algo),
	)
	return nil
}

// Open decrypts the container with passphrase. A wrong passphrase and a
// tampered container both yield ErrAuthFailed and leave the store locked.
func (s *Store) Open(passphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.currentState() {
	case Closed:
		return ErrClosed
	case Unlocked:
		return ErrUnlocked
	case Uninitialized:
		return ErrNotInitialized
	}
	if len(passphrase) == 0 {
		return fmt.Errorf("%w: master password is required", ErrValidation)
	}

	salt, err := s.readArtifact(s.SaltPath)
	if err != nil {
		return err
	}
	if err := checkSalt(salt); err != nil {
		return err
	}
	raw, err := s.readArtifact(s.VaultPath)
	if err != nil {
		return err
	}
	header, aad, sealed, err := decodeContainer(raw)
	if err != nil {
		return err
	}

	key, err := DeriveKey(passphrase, salt, header.KDF)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	lb := memguard.NewBufferFromBytes(key)

	pt, err := Open(lb.Bytes(), sealed, aad)
	if err != nil {
		lb.Destroy()
		s.log.Debug("vault open rejected", zap.Error(err))
		return ErrAuthFailed
	}
	records, err := DecodeRecords(pt)
	Zero(pt)
	if err != nil {
		lb.Destroy()
		return err
	}

	repo := NewRepository(records)
	repo.now = s.now
	kdf := header.KDF
	s.KDF = &kdf
	s.key = lb
	s.records = repo
	s.saved = repo.Revision()
	s.digest = sha256.Sum256(raw)
	s.state = Unlocked
	s.log.Info("vault unlocked", zap.Int("records", repo.Len()))
	return nil
}

// Save seals the current records under a fresh nonce and replaces the
// container atomically. Until Save returns nil the records are not
// persisted and Dirty stays true.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return err
	}

	current, err := afero.ReadFile(s.fs, s.VaultPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: read container: %w", ErrIO, err)
	}
	if sum := sha256.Sum256(current); !bytes.Equal(sum[:], s.digest[:]) {
		s.log.Warn("refusing to overwrite container changed on disk", zap.String("path", s.VaultPath))
		return ErrModifiedExternally
	}

	raw, err := s.seal(s.key.Bytes(), *s.KDF, s.records)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(s.fs, s.VaultPath, raw, 0o600); err != nil {
		s.log.Error("vault save failed", zap.Error(err))
		return fmt.Errorf("%w: write container: %w", ErrIO, err)
	}
	s.saved = s.records.Revision()
	s.digest = sha256.Sum256(raw)
	s.log.Info("vault saved", zap.Int("records", s.records.Len()))
	return nil
}

// Records returns the live repository of an unlocked vault.
func (s *Store) Records() (*Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	return s.records, nil
}

// Dirty reports whether the records changed since the last successful
// Open, Initialize or Save.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Unlocked && s.records.Revision() != s.saved
}

// Lock forgets the key and records. Unsaved changes are discarded.
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrClosed
	}
	s.wipe()
	s.state = Locked
	return nil
}

// Close wipes all session secrets. The store cannot be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrClosed
	}
	s.wipe()
	s.state = Closed
	return nil
}

func (s *Store) wipe() {
	if s.state == Unlocked && s.records.Revision() != s.saved {
		s.log.Warn("discarding unsaved changes")
	}
	if s.key != nil {
		s.key.Destroy()
		s.key = nil
	}
	if s.records != nil {
		s.records.wipe()
		s.records = nil
	}
	s.digest = [sha256.Size]byte{}
}

func (s *Store) requireUnlocked() error {
	switch s.state {
	case Unlocked:
		return nil
	case Closed:
		return ErrClosed
	default:
		return ErrLocked
	}
}

func (s *Store) seal(key []byte, params KDFParams, repo *Repository) ([]byte, error) {
	pt, err := EncodeRecords(repo.records)
	if err != nil {
		return nil, err
	}
	defer Zero(pt)

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	header, err := encodeHeader(fileHeader{KDF: params, Nonce: nonce})
	if err != nil {
		return nil, err
	}
	sealed, err := sealWithNonce(key, nonce, pt, header)
	if err != nil {
		return nil, err
	}
	return encodeContainer(header, sealed), nil
}

func (s *Store) readArtifact(path string) ([]byte, error) {
	b, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s is missing", ErrFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	return b, nil
}

// atomicWriteFile writes data next to path and renames it into place, so a
// reader sees either the old file or the new one in full.
func atomicWriteFile(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := afero.TempFile(fs, dir, ".pwlt-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			tmpFile.Close()
			fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := fs.Chmod(tmpPath, perm); err != nil {
		return err
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		return err
	}
	committed = true

	_ = syncDir(fs, dir)
	return nil
}

func syncDir(fs afero.Fs, dir string) error {
	f, err := fs.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
