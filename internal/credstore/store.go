package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/tailscale/hujson"

	"github.com/florianilch/jolt-auth/internal/account"
)

// Document is the on-disk shape of the credentials file.
type Document struct {
	ClientID     string       `json:"clientId"`
	ClientSecret string       `json:"clientSecret"`
	Streamer     account.Slot `json:"streamer"`
	ChatBot      account.Slot `json:"chatBot"`
}

func (d *Document) slot(role account.Role) *account.Slot {
	if role == account.ChatBot {
		return &d.ChatBot
	}
	return &d.Streamer
}

// ErrLocked is returned by Load when another Store, usually a running
// server, already owns the document.
var ErrLocked = errors.New("credentials document is in use by another process")

var errClosed = errors.New("store is closed")

// Store owns the credentials document for the lifetime of the process.
// It holds an exclusive lock on path + ".lock" until Close.
type Store struct {
	path string
	lock *flock.Flock

	mu  sync.Mutex
	doc Document
}

// Load reads and parses the credentials document at path.
// Any failure is returned as a *StoreLoadError.
func Load(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, &StoreLoadError{Path: path, Cause: errors.New("file path cannot be empty")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StoreLoadError{Path: path, Cause: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &StoreLoadError{Path: path, Cause: err}
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		slog.WarnContext(ctx, "credentials file is readable by other users", "path", path, "mode", fmt.Sprintf("%04o", perm))
	}

	// Lock a sidecar file: the document itself is replaced by rename on save
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &StoreLoadError{Path: path, Cause: fmt.Errorf("locking document: %w", err)}
	}
	if !locked {
		return nil, &StoreLoadError{Path: path, Cause: ErrLocked}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, &StoreLoadError{Path: path, Cause: err}
	}

	doc, err := decode(raw)
	if err != nil {
		_ = lock.Unlock()
		return nil, &StoreLoadError{Path: path, Cause: err}
	}

	return &Store{path: path, lock: lock, doc: doc}, nil
}

// Close releases the document lock. The Store must not be mutated afterwards.
// Calling Close more than once is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}

func decode(raw []byte) (Document, error) {
	var doc Document

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return doc, fmt.Errorf("parsing document: %w", err)
	}
	if err := json.Unmarshal(standard, &doc); err != nil {
		return doc, fmt.Errorf("decoding document: %w", err)
	}
	if doc.ClientID == "" {
		return doc, errors.New("clientId is required")
	}

	// Normalize so an empty slot serializes as [] rather than null
	doc.Streamer = doc.Streamer.Clone()
	doc.ChatBot = doc.ChatBot.Clone()

	return doc, nil
}

// Path returns the location of the credentials file.
func (s *Store) Path() string {
	return s.path
}

// ClientID returns the registered application's client id.
func (s *Store) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ClientID
}

// ClientSecret returns the client secret stored in the document.
func (s *Store) ClientSecret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ClientSecret
}

// SetClientSecret replaces the client secret kept in the document and
// persists it. Memory is unchanged if the write fails.
func (s *Store) SetClientSecret(ctx context.Context, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()
	next.ClientSecret = secret
	if err := s.writeLocked(ctx, next); err != nil {
		return err
	}

	s.doc = next
	return nil
}

// Slot returns a copy of the role's slot.
func (s *Store) Slot(role account.Role) account.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.slot(role).Clone()
}

// Snapshot returns a deep copy of the whole document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Document {
	doc := s.doc
	doc.Streamer = s.doc.Streamer.Clone()
	doc.ChatBot = s.doc.ChatBot.Clone()
	return doc
}

// Update applies fn to a copy of the role's slot and persists the result.
// The change is committed to memory only after the write succeeds. If fn
// returns an error nothing is written. Returns the committed slot.
func (s *Store) Update(ctx context.Context, role account.Role, fn func(*account.Slot) error) (account.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()
	slot := next.slot(role)
	if err := fn(slot); err != nil {
		return account.Slot{}, err
	}

	if err := s.writeLocked(ctx, next); err != nil {
		return account.Slot{}, err
	}

	s.doc = next
	return slot.Clone(), nil
}

// Save writes the current document to disk.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, s.doc)
}

func (s *Store) writeLocked(ctx context.Context, doc Document) error {
	if s.lock == nil {
		return &StoreSaveError{Path: s.path, Cause: errClosed}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StoreSaveError{Path: s.path, Cause: err}
	}
	if err := writeFile(ctx, s.path, append(data, '\n')); err != nil {
		return &StoreSaveError{Path: s.path, Cause: err}
	}
	return nil
}

// writeFile atomically replaces path using temp file + rename for crash safety.
// Sets file permissions to 0600 (owner read/write only).
func writeFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Create secure temp file in same directory for atomic rename
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(data); err != nil {
		return err
	}
	if err := tempFile.Sync(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tempName, path); err != nil {
		return err
	}

	return os.Chmod(path, 0600)
}
