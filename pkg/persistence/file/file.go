// Package file provides file-based persistence implementation for users,
// sessions, and campaign runs. It is intended for development and tests; all
// collections live as JSON files under a root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/leadion/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system.
type Persistence struct {
	root        string
	userRepo    *UserRepository
	sessionRepo *SessionRepository
	runRepo     *RunRepository
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	store := newStore(cleanRoot)

	return &Persistence{
		root:        cleanRoot,
		userRepo:    &UserRepository{store: store},
		sessionRepo: &SessionRepository{store: store},
		runRepo:     &RunRepository{store: store},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying
// the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Users() persistence.UserRepository {
	return fp.userRepo
}

func (fp *Persistence) Sessions() persistence.SessionRepository {
	return fp.sessionRepo
}

func (fp *Persistence) Runs() persistence.RunRepository {
	return fp.runRepo
}

// store serializes access to the JSON collection files. One lock covers all
// collections; contention is irrelevant at development scale.
type store struct {
	mu   sync.Mutex
	root string
}

func newStore(root string) *store {
	return &store{root: root}
}

func (s *store) path(collection string) string {
	return filepath.Join(s.root, collection+".json")
}

// load reads a collection file into target. A missing file is an empty
// collection, not an error.
func (s *store) load(collection string, target any) error {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to read %s collection: %w", collection, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse %s collection: %w", collection, err)
	}

	return nil
}

func (s *store) save(collection string, source any) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create persistence directory: %w", err)
	}

	data, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s collection: %w", collection, err)
	}

	if err := os.WriteFile(s.path(collection), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s collection: %w", collection, err)
	}

	return nil
}
