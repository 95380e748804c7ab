package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"gopkg.in/yaml.v3"
)

// Store persists snapshot records as one YAML file per (type, id, name)
// under Root. Records are immutable: Save refuses to overwrite.
type Store struct {
	Root string

	log logger.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Noop()
	}
	return &Store{Root: dir, log: log}
}

func (s *Store) path(typ string, id int, name string) string {
	return filepath.Join(s.Root, fmt.Sprintf("%s-%d-%s.yaml", typ, id, name))
}

// validName keeps snapshot names usable as file name components.
func validName(name string) error {
	if name == "" {
		return errors.New(errors.ErrValidate,
			"Snapshot name is empty",
			"Give the snapshot a name, e.g. pre-upgrade")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return errors.New(errors.ErrValidate,
			fmt.Sprintf("Invalid snapshot name %q", name),
			"Names must not contain path separators")
	}
	return nil
}

// Save fetches the entity's status and full configuration from the provider
// and persists them as a new record. An existing record with the same
// (type, id, name) is never overwritten.
func (s *Store) Save(ctx context.Context, p Provider, typ string, id int, name string) (*Record, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	path := s.path(typ, id, name)
	if _, err := os.Stat(path); err == nil {
		return nil, errors.New(errors.ErrSnapshot,
			fmt.Sprintf("Snapshot %q already exists for %s %d", name, typ, id),
			"Snapshots are immutable; pick a different name")
	}

	status, err := p.Status(ctx, typ, id)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSnapshot,
			fmt.Sprintf("Couldn't read status of %s %d", typ, id), "")
	}

	cfg, err := p.Config(ctx, typ, id)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSnapshot,
			fmt.Sprintf("Couldn't read configuration of %s %d", typ, id), "")
	}

	rec := &Record{
		Type:    typ,
		ID:      id,
		Name:    name,
		TakenAt: time.Now(),
		Status:  status,
		Config:  cfg,
	}

	if err := s.write(path, rec); err != nil {
		return nil, err
	}

	s.log.Info("saved snapshot %s for %s %d (%d keys)", name, typ, id, len(cfg))
	return rec, nil
}

func (s *Store) write(path string, rec *Record) error {
	if err := os.MkdirAll(s.Root, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrSnapshot,
			"Couldn't create snapshot directory "+s.Root,
			"Check snapshot.dir in the config")
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a previously saved record.
func (s *Store) Load(typ string, id int, name string) (*Record, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	path := s.path(typ, id, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrSnapshot,
				fmt.Sprintf("No snapshot %q for %s %d", name, typ, id),
				"List the snapshot directory to see what exists: "+s.Root)
		}
		return nil, errors.WrapWithCode(err, errors.ErrSnapshot,
			"Couldn't read snapshot file "+path, "")
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSnapshot,
			"Corrupt snapshot file "+path,
			"The file isn't valid YAML")
	}
	if rec.Config == nil {
		rec.Config = make(map[string]string)
	}
	return &rec, nil
}

// List returns the records on disk, in file name order.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrSnapshot,
			"Couldn't list snapshot directory "+s.Root, "")
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Root, entry.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := yaml.Unmarshal(data, &rec); err != nil {
			s.log.Warn("skipping unreadable snapshot file %s: %v", entry.Name(), err)
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}
