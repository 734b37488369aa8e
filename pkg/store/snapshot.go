package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/bankatlas/bankatlas/pkg/entities"
)

// Snapshot is the on-disk representation of the whole store: one YAML
// document carrying entities, tasks, and the collection log.
type Snapshot struct {
	SavedAt time.Time                     `yaml:"saved_at"`
	Banks   []*entities.BankEntity        `yaml:"banks,omitempty"`
	Persons []*entities.PersonEntity      `yaml:"persons,omitempty"`
	Tasks   []entities.ResearchTask       `yaml:"tasks,omitempty"`
	Logs    []entities.CollectionLogEntry `yaml:"logs,omitempty"`
}

// Save writes the store state to path as YAML. The write goes through a
// temp file and rename so a crash never leaves a truncated snapshot.
func Save(ctx context.Context, s Store, path string) error {
	banks, err := s.Banks(ctx)
	if err != nil {
		return fmt.Errorf("snapshot banks: %w", err)
	}
	persons, err := s.Persons(ctx)
	if err != nil {
		return fmt.Errorf("snapshot persons: %w", err)
	}
	tasks, err := s.Tasks(ctx, TaskFilter{})
	if err != nil {
		return fmt.Errorf("snapshot tasks: %w", err)
	}
	logs, err := s.Logs(ctx, 0)
	if err != nil {
		return fmt.Errorf("snapshot logs: %w", err)
	}

	snap := Snapshot{
		SavedAt: time.Now().UTC(),
		Banks:   banks,
		Persons: persons,
		Tasks:   tasks,
		Logs:    logs,
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot from path into a fresh in-memory store. A missing
// file yields an empty store rather than an error, so first runs need no
// setup.
func Load(ctx context.Context, path string) (*Memory, error) {
	m := NewMemory()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	for _, b := range snap.Banks {
		if err := m.UpsertBank(ctx, b); err != nil {
			return nil, err
		}
	}
	for _, p := range snap.Persons {
		if err := m.UpsertPerson(ctx, p); err != nil {
			return nil, err
		}
	}
	for _, t := range snap.Tasks {
		if err := m.SaveTask(ctx, t); err != nil {
			return nil, err
		}
	}
	for _, entry := range snap.Logs {
		if err := m.AppendLog(ctx, entry); err != nil {
			return nil, err
		}
	}
	return m, nil
}
