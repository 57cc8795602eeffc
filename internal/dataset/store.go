package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/timik232/dataset-bot/pkg/logger"
	"github.com/timik232/dataset-bot/pkg/metrics"
)

// Store serializes all access to the dataset document. Mutating operations
// that the caller asks to persist write the whole document atomically: the
// new file either fully replaces the old one or the old one is kept.
type Store struct {
	mu     sync.Mutex
	path   string
	doc    *Document
	logger *logger.Logger
}

// NewStore creates a store over the document at path. The file is not read
// until Load.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{path: path, logger: log}
}

// Path returns the location of the persisted document.
func (s *Store) Path() string { return s.path }

// Load reads the whole document from disk. A missing file yields a fresh
// document with the given fallback system prompt. The system prompt is never
// empty; an empty fallback means DefaultSystemPrompt.
func (s *Store) Load(fallbackSystem string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fallbackSystem == "" {
		fallbackSystem = DefaultSystemPrompt
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.doc = NewDocument(fallbackSystem)
		s.logger.Info("dataset file missing, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("parse dataset: %w", err)
	}
	s.doc = doc
	s.logger.Info("dataset loaded")
	return nil
}

// Save writes the whole document to disk atomically via a temporary file in
// the same directory followed by a rename.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".dataset-*.json")
	if err != nil {
		return fmt.Errorf("create temp dataset file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace dataset: %w", err)
	}
	metrics.DatasetSavesTotal.Inc()
	return nil
}

// System returns the dataset-wide system prompt.
func (s *Store) System() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.System
}

// SetSystem replaces the dataset-wide system prompt and persists.
func (s *Store) SetSystem(system string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.System = system
	return s.saveLocked()
}

// Keys returns committed topic keys in document order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Keys()
}

// Len reports the number of committed examples.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Len()
}

// CreateTopic validates and normalizes a raw topic name and returns the key
// together with a detached example shell seeded with the dataset's system
// prompt. The shell stays outside the document until Commit.
func (s *Store) CreateTopic(rawName string) (string, *Example, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeTopic(rawName)
	if err := validateTopic(key); err != nil {
		return "", nil, err
	}
	if _, ok := s.doc.Get(key); ok {
		return "", nil, ErrDuplicateTopic
	}
	return key, NewExample(s.doc.System), nil
}

// Commit merges a completed in-construction example into the document and
// persists. It fails if the key was taken since CreateTopic.
func (s *Store) Commit(key string, ex *Example) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Get(key); ok {
		return ErrDuplicateTopic
	}
	s.doc.insert(key, ex)
	if err := s.saveLocked(); err != nil {
		s.doc.remove(key)
		return err
	}
	metrics.ExamplesCommittedTotal.Inc()
	return nil
}

// RenameTopic moves an entry to a new normalized key, keeping its contents
// and position, and persists.
func (s *Store) RenameTopic(oldKey, rawNewName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Get(oldKey); !ok {
		return "", ErrNotFound
	}
	newKey := NormalizeTopic(rawNewName)
	if err := validateTopic(newKey); err != nil {
		return "", err
	}
	if newKey == oldKey {
		return newKey, nil
	}
	if _, ok := s.doc.Get(newKey); ok {
		return "", ErrDuplicateTopic
	}
	s.doc.rename(oldKey, newKey)
	return newKey, s.saveLocked()
}

// DeleteTopic removes an entry and persists.
func (s *Store) DeleteTopic(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.doc.remove(key) {
		return ErrNotFound
	}
	return s.saveLocked()
}

// LookupByNameOrOrdinal resolves either a normalized topic name or a
// zero-based ordinal index into the document's current order.
func (s *Store) LookupByNameOrOrdinal(input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeTopic(input)
	if _, ok := s.doc.Get(key); ok {
		return key, nil
	}
	idx, err := strconv.Atoi(key)
	if err != nil {
		return "", ErrNotFound
	}
	keys := s.doc.Keys()
	if idx < 0 || idx >= len(keys) {
		return "", ErrNotFound
	}
	return keys[idx], nil
}

// Get returns a deep copy of the committed example under key.
func (s *Store) Get(key string) (*Example, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.doc.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ex
	cp.Prompt.History = append([]string(nil), ex.Prompt.History...)
	cp.Prompt.AvailableActions = append([]string(nil), ex.Prompt.AvailableActions...)
	return &cp, nil
}

// mutate runs fn against a committed example and persists on success. The
// document on disk never lags a committed mutation; callers own no separate
// save step.
func (s *Store) mutate(key string, fn func(*Example) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.doc.Get(key)
	if !ok {
		return ErrNotFound
	}
	if err := fn(ex); err != nil {
		return err
	}
	return s.saveLocked()
}

// AppendHistoryLine adds one tagged line to a committed example and persists.
func (s *Store) AppendHistoryLine(key, speaker, text string) error {
	return s.mutate(key, func(ex *Example) error {
		ex.AppendHistory(speaker, text)
		return nil
	})
}

// FinalizeExample extracts the closing turn pair of a committed example and
// persists.
func (s *Store) FinalizeExample(key string) error {
	return s.mutate(key, (*Example).Finalize)
}

// SetSystemLine rewrites a committed example's leading system line and
// persists.
func (s *Store) SetSystemLine(key, system string) error {
	return s.mutate(key, func(ex *Example) error {
		ex.SetSystem(system)
		return nil
	})
}

// SetAvailableActions replaces a committed example's action list and persists.
func (s *Store) SetAvailableActions(key string, actions []string) error {
	return s.mutate(key, func(ex *Example) error {
		ex.SetAvailableActions(actions)
		return nil
	})
}

// SetFinalAction overrides a committed example's final action and persists.
func (s *Store) SetFinalAction(key, action string) error {
	return s.mutate(key, func(ex *Example) error {
		ex.SetFinalAction(action)
		return nil
	})
}

// EditReplicaAt rewrites one replica of a committed example and persists.
func (s *Store) EditReplicaAt(key string, index int, newText string) error {
	return s.mutate(key, func(ex *Example) error {
		return ex.EditReplicaAt(index, newText)
	})
}

// Replicas lists the editable replicas of a committed example.
func (s *Store) Replicas(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.doc.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return ex.Replicas(), nil
}
