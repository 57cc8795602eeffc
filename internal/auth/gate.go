// Package auth gates the bot behind a shared password and remembers the
// users who passed it.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/timik232/dataset-bot/pkg/logger"
	"github.com/timik232/dataset-bot/pkg/metrics"
)

// Gate checks inbound passwords against a bcrypt hash and persists the IDs
// of authorized users as pretty JSON.
type Gate struct {
	mu        sync.Mutex
	hash      []byte
	usersPath string
	users     map[int64]bool
	logger    *logger.Logger
}

// NewGate creates a gate around the given bcrypt password hash.
func NewGate(passwordHash, usersPath string, log *logger.Logger) *Gate {
	return &Gate{
		hash:      []byte(passwordHash),
		usersPath: usersPath,
		users:     make(map[int64]bool),
		logger:    log,
	}
}

// Load reads the persisted user list. A missing file means no users yet.
func (g *Gate) Load() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.usersPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read users: %w", err)
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parse users: %w", err)
	}
	for _, id := range ids {
		g.users[id] = true
	}
	g.logger.Info("authorized users loaded")
	return nil
}

// IsAuthorized reports whether a user already passed the gate.
func (g *Gate) IsAuthorized(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.users[userID]
}

// TryPassword checks a candidate password and registers the user on match.
// The returned error covers persistence only; a wrong password is just
// (false, nil).
func (g *Gate) TryPassword(userID int64, candidate string) (bool, error) {
	if bcrypt.CompareHashAndPassword(g.hash, []byte(candidate)) != nil {
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[userID] = true
	metrics.UsersAuthorizedTotal.Inc()
	return true, g.saveLocked()
}

func (g *Gate) saveLocked() error {
	ids := make([]int64, 0, len(g.users))
	for id := range g.users {
		ids = append(ids, id)
	}
	data, err := json.MarshalIndent(ids, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(g.usersPath, data, 0o600); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for the gate's configuration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
