// Package credits implements the channel's virtual-currency ledger and the
// slot-machine game played against it.
//
// The ledger maps usernames (case-sensitive, as received from chat) to integer
// balances. Accounts are created lazily with a balance of 100 on first touch
// and are never deleted. Every mutation is written through to a single flat
// JSON file; there is no batching and no transactionality, so a crash mid-write
// can lose the last mutation. That is an accepted property of the domain.
package credits

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DefaultBalance is granted to every account on first touch.
const DefaultBalance = 100

// Account is one ledger entry as returned by Top.
type Account struct {
	Username string `json:"username"`
	Balance  int    `json:"balance"`
}

// Ledger is safe for concurrent use by the dispatcher, timers, and HTTP handlers.
type Ledger struct {
	path string

	mu       sync.Mutex
	balances map[string]int
	// order records first-touch order so Top can break balance ties stably.
	// The JSON file does not preserve it, so after a restart previously
	// persisted accounts are ordered by username.
	order []string
}

// Open loads the ledger from path. A missing file starts an empty ledger; an
// unreadable or corrupt file is logged and discarded rather than blocking
// startup.
func Open(path string) (*Ledger, error) {
	l := &Ledger{path: path, balances: make(map[string]int)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credits file: %w", err)
	}
	if err := json.Unmarshal(raw, &l.balances); err != nil {
		slog.Warn("credits file corrupt; starting with empty ledger", slog.String("path", path), slog.Any("err", err))
		l.balances = make(map[string]int)
		return l, nil
	}
	l.order = make([]string, 0, len(l.balances))
	for user := range l.balances {
		l.order = append(l.order, user)
	}
	sort.Strings(l.order)
	return l, nil
}

// Balance returns the user's balance, creating the account with the default
// balance on first read. The initialization is not persisted until the first
// mutation.
func (l *Ledger) Balance(user string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.touchLocked(user)
}

// Change adds delta (which may be negative) to the user's balance, persists,
// and returns the new balance. No floor or ceiling is enforced.
func (l *Ledger) Change(user string, delta int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.touchLocked(user) + delta
	l.balances[user] = bal
	if err := l.saveLocked(); err != nil {
		return bal, err
	}
	return bal, nil
}

// Set overwrites the user's balance unconditionally and persists.
func (l *Ledger) Set(user string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touchLocked(user)
	l.balances[user] = amount
	return l.saveLocked()
}

// Top returns up to limit accounts ordered by descending balance. Ties keep
// first-touch order.
func (l *Ledger) Top(limit int) []Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Account, 0, len(l.order))
	for _, user := range l.order {
		out = append(out, Account{Username: user, Balance: l.balances[user]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (l *Ledger) touchLocked(user string) int {
	bal, ok := l.balances[user]
	if !ok {
		bal = DefaultBalance
		l.balances[user] = bal
		l.order = append(l.order, user)
	}
	return bal
}

// saveLocked overwrites the whole file with the current state.
func (l *Ledger) saveLocked() error {
	raw, err := json.MarshalIndent(l.balances, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credits: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create credits dir: %w", err)
		}
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("write credits file: %w", err)
	}
	return nil
}
