package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pointsbot/internal/domain"
	"pointsbot/internal/logger"
)

// MemoryStore keeps the ledger in process memory, optionally snapshotting
// to JSON files after each committed write. All operations serialize on one
// mutex, so memory is the single writer and a snapshot is only ever taken
// from committed state. Used when no database is configured, and by tests.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	codes map[string]*domain.RedeemCode // keyed by lowercased code
	dir   string                        // empty disables snapshots
}

type codeFile struct {
	Codes []*domain.RedeemCode `json:"codes"`
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*domain.User),
		codes: make(map[string]*domain.RedeemCode),
	}
}

// NewFileBackedStore loads users.json and redeem.json from dir, if present,
// and snapshots back to them after every committed write. A missing or
// unreadable file yields an empty collection rather than an error.
func NewFileBackedStore(dir string) *MemoryStore {
	s := NewMemoryStore()
	s.dir = dir

	var users []*domain.User
	if data, err := os.ReadFile(filepath.Join(dir, "users.json")); err == nil {
		if err := json.Unmarshal(data, &users); err != nil {
			logger.Warn("ignoring corrupt users snapshot", "error", err)
		}
	}
	for _, u := range users {
		s.users[u.ID] = u
	}

	var cf codeFile
	if data, err := os.ReadFile(filepath.Join(dir, "redeem.json")); err == nil {
		if err := json.Unmarshal(data, &cf); err != nil {
			logger.Warn("ignoring corrupt redeem snapshot", "error", err)
		}
	}
	for _, c := range cf.Codes {
		s.codes[strings.ToLower(c.Code)] = c
	}

	return s
}

// snapshot writes both collections to disk. Called with the mutex held.
// Memory stays canonical: a failed write is logged and does not roll back
// the committed mutation.
func (s *MemoryStore) snapshot() {
	if s.dir == "" {
		return
	}

	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	cf := codeFile{Codes: make([]*domain.RedeemCode, 0, len(s.codes))}
	for _, c := range s.codes {
		cf.Codes = append(cf.Codes, c)
	}
	sort.Slice(cf.Codes, func(i, j int) bool { return cf.Codes[i].Code < cf.Codes[j].Code })

	if data, err := json.MarshalIndent(users, "", "  "); err == nil {
		if err := os.WriteFile(filepath.Join(s.dir, "users.json"), data, 0o644); err != nil {
			logger.Warn("failed to write users snapshot", "error", err)
		}
	}
	if data, err := json.MarshalIndent(cf, "", "  "); err == nil {
		if err := os.WriteFile(filepath.Join(s.dir, "redeem.json"), data, 0o644); err != nil {
			logger.Warn("failed to write redeem snapshot", "error", err)
		}
	}
}

// Flush forces a snapshot of the current state. Called on shutdown.
func (s *MemoryStore) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot()
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

func copyCode(c *domain.RedeemCode) *domain.RedeemCode {
	cp := *c
	cp.UsedBy = append([]int64(nil), c.UsedBy...)
	return &cp
}

func (s *MemoryStore) GetOrCreateUser(_ context.Context, id int64, firstName, username string) (*domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return copyUser(u), false, nil
	}

	u := &domain.User{
		ID:        id,
		FirstName: firstName,
		Username:  username,
		CreatedAt: time.Now(),
	}
	s.users[id] = u
	s.snapshot()
	return copyUser(u), true, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) AdjustBalance(_ context.Context, id, delta int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.Balance+delta < 0 {
		return nil, ErrInsufficientFunds
	}
	u.Balance += delta
	s.snapshot()
	return copyUser(u), nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) CountUsers(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *MemoryStore) FindCode(_ context.Context, code string) (*domain.RedeemCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[strings.ToLower(code)]
	if !ok {
		return nil, ErrCodeNotFound
	}
	return copyCode(c), nil
}

func (s *MemoryStore) CreateCode(_ context.Context, code string, slots int, points int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(code)
	if _, ok := s.codes[key]; ok {
		return ErrCodeExists
	}
	s.codes[key] = &domain.RedeemCode{
		Code:      code,
		Slots:     slots,
		Points:    points,
		CreatedAt: time.Now(),
	}
	s.snapshot()
	return nil
}

func (s *MemoryStore) ApplyRedemption(_ context.Context, code string, userID int64) (*domain.User, *domain.RedeemCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[strings.ToLower(code)]
	if !ok {
		return nil, nil, ErrCodeNotFound
	}
	if c.Redeemed(userID) {
		return nil, nil, ErrAlreadyRedeemed
	}
	if c.Slots <= 0 {
		return nil, nil, ErrNoSlotsLeft
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, nil, ErrUserNotFound
	}

	c.UsedBy = append(c.UsedBy, userID)
	c.Slots--
	u.Balance += c.Points
	s.snapshot()
	return copyUser(u), copyCode(c), nil
}

func (s *MemoryStore) ClaimBonus(_ context.Context, id, award int64, now time.Time, window time.Duration) (*domain.User, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, 0, ErrUserNotFound
	}

	nowMs := now.UnixMilli()
	elapsed := nowMs - u.LastBonus
	if u.LastBonus != 0 && elapsed < window.Milliseconds() {
		remaining := time.Duration(window.Milliseconds()-elapsed) * time.Millisecond
		return nil, remaining, ErrBonusNotReady
	}

	u.Balance += award
	u.LastBonus = nowMs
	s.snapshot()
	return copyUser(u), 0, nil
}
