package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/riskibarqy/global-standings/internal/domain/selection"
	"github.com/riskibarqy/global-standings/internal/domain/weekwindow"
	"github.com/riskibarqy/global-standings/internal/platform/metrics"
)

const defaultSessionTTL = 30 * time.Minute

type ScopeMode string

const (
	ScopeGlobal      ScopeMode = "global"
	ScopeCompetition ScopeMode = "competition"
)

// Session is a snapshot of one viewer's selection state.
type Session struct {
	ID         string
	Week       string
	Strict     bool
	Mode       ScopeMode
	Scope      selection.Pair
	LatchState selection.State
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ScopeInput struct {
	// Global switches to the all-competitions scope and ignores the pair.
	Global      bool
	Competition string
	Group       string
}

type SessionConfig struct {
	DefaultPair selection.Pair
	// TTL evicts sessions idle for longer than this.
	TTL time.Duration
}

type sessionState struct {
	id       string
	week     string
	strict   bool
	mode     ScopeMode
	scope    selection.Pair
	explicit bool
	latch    *selection.Latch
	created  time.Time
	updated  time.Time

	generation uint64
	cancel     context.CancelFunc
}

// SessionRegistry owns per-viewer selection state. Every selection change supersedes the
// query in flight for that session.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	cfg      SessionConfig
	metrics  *metrics.Manager
	now      func() time.Time
	newID    func() string
}

func NewSessionRegistry(cfg SessionConfig, metricsManager *metrics.Manager) *SessionRegistry {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	return &SessionRegistry{
		sessions: make(map[string]*sessionState),
		cfg:      cfg,
		metrics:  metricsManager,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Open starts a session in the global scope. An empty week selects season-to-date figures.
func (r *SessionRegistry) Open(week string, strict bool) (Session, error) {
	week, err := normalizeWeekValue(week)
	if err != nil {
		return Session{}, err
	}

	now := r.now()
	state := &sessionState{
		id:      r.newID(),
		week:    week,
		strict:  strict,
		mode:    ScopeGlobal,
		latch:   selection.NewLatch(r.cfg.DefaultPair),
		created: now,
		updated: now,
	}

	r.mu.Lock()
	r.evictIdleLocked(now)
	r.sessions[state.id] = state
	count := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(count)
	return state.snapshot(), nil
}

func (r *SessionRegistry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	return state.snapshot(), nil
}

func (r *SessionRegistry) Close(id string) error {
	r.mu.Lock()
	state, err := r.lookupLocked(id)
	if err == nil {
		state.supersede()
		delete(r.sessions, state.id)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if err != nil {
		return err
	}
	r.metrics.SetActiveSessions(count)
	return nil
}

func (r *SessionRegistry) SelectWeek(id, week string, strict bool) (Session, error) {
	week, err := normalizeWeekValue(week)
	if err != nil {
		return Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	state.supersede()
	state.week = week
	state.strict = strict
	state.updated = r.now()
	return state.snapshot(), nil
}

// SelectScope applies a scope change. An explicit pair latches the choice; entering the
// competition scope without one leaves the default pair to be applied once the available
// pairs are known; switching to global re-arms the default.
func (r *SessionRegistry) SelectScope(id string, in ScopeInput) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	state.supersede()
	state.updated = r.now()

	if in.Global {
		state.mode = ScopeGlobal
		state.scope = selection.Pair{}
		state.explicit = false
		state.latch.EnterGlobal()
		return state.snapshot(), nil
	}

	pair := selection.Pair{
		Competition: strings.TrimSpace(in.Competition),
		Group:       strings.TrimSpace(in.Group),
	}
	state.mode = ScopeCompetition
	if pair.IsZero() {
		state.scope = selection.Pair{}
		state.explicit = false
		return state.snapshot(), nil
	}

	state.scope = pair
	state.explicit = true
	state.latch.Select()
	return state.snapshot(), nil
}

// Begin starts a query for the session and cancels the one it supersedes. The returned
// token must be handed back to Commit or Abort.
func (r *SessionRegistry) Begin(ctx context.Context, id string) (context.Context, uint64, Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.lookupLocked(id)
	if err != nil {
		return nil, 0, Session{}, err
	}
	state.supersede()

	queryCtx, cancel := context.WithCancel(ctx)
	state.cancel = cancel
	return queryCtx, state.generation, state.snapshot(), nil
}

// Commit accepts a finished query. It fails with ErrStaleQuery when the session moved on
// since Begin. Otherwise the selection latch sees the pairs the result made available and
// the resulting session is returned.
func (r *SessionRegistry) Commit(id string, token uint64, available []selection.Pair) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.lookupLocked(id)
	if err != nil {
		return Session{}, err
	}
	if state.generation != token {
		return Session{}, fmt.Errorf("%w: session=%s", ErrStaleQuery, id)
	}
	state.release()

	if state.mode == ScopeCompetition {
		in := selection.Input{Available: available}
		if state.explicit {
			explicit := state.scope
			in.Explicit = &explicit
		}
		if pair, emitted := state.latch.Evaluate(in); emitted {
			state.scope = pair
			state.updated = r.now()
		}
	}
	return state.snapshot(), nil
}

// Abort releases a failed query. It reports whether the query was still current.
func (r *SessionRegistry) Abort(id string, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.lookupLocked(id)
	if err != nil || state.generation != token {
		return false
	}
	state.release()
	return true
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) lookupLocked(id string) (*sessionState, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: session id must be a uuid", ErrInvalidInput)
	}
	state, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session=%s", ErrNotFound, id)
	}
	return state, nil
}

func (r *SessionRegistry) evictIdleLocked(now time.Time) {
	for id, state := range r.sessions {
		if now.Sub(state.updated) > r.cfg.TTL {
			state.supersede()
			delete(r.sessions, id)
		}
	}
}

// supersede invalidates the query in flight, if any.
func (s *sessionState) supersede() {
	s.generation++
	s.release()
}

func (s *sessionState) release() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *sessionState) snapshot() Session {
	return Session{
		ID:         s.id,
		Week:       s.week,
		Strict:     s.strict,
		Mode:       s.mode,
		Scope:      s.scope,
		LatchState: s.latch.State(),
		CreatedAt:  s.created,
		UpdatedAt:  s.updated,
	}
}

func normalizeWeekValue(week string) (string, error) {
	week = strings.TrimSpace(week)
	if week == "" {
		return "", nil
	}
	if _, ok := weekwindow.ParseSelectorValue(week, time.UTC); !ok {
		return "", fmt.Errorf("%w: week must be formatted as %s", ErrInvalidInput, weekwindow.SelectorLayout)
	}
	return week, nil
}

func isStale(err error) bool {
	return errors.Is(err, ErrStaleQuery)
}
