package session

import (
	"context"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/driftcode/agentserver/internal/event"
	"github.com/driftcode/agentserver/internal/logging"
	"github.com/driftcode/agentserver/internal/storage"
	"github.com/driftcode/agentserver/pkg/types"
)

// ErrSessionRunning is returned by prepareForContinuation when the
// session already has a turn in flight.
var ErrSessionRunning = errors.New("session: turn already running")

// cacheEntry is the in-process state the Manager keeps for one
// session: its cancellation handle, its event bus, and the loaded
// tool set carried across turns within the process lifetime.
type cacheEntry struct {
	cancel      context.CancelFunc
	bus         *event.Bus
	busUsed     bool // bus has already been handed to a turn
	loadedTools map[string]bool
	running     bool
}

// Manager owns session lifecycle: creation, the in-process cache of
// active sessions, and cancellation. It is the single entry point the
// HTTP layer uses to start and observe turns.
type Manager struct {
	store        *storage.Store
	orchestrator *Orchestrator

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// NewManager builds a Manager backed by store for persistence and
// orchestrator for running turns.
func NewManager(store *storage.Store, orchestrator *Orchestrator) *Manager {
	return &Manager{
		store:        store,
		orchestrator: orchestrator,
		cache:        make(map[string]*cacheEntry),
	}
}

func generateSessionID() string {
	return ulid.Make().String()
}

// CreateSession allocates a fresh session, persists it idle, and
// caches a fresh event bus for it; the session's first turn runs on
// that bus. The cancellation handle is created when a turn starts.
func (m *Manager) CreateSession(ctx context.Context, workingDir string) (*types.Session, error) {
	id := generateSessionID()
	if err := m.store.CreateSession(ctx, id, workingDir, types.SessionIdle); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[id] = &cacheEntry{bus: event.NewBus(), loadedTools: make(map[string]bool)}
	m.mu.Unlock()

	return m.store.GetSession(ctx, id)
}

// GetSession returns the persisted session, rehydrating the
// in-process cache entry (fresh bus; the cancellation handle is
// created when a turn starts) on a cache miss.
func (m *Manager) GetSession(ctx context.Context, id string) (*types.Session, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, ok := m.cache[id]; !ok {
		m.cache[id] = &cacheEntry{bus: event.NewBus(), loadedTools: make(map[string]bool)}
	}
	m.mu.Unlock()

	return sess, nil
}

// Bus returns the current event bus for id, or nil if the session is
// not in the cache (it has never been created or fetched in this
// process).
func (m *Manager) Bus(id string) *event.Bus {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache[id]
	if !ok {
		return nil
	}
	return entry.bus
}

// prepareForContinuation gives id a fresh cancellation handle and a
// fresh event bus ahead of a new turn: a cached bus that no turn has
// used yet (the one CreateSession or GetSession made) is kept, so
// subscribers already attached to it see the turn; otherwise a new bus
// replaces it. It fails if a turn is currently running. Persisted
// messages are untouched.
func (m *Manager) prepareForContinuation(id string) (*event.Bus, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache[id]
	if !ok {
		entry = &cacheEntry{loadedTools: make(map[string]bool)}
		m.cache[id] = entry
	}
	if entry.running {
		return nil, nil, ErrSessionRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	if entry.bus == nil || entry.busUsed {
		entry.bus = event.NewBus()
	}
	entry.busUsed = true
	entry.cancel = cancel
	entry.running = true
	return entry.bus, ctx, nil
}

func (m *Manager) finishRun(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.cache[id]; ok {
		entry.running = false
		entry.cancel = nil
	}
}

// StartTurn launches an orchestrator turn for session id in the
// background and returns immediately. Callers observe progress via
// Bus(id)'s subscription.
func (m *Manager) StartTurn(id, userPrompt, model string, maxRounds int) error {
	sess, err := m.store.GetSession(context.Background(), id)
	if err != nil {
		return err
	}

	bus, ctx, err := m.prepareForContinuation(id)
	if err != nil {
		return err
	}

	history, err := m.store.ListMessages(context.Background(), id)
	if err != nil {
		m.finishRun(id)
		return err
	}

	m.mu.Lock()
	loaded := m.cache[id].loadedTools
	m.mu.Unlock()

	if err := m.store.UpdateSessionStatus(context.Background(), id, types.SessionRunning); err != nil {
		m.finishRun(id)
		return err
	}

	go func() {
		defer m.finishRun(id)

		in := TurnInput{
			UserPrompt:  userPrompt,
			WorkingDir:  sess.WorkingDir,
			History:     history,
			Model:       model,
			LoadedTools: loaded,
			MaxRounds:   maxRounds,
			PersistMessage: func(msg types.Message) {
				if _, err := m.store.AppendMessage(context.Background(), id, msg); err != nil {
					logging.Error().Err(err).Str("sessionID", id).Msg("failed to persist message")
				}
			},
		}

		finalStatus := types.SessionCompleted
		sawError := false
		sub := bus.Subscribe()
		defer sub.Unsubscribe()

		done := make(chan struct{})
		go func() {
			for e := range sub.Events() {
				if e.Type == types.EventError {
					sawError = true
				}
				if e.Type == types.EventUsage {
					_ = m.store.IncrementSessionTokens(context.Background(), id, e.Usage.Total)
				}
			}
			close(done)
		}()

		m.orchestrator.RunTurn(ctx, in, bus)
		bus.Close()

		<-done
		if sawError && ctx.Err() == nil {
			finalStatus = types.SessionFailed
		}
		if ctx.Err() != nil {
			finalStatus = types.SessionCompleted
		}
		_ = m.store.UpdateSessionStatus(context.Background(), id, finalStatus)
	}()

	return nil
}

// Cancel signals the running turn for id, if any. Returns true if a
// running turn was found and signalled.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache[id]
	if !ok || !entry.running || entry.cancel == nil {
		return false
	}
	entry.cancel()
	return true
}

// DeleteSession cancels any running turn, closes and drops the bus,
// and removes the session from the store. Returns false if the
// session did not exist.
func (m *Manager) DeleteSession(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	entry, ok := m.cache[id]
	if ok {
		if entry.running && entry.cancel != nil {
			entry.cancel()
		}
		if entry.bus != nil {
			entry.bus.Close()
		}
		delete(m.cache, id)
	}
	m.mu.Unlock()

	return m.store.DeleteSession(ctx, id)
}

// UpdateWorkingDir changes a session's working directory. Safe to
// call concurrently with a running turn: the orchestrator only reads
// workingDir at turn start.
func (m *Manager) UpdateWorkingDir(ctx context.Context, id, dir string) error {
	return m.store.UpdateSessionWorkingDir(ctx, id, dir)
}

// UpdateTitle changes a session's title.
func (m *Manager) UpdateTitle(ctx context.Context, id, title string) error {
	return m.store.UpdateSessionTitle(ctx, id, title)
}

// ListMessages returns a session's ordered message history.
func (m *Manager) ListMessages(ctx context.Context, id string) ([]types.Message, error) {
	return m.store.ListMessages(ctx, id)
}

// ListSessions returns a page of session summaries.
func (m *Manager) ListSessions(ctx context.Context, limit, offset int) ([]types.SessionSummary, int, error) {
	return m.store.ListSessions(ctx, limit, offset)
}
