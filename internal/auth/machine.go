package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/marcus/taskflow/internal/api"
	"github.com/marcus/taskflow/internal/credstore"
	"github.com/marcus/taskflow/internal/gateway"
	"github.com/marcus/taskflow/internal/models"
)

// APIClient is the part of *api.Client the session needs.
type APIClient interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) (*api.MessageResponse, error)
	CurrentUser(ctx context.Context) (*api.UserResponse, error)
	UpdateProfile(ctx context.Context, fields models.User) (*api.UserResponse, error)
	ChangePassword(ctx context.Context, req api.PasswordChange) (*api.MessageResponse, error)
}

// Result is what a session operation reports to its caller.
type Result struct {
	Success bool
	Message string
	Error   string
}

func succeeded(message string) Result { return Result{Success: true, Message: message} }

func failed(err error) Result { return Result{Error: gateway.Message(err)} }

// Machine is the single writer of the session state. Network calls run
// outside the lock; only the commit of a transition is serialized, so the
// last operation to finish wins.
type Machine struct {
	client APIClient
	store  credstore.Store

	// notify orders delivery so subscribers see commits in commit order.
	notify sync.Mutex

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// NewMachine returns a machine in the anonymous state. Call Load to pick up a
// stored token.
func NewMachine(client APIClient, store credstore.Store) *Machine {
	return &Machine{
		client: client,
		store:  store,
		state:  Anonymous(),
		subs:   map[int]func(State){},
	}
}

// State returns a snapshot of the session. The caller owns the copy.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to be called with the new state after every
// committed transition, in commit order. fn must not start machine
// operations itself. The returned func removes the subscription.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Machine) dispatch(ev Event) {
	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	m.state = Reduce(m.state, ev)
	snap := m.state
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap.clone())
	}
}

// Load validates a stored token. Without a token the session becomes
// anonymous and no request is made. A rejected token is removed from the
// store and is not retried.
func (m *Machine) Load(ctx context.Context) {
	if _, ok := m.store.Get(); !ok {
		m.dispatch(Logout{})
		return
	}

	m.dispatch(LoadStart{})
	resp, err := m.client.CurrentUser(ctx)
	if err != nil {
		slog.Debug("auth: load user", "err", err)
		if cerr := m.store.Clear(); cerr != nil {
			slog.Warn("auth: clear rejected token", "err", cerr)
		}
		m.dispatch(LoadFailure{Message: gateway.Message(err)})
		return
	}
	m.dispatch(LoadSuccess{User: resp.User})
}

// Login authenticates with creds.
func (m *Machine) Login(ctx context.Context, creds api.Credentials) Result {
	m.dispatch(LoginStart{})
	resp, err := m.client.Login(ctx, creds)
	return m.finishLogin(resp, err)
}

// Register creates an account and logs into it.
func (m *Machine) Register(ctx context.Context, req api.RegisterRequest) Result {
	m.dispatch(LoginStart{})
	resp, err := m.client.Register(ctx, req)
	return m.finishLogin(resp, err)
}

func (m *Machine) finishLogin(resp *api.AuthResponse, err error) Result {
	if err != nil {
		slog.Debug("auth: login", "err", err)
		m.dispatch(LoginFailure{Message: gateway.Message(err)})
		return failed(err)
	}
	m.dispatch(LoginSuccess{User: resp.User})
	return succeeded(resp.Message)
}

// Logout always succeeds and always ends anonymous.
func (m *Machine) Logout(ctx context.Context) Result {
	if _, err := m.client.Logout(ctx); err != nil {
		slog.Warn("auth: logout", "err", err)
	}
	m.dispatch(Logout{})
	return succeeded("")
}

// UpdateProfile sends fields to the backend and merges the returned user into
// the session. A failure is reported only in the Result; the session is left
// as it was.
func (m *Machine) UpdateProfile(ctx context.Context, fields models.User) Result {
	resp, err := m.client.UpdateProfile(ctx, fields)
	if err != nil {
		return failed(err)
	}
	m.dispatch(UpdateUser{Fields: resp.User})
	return succeeded(resp.Message)
}

// ChangePassword passes through to the backend without touching the session.
func (m *Machine) ChangePassword(ctx context.Context, req api.PasswordChange) Result {
	resp, err := m.client.ChangePassword(ctx, req)
	if err != nil {
		return failed(err)
	}
	return succeeded(resp.Message)
}

// ClearError drops the session error.
func (m *Machine) ClearError() {
	m.dispatch(ClearError{})
}
