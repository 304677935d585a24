package auth

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"testing"

	"github.com/marcus/taskflow/internal/api"
	"github.com/marcus/taskflow/internal/apitest"
	"github.com/marcus/taskflow/internal/credstore"
	"github.com/marcus/taskflow/internal/gateway"
	"github.com/marcus/taskflow/internal/models"
)

type harness struct {
	srv   *apitest.Server
	store *credstore.MemoryStore
	m     *Machine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.NewServer(t)
	store := credstore.NewMemoryStore()
	client := api.New(gateway.New(srv.URL(), store), store)
	return &harness{srv: srv, store: store, m: NewMachine(client, store)}
}

func checkInvariants(t *testing.T, s State) {
	t.Helper()
	if s.IsAuthenticated != (s.User != nil) {
		t.Fatalf("IsAuthenticated=%v but user=%v", s.IsAuthenticated, s.User)
	}
}

func TestLoginScenario(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("", "a@b.com", "x")
	h.srv.TokenFunc = func(string) string { return "T1" }

	res := h.m.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})
	if !res.Success {
		t.Fatalf("Login failed: %+v", res)
	}
	if res.Message != "Login successful" {
		t.Errorf("Message: got %q", res.Message)
	}
	if tok, _ := h.store.Get(); tok != "T1" {
		t.Errorf("store: got %q, want T1", tok)
	}
	s := h.m.State()
	if !s.IsAuthenticated || s.IsLoading || s.Error != "" {
		t.Errorf("state: got %+v", s)
	}
	if s.User.ID() != "1" || s.User.Email() != "a@b.com" {
		t.Errorf("user: got %v", s.User)
	}
}

func TestLoginInvalidCredentialsScenario(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail("POST", "/auth/login", http.StatusUnauthorized, "invalid credentials")

	res := h.m.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})
	if res.Success || res.Error != "invalid credentials" {
		t.Fatalf("result: got %+v", res)
	}
	s := h.m.State()
	if s.Error != "invalid credentials" || s.IsAuthenticated || s.IsLoading || s.User != nil {
		t.Errorf("state: got %+v", s)
	}
	if _, ok := h.store.Get(); ok {
		t.Error("store should be untouched")
	}
}

func TestLoginFailureFromAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")
	ctx := context.Background()
	if res := h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"}); !res.Success {
		t.Fatalf("first login: %+v", res)
	}

	res := h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "wrong"})
	if res.Error != "Invalid credentials" {
		t.Errorf("Error: got %q", res.Error)
	}
	s := h.m.State()
	if s.IsAuthenticated || s.User != nil {
		t.Errorf("failed login must drop the user, got %+v", s)
	}
}

func TestLoadWithoutToken(t *testing.T) {
	h := newHarness(t)
	h.m.Load(context.Background())

	s := h.m.State()
	if s.IsAuthenticated || s.IsLoading || s.Error != "" {
		t.Errorf("state: got %+v, want anonymous", s)
	}
	if n := len(h.srv.Requests()); n != 0 {
		t.Errorf("Load without token made %d requests", n)
	}
}

func TestLoadWithValidToken(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")
	h.store.Set(h.srv.IssueToken("a@b.com"))

	h.m.Load(context.Background())
	s := h.m.State()
	if !s.IsAuthenticated || s.User.Name() != "Ada" || s.IsLoading {
		t.Errorf("state: got %+v", s)
	}
}

func TestLoadInvalidTokenClearsStore(t *testing.T) {
	h := newHarness(t)
	h.store.Set("expired")

	h.m.Load(context.Background())
	s := h.m.State()
	if s.IsAuthenticated || s.IsLoading {
		t.Errorf("state: got %+v", s)
	}
	if s.Error != "Not authorized, token failed" {
		t.Errorf("Error: got %q", s.Error)
	}
	if _, ok := h.store.Get(); ok {
		t.Error("invalid token should be cleared")
	}

	// Not retried: a second load makes no request
	before := h.srv.CountRequests("GET", "/auth/me")
	h.m.Load(context.Background())
	if after := h.srv.CountRequests("GET", "/auth/me"); after != before {
		t.Errorf("cleared token was retried (%d -> %d requests)", before, after)
	}
}

func TestLoadTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.store.Set("T1")
	h.srv.Close()

	h.m.Load(context.Background())
	s := h.m.State()
	if s.IsAuthenticated || s.Error == "" {
		t.Errorf("state: got %+v, want error", s)
	}
	if _, ok := h.store.Get(); ok {
		t.Error("token should be cleared after a failed load")
	}
}

func TestLoadingVisibleOnlyInFlight(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")

	var seen []State
	unsubscribe := h.m.Subscribe(func(s State) { seen = append(seen, s) })
	h.m.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})
	unsubscribe()

	if len(seen) != 2 {
		t.Fatalf("got %d notifications, want 2", len(seen))
	}
	if !seen[0].IsLoading {
		t.Error("first notification should be loading")
	}
	if seen[1].IsLoading || !seen[1].IsAuthenticated {
		t.Errorf("final notification: got %+v", seen[1])
	}

	h.m.ClearError()
	if len(seen) != 2 {
		t.Error("unsubscribed callback was still called")
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	res := h.m.Register(context.Background(), api.RegisterRequest{Name: "Ada", Email: "a@b.com", Password: "secret"})
	if !res.Success || res.Message != "User registered successfully" {
		t.Fatalf("result: got %+v", res)
	}
	if s := h.m.State(); !s.IsAuthenticated || s.User.Name() != "Ada" {
		t.Errorf("state: got %+v", s)
	}

	// Same email again fails and drops to anonymous with an error
	res = h.m.Register(context.Background(), api.RegisterRequest{Name: "Ada", Email: "a@b.com", Password: "secret"})
	if res.Success || res.Error != "User already exists with this email" {
		t.Errorf("duplicate result: got %+v", res)
	}
	if s := h.m.State(); s.IsAuthenticated || s.Error != res.Error {
		t.Errorf("state: got %+v", s)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")
	ctx := context.Background()
	h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})

	for i := 0; i < 2; i++ {
		if res := h.m.Logout(ctx); !res.Success {
			t.Fatalf("logout %d: %+v", i, res)
		}
		s := h.m.State()
		if s.IsAuthenticated || s.User != nil || s.Error != "" || s.IsLoading {
			t.Errorf("logout %d: state %+v", i, s)
		}
		if _, ok := h.store.Get(); ok {
			t.Errorf("logout %d: token still stored", i)
		}
	}
}

func TestLogoutWithBackendDown(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")
	ctx := context.Background()
	h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})
	h.srv.Close()

	if res := h.m.Logout(ctx); !res.Success {
		t.Fatalf("Logout: %+v", res)
	}
	if _, ok := h.store.Get(); ok {
		t.Error("token still stored")
	}
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")
	ctx := context.Background()
	h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})

	res := h.m.UpdateProfile(ctx, models.User{"name": "Ada L.", "bio": "math"})
	if !res.Success || res.Message != "Profile updated successfully" {
		t.Fatalf("result: got %+v", res)
	}
	s := h.m.State()
	if s.User.Name() != "Ada L." || s.User["bio"] != "math" || s.User.Email() != "a@b.com" {
		t.Errorf("user: got %v", s.User)
	}
}

func TestUpdateProfileFailureIsolated(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")
	ctx := context.Background()
	h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})
	before := h.m.State()

	h.srv.Fail("PUT", "/auth/profile", http.StatusBadRequest, "Email already in use")
	res := h.m.UpdateProfile(ctx, models.User{"email": "b@c.com"})
	if res.Success || res.Error != "Email already in use" {
		t.Fatalf("result: got %+v", res)
	}
	after := h.m.State()
	if !statesEqual(before, after) {
		t.Errorf("state changed on failed update: before %+v, after %+v", before, after)
	}
	if after.Error != "" {
		t.Errorf("shared error should stay empty, got %q", after.Error)
	}
}

func TestChangePasswordNoStateChange(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "secret")
	ctx := context.Background()
	h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "secret"})
	before := h.m.State()

	if res := h.m.ChangePassword(ctx, api.PasswordChange{CurrentPassword: "nope", NewPassword: "newsecret"}); res.Success {
		t.Error("wrong current password should fail")
	}
	if res := h.m.ChangePassword(ctx, api.PasswordChange{CurrentPassword: "secret", NewPassword: "newsecret"}); !res.Success {
		t.Errorf("ChangePassword: %+v", res)
	}
	if !statesEqual(before, h.m.State()) {
		t.Error("ChangePassword changed the session")
	}
}

func TestClearError(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail("POST", "/auth/login", http.StatusUnauthorized, "")
	h.m.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})

	if s := h.m.State(); s.Error != "HTTP error! status: 401" {
		t.Fatalf("Error: got %q", s.Error)
	}
	h.m.ClearError()
	if s := h.m.State(); s.Error != "" || s.IsAuthenticated {
		t.Errorf("state after ClearError: %+v", s)
	}
}

func TestStateIsACopy(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("Ada", "a@b.com", "x")
	h.m.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})

	s := h.m.State()
	s.User["name"] = "Mallory"
	if h.m.State().User.Name() != "Ada" {
		t.Error("mutating a snapshot changed the live session")
	}
}

// TestSessionInvariantsRandomOps runs random operation sequences with
// injected backend failures and checks the session invariants after each.
func TestSubscribersSeeCommitOrder(t *testing.T) {
	h := newHarness(t)
	const n = 8
	for i := 0; i < n; i++ {
		h.srv.AddUser(fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@b.com", i), "x")
	}

	var (
		mu   sync.Mutex
		last State
		seen int
	)
	h.m.Subscribe(func(s State) {
		mu.Lock()
		last = s
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.m.Login(context.Background(), api.Credentials{Email: fmt.Sprintf("u%d@b.com", i), Password: "x"})
		}(i)
	}
	wg.Wait()

	final := h.m.State()
	mu.Lock()
	defer mu.Unlock()
	if seen != 2*n {
		t.Errorf("notifications: got %d, want %d", seen, 2*n)
	}
	if !statesEqual(last, final) {
		t.Errorf("last notification %+v does not match final state %+v", last, final)
	}
}

func TestSessionInvariantsRandomOps(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			h := newHarness(t)
			h.srv.AddUser("Ada", "a@b.com", "secret")
			rng := rand.New(rand.NewSource(seed))
			ctx := context.Background()
			registered := 0

			var mu sync.Mutex
			h.m.Subscribe(func(s State) {
				mu.Lock()
				defer mu.Unlock()
				checkInvariants(t, s)
			})

			for i := 0; i < 60; i++ {
				h.srv.Recover()
				if rng.Intn(4) == 0 {
					paths := []string{"/auth/login", "/auth/register", "/auth/me", "/auth/profile"}
					methods := []string{"POST", "POST", "GET", "PUT"}
					k := rng.Intn(len(paths))
					h.srv.Fail(methods[k], paths[k], 500+rng.Intn(4), "")
				}

				op := rng.Intn(8)
				before := h.m.State()
				switch op {
				case 0:
					res := h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "secret"})
					s := h.m.State()
					if res.Success != s.IsAuthenticated {
						t.Fatalf("op %d login: result %+v vs state %+v", i, res, s)
					}
					if res.Success {
						if _, ok := h.store.Get(); !ok {
							t.Fatalf("op %d: successful login stored no token", i)
						}
					}
				case 1:
					res := h.m.Login(ctx, api.Credentials{Email: "a@b.com", Password: "wrong"})
					if res.Success || h.m.State().IsAuthenticated {
						t.Fatalf("op %d: bad password logged in", i)
					}
				case 2:
					registered++
					email := fmt.Sprintf("u%d@b.com", registered)
					res := h.m.Register(ctx, api.RegisterRequest{Name: "U", Email: email, Password: "secret"})
					if res.Success != h.m.State().IsAuthenticated {
						t.Fatalf("op %d register: result %+v vs state %+v", i, res, h.m.State())
					}
				case 3:
					h.m.Logout(ctx)
					s := h.m.State()
					if s.IsAuthenticated || s.Error != "" {
						t.Fatalf("op %d: logout left %+v", i, s)
					}
					if _, ok := h.store.Get(); ok {
						t.Fatalf("op %d: logout left a token", i)
					}
				case 4:
					h.m.Load(ctx)
					s := h.m.State()
					if _, ok := h.store.Get(); !ok && s.IsAuthenticated {
						t.Fatalf("op %d: authenticated after load without a token", i)
					}
				case 5:
					res := h.m.UpdateProfile(ctx, models.User{"bio": fmt.Sprint(i)})
					if !res.Success && !statesEqual(before, h.m.State()) {
						t.Fatalf("op %d: failed profile update changed state", i)
					}
				case 6:
					h.m.ClearError()
					if h.m.State().Error != "" {
						t.Fatalf("op %d: error survived ClearError", i)
					}
				case 7:
					h.srv.RevokeTokens()
				}

				s := h.m.State()
				checkInvariants(t, s)
				if s.IsLoading {
					t.Fatalf("op %d: loading after the operation completed", i)
				}
			}
		})
	}
}
