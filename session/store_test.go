package session

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/clock"
)

type countingCanceler struct {
	n atomic.Int64
}

func (c *countingCanceler) Cancel() { c.n.Add(1) }

func newTestStore(t *testing.T) (*Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	return NewStore(clk, DefaultSafetyBuffer), clk
}

func TestSetAccessTokenThenSetUserAuthenticates(t *testing.T) {
	store, _ := newTestStore(t)

	store.SetAccessToken("T", 6*time.Hour)
	store.SetUser(User{ID: "u1", Email: "a@b.com", SessionID: "s1"})

	if !store.IsAuthenticated() {
		t.Fatal("expected authenticated after token + user")
	}
	u, ok := store.CurrentUser()
	if !ok || u.ID != "u1" || u.Email != "a@b.com" || u.SessionID != "s1" {
		t.Fatalf("unexpected current user %+v ok=%v", u, ok)
	}
}

func TestUserWithoutTokenIsClearedOnRead(t *testing.T) {
	store, _ := newTestStore(t)
	var actions []Action
	store.OnReconcile(func(a Action) { actions = append(actions, a) })

	store.SetUser(User{ID: "u1", Email: "a@b.com"})

	if store.IsAuthenticated() {
		t.Fatal("flag without token must not authenticate")
	}
	if got := store.Snapshot(); got != (State{}) {
		t.Fatalf("expected cleared state, got %+v", got)
	}
	if len(actions) != 1 || actions[0] != ActionCleared {
		t.Fatalf("expected one clear action, got %v", actions)
	}
}

func TestExpiryDropsFlagButKeepsIdentity(t *testing.T) {
	store, clk := newTestStore(t)
	store.Commit(User{ID: "u1", Email: "a@b.com"}, "T", 10*time.Minute)

	clk.Advance(9*time.Minute + 30*time.Second)

	if store.IsAuthenticated() {
		t.Fatal("token within safety buffer must not authenticate")
	}
	if _, ok := store.AccessToken(); ok {
		t.Fatal("AccessToken must not hand out a token inside the buffer")
	}
	u, ok := store.Identity()
	if !ok || u.ID != "u1" {
		t.Fatalf("expected identity to survive expiry, got %+v ok=%v", u, ok)
	}
}

func TestClearIsIdempotentAndCancelsScheduler(t *testing.T) {
	store, _ := newTestStore(t)
	c := &countingCanceler{}
	store.BindScheduler(c)
	store.Commit(User{ID: "u1", Email: "a@b.com"}, "T", time.Hour)

	store.Clear()
	once := store.Snapshot()
	store.Clear()
	twice := store.Snapshot()

	if once != twice || once != (State{}) {
		t.Fatalf("expected identical empty states, got %+v and %+v", once, twice)
	}
	if got := c.n.Load(); got != 2 {
		t.Fatalf("expected cancel on every Clear, got %d", got)
	}
	if store.IsAuthenticated() {
		t.Fatal("cleared store must not authenticate")
	}
}

func TestCommitStampsExpiryFromClock(t *testing.T) {
	store, clk := newTestStore(t)
	expiry := store.Commit(User{ID: "u1", Email: "a@b.com"}, "T", 21600*time.Second)

	want := clk.Now().Add(6 * time.Hour)
	if !expiry.Equal(want) || !store.TokenExpiry().Equal(want) {
		t.Fatalf("expected expiry %v, got %v / %v", want, expiry, store.TokenExpiry())
	}
}

// Any interleaving of mutations and clock movement must keep
// IsAuthenticated() => token present, unexpired and identity present.
func TestAuthenticatedImpliesValidStateUnderRandomOps(t *testing.T) {
	store, clk := newTestStore(t)
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		switch r.Intn(6) {
		case 0:
			store.SetUser(User{ID: "u1", Email: "a@b.com"})
		case 1:
			store.SetAccessToken("T", time.Duration(r.Intn(600))*time.Second)
		case 2:
			store.Commit(User{ID: "u1", Email: "a@b.com"}, "T", time.Duration(r.Intn(600))*time.Second)
		case 3:
			store.Clear()
		case 4:
			clk.Advance(time.Duration(r.Intn(120)) * time.Second)
		case 5:
			store.SetUser(User{ID: "u1"})
		}

		if store.IsAuthenticated() {
			st := store.Snapshot()
			if st.AccessToken == "" || st.UserID == "" || st.UserEmail == "" {
				t.Fatalf("authenticated with missing data: %+v", st)
			}
			if !st.TokenExpiry.After(clk.Now()) {
				t.Fatalf("authenticated with expired token: %+v now=%v", st, clk.Now())
			}
		}
	}
}

func TestStoreConcurrentAccessSafe(t *testing.T) {
	store := NewStore(clock.Real{}, DefaultSafetyBuffer)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				switch (i + j) % 4 {
				case 0:
					store.Commit(User{ID: "u1", Email: "a@b.com"}, "T", time.Hour)
				case 1:
					store.IsAuthenticated()
				case 2:
					store.CurrentUser()
				case 3:
					store.Clear()
				}
			}
		}(i)
	}
	wg.Wait()
}
