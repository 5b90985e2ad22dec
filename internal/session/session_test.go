package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a client on the test Valkey database, or skips
// the test when Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}
	t.Cleanup(func() {
		if keys, _ := client.Keys(ctx, "session:*").Result(); len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// login creates a session for accountID and returns its cookie.
func login(t *testing.T, store *Store, accountID int64) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	id, err := store.Create(context.Background(), w, &Data{AccountID: accountID, Email: "s@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			if c.Value != id {
				t.Fatalf("cookie value %q, session id %q", c.Value, id)
			}
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestCreateAndGet(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)
	cookie := login(t, store, 42)

	if !cookie.HttpOnly || cookie.Secure {
		t.Errorf("cookie flags: HttpOnly=%v Secure=%v", cookie.HttpOnly, cookie.Secure)
	}
	if cookie.MaxAge != int(DefaultTTL.Seconds()) {
		t.Errorf("MaxAge: got %d", cookie.MaxAge)
	}

	data, err := store.Get(context.Background(), requestWith(cookie))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data == nil || data.AccountID != 42 || data.Email != "s@example.com" {
		t.Fatalf("Get: got %+v", data)
	}
	if data.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestGetMissing(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"empty cookie", &http.Cookie{Name: CookieName, Value: ""}},
		{"unknown id", &http.Cookie{Name: CookieName, Value: "nonexistent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := store.Get(context.Background(), requestWith(tt.cookie))
			if err != nil || data != nil {
				t.Errorf("got (%v, %v), want (nil, nil)", data, err)
			}
		})
	}
}

func TestGetExtendsLifetime(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)
	cookie := login(t, store, 5)
	ctx := context.Background()

	client.Expire(ctx, keyPrefix+cookie.Value, time.Minute)
	if _, err := store.Get(ctx, requestWith(cookie)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ttl := client.TTL(ctx, keyPrefix+cookie.Value).Val(); ttl <= time.Minute {
		t.Errorf("TTL after Get: %v", ttl)
	}
}

func TestDestroy(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)
	cookie := login(t, store, 7)
	ctx := context.Background()

	w := httptest.NewRecorder()
	if err := store.Destroy(ctx, w, requestWith(cookie)); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName && c.MaxAge != -1 {
			t.Error("cookie not expired")
		}
	}
	if data, _ := store.Get(ctx, requestWith(cookie)); data != nil {
		t.Error("session still readable")
	}
	if client.SIsMember(ctx, indexKey(7), cookie.Value).Val() {
		t.Error("session id left in account index")
	}

	if err := store.Destroy(ctx, httptest.NewRecorder(), requestWith(nil)); err != nil {
		t.Errorf("Destroy without cookie: %v", err)
	}
}

func TestRevokeAccount(t *testing.T) {
	store := NewStore(testValkeyClient(t), false)
	ctx := context.Background()
	first, second := login(t, store, 11), login(t, store, 11)
	other := login(t, store, 12)

	if err := store.RevokeAccount(ctx, 11); err != nil {
		t.Fatalf("RevokeAccount: %v", err)
	}
	for _, c := range []*http.Cookie{first, second} {
		if data, _ := store.Get(ctx, requestWith(c)); data != nil {
			t.Error("revoked session still readable")
		}
	}
	if data, _ := store.Get(ctx, requestWith(other)); data == nil {
		t.Error("other account's session revoked")
	}
	if err := store.RevokeAccount(ctx, 999); err != nil {
		t.Errorf("RevokeAccount without sessions: %v", err)
	}
}

func TestSecureCookie(t *testing.T) {
	store := NewStore(testValkeyClient(t), true)
	if c := login(t, store, 9); !c.Secure {
		t.Error("expected Secure cookie")
	}
}
