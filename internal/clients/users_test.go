// internal/clients/users_test.go
package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	redismock "github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func userServer(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/api/v1/users/user-001", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"user-001","firstName":"Asha","lastName":"Patel","email":"asha@example.com","phone":"+911234567890"}`))
	}))
}

// ==========================
// Cache Tests
// ==========================

func TestUsersClient_CachesFetchedUser(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	var hits int32
	srv := userServer(t, &hits)
	defer srv.Close()

	client := NewUsersClient(srv.URL, 5*time.Second, cache, time.Minute, logger.NewTestLogger(t))

	user, err := client.GetUser(context.Background(), "user-001", "token-123")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.True(t, mr.Exists("users:profile:user-001"))

	// Second lookup is served from Redis without touching the service.
	user, err = client.GetUser(context.Background(), "user-001", "token-123")
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.FirstName)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestUsersClient_CacheEntryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	var hits int32
	srv := userServer(t, &hits)
	defer srv.Close()

	client := NewUsersClient(srv.URL, 5*time.Second, cache, time.Minute, logger.NewTestLogger(t))

	_, err := client.GetUser(context.Background(), "user-001", "token-123")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = client.GetUser(context.Background(), "user-001", "token-123")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestUsersClient_CacheFailureDegradesToFetch(t *testing.T) {
	cache, mock := redismock.NewClientMock()
	mock.ExpectGet("users:profile:user-001").SetErr(errors.New("connection refused"))
	mock.Regexp().ExpectSet("users:profile:user-001", `.*user-001.*`, time.Minute).
		SetErr(errors.New("connection refused"))

	var hits int32
	srv := userServer(t, &hits)
	defer srv.Close()

	client := NewUsersClient(srv.URL, 5*time.Second, cache, time.Minute, logger.NewTestLogger(t))

	user, err := client.GetUser(context.Background(), "user-001", "token-123")
	require.NoError(t, err)
	assert.Equal(t, "user-001", user.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestUsersClient_NilCacheFetchesDirectly(t *testing.T) {
	var hits int32
	srv := userServer(t, &hits)
	defer srv.Close()

	client := NewUsersClient(srv.URL, 5*time.Second, nil, time.Minute, logger.NewTestLogger(t))

	user, err := client.GetUser(context.Background(), "user-001", "token-123")
	require.NoError(t, err)
	assert.Equal(t, "Patel", user.LastName)
}

// ==========================
// Fetch Tests
// ==========================

func TestUsersClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewUsersClient(srv.URL, 5*time.Second, nil, time.Minute, logger.NewTestLogger(t))
	_, err := client.GetUser(context.Background(), "user-missing", "token-123")
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeEntityNotFound))
}
