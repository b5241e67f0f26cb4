package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDevUserIDHeader(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-User-Id")
		w.Write([]byte(`{"ok":true,"userId":"dev-user-001"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, AuthDevUserID("dev-user-001"))

	var ack AckResponse
	require.NoError(t, client.Post(context.Background(), "/v1/user/profile", UserProfileUpsertRequest{}, &ack))
	assert.Equal(t, "dev-user-001", gotHeader)
	assert.True(t, ack.OK)
	assert.Equal(t, "dev-user-001", ack.UserID)
	assert.True(t, client.IsAuthenticated())
}

func TestClientBearerToken(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, AuthBearer(func(ctx context.Context) (string, error) {
		return "  секретный-токен  ", nil
	}))

	var ack AckResponse
	require.NoError(t, client.Get(context.Background(), "/v1/bootstrap", &ack))
	assert.Equal(t, "Bearer секретный-токен", gotHeader)
}

func TestClientBearerEmptyTokenFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("запрос не должен дойти до сервера")
	}))
	defer server.Close()

	client := NewClient(server.URL, AuthBearer(func(ctx context.Context) (string, error) {
		return "   ", nil
	}))

	err := client.Get(context.Background(), "/v1/bootstrap", nil)
	assert.Error(t, err)
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid auth token."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, AuthNone())
	assert.False(t, client.IsAuthenticated())

	err := client.Get(context.Background(), "/v1/bootstrap", nil)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Invalid auth token")
}

func TestClientDecodesBootstrap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bootstrap", r.URL.Path)
		w.Write([]byte(`{
			"userId": "u1",
			"profile": {"nickname": "A", "notificationsEnabled": true},
			"routine": {"routineTime": "07:00"},
			"streak": {"currentStreak": 7},
			"progress": {"today": {"completed": 4, "total": 5}}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, AuthDevUserID("u1"))

	var resp BootstrapResponse
	require.NoError(t, client.Get(context.Background(), "/v1/bootstrap", &resp))

	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "A", GetString(resp.Profile, "nickname"))
	assert.True(t, GetBool(resp.Profile, "notificationsEnabled"))
	assert.Equal(t, "07:00", GetString(resp.Routine, "routineTime"))
	assert.Equal(t, 7, GetInt(resp.Streak, "currentStreak"))
	assert.Equal(t, 4, GetInt(resp.Progress.Today, "completed"))
}
