package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewverso/internal/apierror"
	ctxauth "reviewverso/internal/auth"
	"reviewverso/internal/backend"
	"reviewverso/models"
	"reviewverso/services/sessions"
)

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  12,
		"role": "user",
		"exp":  exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *sessions.Service) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := sessions.NewService(afero.NewMemMapFs(), "/sessions")
	require.NoError(t, err)
	return NewService(backend.NewClient(srv.URL, srv.Client()), store), store
}

func TestLoginStoresSession(t *testing.T) {
	token := testToken(t, time.Now().Add(time.Hour))
	svc, store := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"user":  map[string]any{"idUser": 12, "username": "ana", "role": "user"},
		})
	})

	session, err := svc.Login(context.Background(), " ana@example.com ", "secret123")
	require.NoError(t, err)
	assert.True(t, session.IsAuthenticated())
	assert.Equal(t, "ana", session.User.Username)

	stored, err := store.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stored.User.ID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, store := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	})

	_, err := svc.Login(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, apierror.ErrUnauthorized)
	assert.Equal(t, apierror.MsgUnauthorized, apierror.Message(err))
	assert.Zero(t, store.Count())
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called")
	})
	_, err := svc.Login(context.Background(), "", "x")
	assert.True(t, errors.Is(err, ErrCredentialsRequired))
	assert.Equal(t, http.StatusBadRequest, apierror.Status(err))
}

func TestLoginRejectsExpiredToken(t *testing.T) {
	token := testToken(t, time.Now().Add(-time.Hour))
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"token": token, "user": map[string]any{"idUser": 12}})
	})
	_, err := svc.Login(context.Background(), "ana@example.com", "secret123")
	require.ErrorIs(t, err, apierror.ErrUnauthorized)
}

func TestLogoutClearsSessionEvenWhenBackendFails(t *testing.T) {
	token := testToken(t, time.Now().Add(time.Hour))
	svc, store := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusInternalServerError)
	})
	session, err := store.Create(token, models.User{ID: 12})
	require.NoError(t, err)

	ctx := ctxauth.WithSession(context.Background(), session)
	require.NoError(t, svc.Logout(ctx, token))
	_, err = store.Validate(token)
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestRegisterSendsMultipart(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "ana", r.FormValue("username"))
		assert.Equal(t, "hola", r.FormValue("bio"))
		_, header, err := r.FormFile("avatar")
		if assert.NoError(t, err) {
			assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"ok","user":{"idUser":30,"username":"ana"}}`))
	})

	user, err := svc.Register(context.Background(), models.Registration{
		Username: "ana", Email: "ana@example.com", Password: "secret123", Bio: " hola ",
	}, &backend.Upload{Name: "me.png", Data: png})
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called")
	})
	tests := []struct {
		reg  models.Registration
		want error
	}{
		{models.Registration{Email: "a@b.es", Password: "secret123"}, ErrUsernameRequired},
		{models.Registration{Username: "ana", Email: "nope", Password: "secret123"}, ErrInvalidEmail},
		{models.Registration{Username: "ana", Email: "a@b.es", Password: "123"}, ErrPasswordTooShort},
	}
	for _, tt := range tests {
		_, err := svc.Register(context.Background(), tt.reg, nil)
		assert.ErrorIs(t, err, tt.want)
	}

	_, err := svc.Register(context.Background(), models.Registration{
		Username: "ana", Email: "a@b.es", Password: "secret123",
	}, &backend.Upload{Name: "x.png", Data: []byte("plain text")})
	assert.ErrorIs(t, err, apierror.ErrBadRequest)
}

func TestRegisterConflict(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	_, err := svc.Register(context.Background(), models.Registration{
		Username: "ana", Email: "a@b.es", Password: "secret123",
	}, nil)
	require.ErrorIs(t, err, apierror.ErrConflict)
	assert.Equal(t, apierror.MsgConflict, apierror.Message(err))
}
