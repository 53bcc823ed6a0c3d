package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
	"reviewverso/models"
)

type fakeSessions struct {
	updated []models.User
	cleared []int64
}

func (f *fakeSessions) UpdateUser(user models.User) int {
	f.updated = append(f.updated, user)
	return 1
}

func (f *fakeSessions) ClearUser(id int64) int {
	f.cleared = append(f.cleared, id)
	return 1
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *fakeSessions) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sessions := &fakeSessions{}
	return NewService(backend.NewClient(srv.URL, srv.Client()), sessions), sessions
}

func strPtr(s string) *string { return &s }

func TestGet(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/4", r.URL.Path)
		_, _ = w.Write([]byte(`{"idUser":4,"username":"luis","avatarUrl":"/a.png"}`))
	})
	user, err := svc.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "luis", user.Username)
	assert.True(t, user.HasAvatar())

	_, err = svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestListNeverReturnsNil(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	users, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestListForbidden(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := svc.List(context.Background())
	assert.Equal(t, apierror.MsgForbidden, apierror.Message(err))
}

func TestUpdateSendsOnlyChangedFields(t *testing.T) {
	svc, sessions := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, []string{"nuevo"}, r.MultipartForm.Value["username"])
		assert.NotContains(t, r.MultipartForm.Value, "email")
		assert.NotContains(t, r.MultipartForm.Value, "password")
		_, _ = w.Write([]byte(`{"idUser":4,"username":"nuevo"}`))
	})

	user, err := svc.Update(context.Background(), 4, models.UserUpdate{
		Username: strPtr(" nuevo "),
		Password: strPtr(""),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "nuevo", user.Username)
	require.Len(t, sessions.updated, 1)
	assert.Equal(t, int64(4), sessions.updated[0].ID)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called")
	})
	_, err := svc.Update(context.Background(), 4, models.UserUpdate{Email: strPtr("bad")}, nil)
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Update(context.Background(), 4, models.UserUpdate{Role: strPtr("root")}, nil)
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = svc.Update(context.Background(), 4, models.UserUpdate{Username: strPtr("  ")}, nil)
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestDeleteClearsSessions(t *testing.T) {
	svc, sessions := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, svc.Delete(context.Background(), 9))
	assert.Equal(t, []int64{9}, sessions.cleared)
}

func TestDeleteNotFoundKeepsSessions(t *testing.T) {
	svc, sessions := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	err := svc.Delete(context.Background(), 9)
	require.ErrorIs(t, err, apierror.ErrNotFound)
	assert.Empty(t, sessions.cleared)
}
