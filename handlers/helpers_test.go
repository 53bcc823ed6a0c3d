package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"reviewverso/api"
	"reviewverso/models"
	"reviewverso/services/sessions"
	"reviewverso/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Status  int             `json:"status"`
}

type testServer struct {
	t        *testing.T
	router   *mux.Router
	sessions *sessions.Service
}

func newTestServer(t *testing.T, rt Routes) *testServer {
	t.Helper()
	store, err := sessions.NewService(nil, "")
	require.NoError(t, err)
	rt.Session = api.SessionMiddleware(store)

	router := utils.NewRouter(utils.CORSConfig{})
	rt.Register(router)
	return &testServer{t: t, router: router, sessions: store}
}

// login stores a session for a user and returns its bearer token.
func (s *testServer) login(id int64, role string) string {
	s.t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"idUser": id,
		"role":   role,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(s.t, err)
	_, err = s.sessions.Create(token, models.User{ID: id, Username: "user", Role: role})
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(method, target, token string, payload any) *httptest.ResponseRecorder {
	s.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.t, err)
		body = bytes.NewReader(raw)
	}
	return s.do(method, target, token, body, "application/json")
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
