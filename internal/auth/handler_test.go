package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryUserRepo struct {
	byEmail map[string]User
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return User{}, shared.NotFoundf("user not found")
	}
	return u, nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, shared.NotFoundf("user not found")
}

func testHandler(t *testing.T) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	repo := &memoryUserRepo{byEmail: map[string]User{
		"owner@ledgerline.test": {
			ID:           1,
			Email:        "owner@ledgerline.test",
			Name:         "Owner",
			Role:         "owner",
			PasswordHash: hash,
			IsActive:     true,
		},
	}}

	sessions := shared.NewSessionManager(client, "ledgerline_session", "test-secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(repo), sessions), sessions
}

// commitWriter mirrors the app middleware: the session commits before the
// first byte of the response so Set-Cookie lands ahead of the recorder's
// header snapshot.
type commitWriter struct {
	http.ResponseWriter
	sessions      *shared.SessionManager
	sess          *shared.Session
	ctx           context.Context
	headerWritten bool
}

func (w *commitWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.sessions.Commit(w.ctx, w.ResponseWriter, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func doLogin(t *testing.T, h *Handler, sessions *shared.SessionManager, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	h.Login(&commitWriter{ResponseWriter: rec, sessions: sessions, sess: sess, ctx: req.Context()}, req)
	require.NoError(t, sessions.Commit(req.Context(), rec, sess))
	return rec
}

func TestLoginSuccessBindsPrincipal(t *testing.T) {
	h, sessions := testHandler(t)

	rec := doLogin(t, h, sessions, `{"email":"owner@ledgerline.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"role":"owner"`)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	// A follow-up request with the cookie resolves the principal.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	require.Equal(t, int64(1), sess.UserID())
	require.Equal(t, "owner", sess.Role())
}

func TestLoginWrongPassword(t *testing.T) {
	h, sessions := testHandler(t)

	rec := doLogin(t, h, sessions, `{"email":"owner@ledgerline.test","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	h, sessions := testHandler(t)

	rec := doLogin(t, h, sessions, `{"email":"nobody@ledgerline.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	h, sessions := testHandler(t)
	repo := h.service.repo.(*memoryUserRepo)
	u := repo.byEmail["owner@ledgerline.test"]
	u.IsActive = false
	repo.byEmail["owner@ledgerline.test"] = u

	rec := doLogin(t, h, sessions, `{"email":"owner@ledgerline.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	h, sessions := testHandler(t)

	rec := doLogin(t, h, sessions, `{"email":"owner@ledgerline.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	out := httptest.NewRecorder()
	h.Logout(out, req)
	require.NoError(t, sessions.Commit(req.Context(), out, sess))
	require.Equal(t, http.StatusOK, out.Code)

	again, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	require.Zero(t, again.UserID())
}
