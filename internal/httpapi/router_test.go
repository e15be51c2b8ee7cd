package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libris/internal/admin"
	"libris/internal/auth"
	"libris/internal/catalog"
	"libris/internal/circulation"
	"libris/internal/engagement"
	"libris/internal/httpapi"
	"libris/internal/membership"
	"libris/internal/memstore"
)

type api struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := zap.NewNop()
	db := memstore.New()
	tokens := auth.NewTokens("test-secret", time.Hour)
	engage := engagement.NewService(db.Engagement(), logger)

	svc := httpapi.Services{
		Catalog:     catalog.NewService(db.Catalog(), logger),
		Circulation: circulation.NewService(db.Circulation(), logger, circulation.WithNotifier(engage)),
		Membership:  membership.NewService(db.Membership(), tokens, logger, 0),
		Engagement:  engage,
		Admin:       admin.NewService(db.Admin(), db.Journal()),
		Tokens:      tokens,
	}
	_, err := svc.Membership.BootstrapAdmin(context.Background(), "admin123")
	require.NoError(t, err)

	server := httptest.NewServer(httpapi.NewRouter(svc, logger))
	t.Cleanup(server.Close)
	return &api{t: t, server: server}
}

func (a *api) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	return a.send(req, token)
}

func (a *api) send(req *http.Request, token string) (int, map[string]interface{}) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (a *api) login(username, password string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(a.t, http.StatusOK, status, body)
	return body["token"].(string)
}

func (a *api) registerAndLogin(username string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "pass-" + username,
		"confirm_password": "pass-" + username,
	})
	require.Equal(a.t, http.StatusCreated, status, body)
	return a.login(username, "pass-"+username)
}

func field(m map[string]interface{}, path ...string) interface{} {
	var cur interface{} = m
	for _, p := range path {
		cur = cur.(map[string]interface{})[p]
	}
	return cur
}

func TestCirculationOverHTTP(t *testing.T) {
	a := newAPI(t)
	adminToken := a.login(membership.AdminUsername, "admin123")
	userToken := a.registerAndLogin("reader")

	status, body := a.do(http.MethodPost, "/admin/books", adminToken, map[string]interface{}{
		"title": "Kindred", "author": "Octavia Butler", "total_copies": 2,
	})
	require.Equal(t, http.StatusCreated, status, body)
	bookID := field(body, "book", "id").(string)

	status, body = a.do(http.MethodGet, "/books?q=octavia", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = a.do(http.MethodPost, "/books/"+bookID+"/reserve", userToken, nil)
	require.Equal(t, http.StatusCreated, status, body)
	reservationID := field(body, "reservation", "id").(string)

	status, body = a.do(http.MethodPost, "/books/"+bookID+"/reserve", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "duplicate_pending", body["code"])

	status, body = a.do(http.MethodGet, "/books/"+bookID, userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["has_reservation"])

	status, _ = a.do(http.MethodPost, "/reservations/"+reservationID+"/loan", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = a.do(http.MethodPost, "/reservations/"+reservationID+"/loan", adminToken, nil)
	require.Equal(t, http.StatusCreated, status, body)
	loanID := field(body, "loan", "id").(string)

	status, body = a.do(http.MethodGet, "/books/"+bookID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, field(body, "book", "available_copies"))
	assert.Equal(t, false, body["has_reservation"])

	status, body = a.do(http.MethodGet, "/loans", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["loans"], 1)

	status, body = a.do(http.MethodPost, "/loans/"+loanID+"/return", adminToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "returned", field(body, "loan", "status"))

	status, body = a.do(http.MethodPost, "/loans/"+loanID+"/return", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "already_returned", body["code"])

	status, body = a.do(http.MethodGet, "/notifications", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["notifications"], 2)

	status, body = a.do(http.MethodGet, "/rankings", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["rankings"], 1)

	status, body = a.do(http.MethodGet, "/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total_books"])
	assert.EqualValues(t, 2, body["total_users"])

	status, body = a.do(http.MethodGet, "/admin/events?limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["events"], 2)
	assert.EqualValues(t, 2, body["next"])

	status, body = a.do(http.MethodGet, "/admin/events?aggregate="+loanID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["events"], 2)
}

func TestAuthGuards(t *testing.T) {
	a := newAPI(t)
	userToken := a.registerAndLogin("guarded")

	status, body := a.do(http.MethodGet, "/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "auth_required", body["code"])

	status, _ = a.do(http.MethodGet, "/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = a.do(http.MethodGet, "/books", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", body["code"])

	status, body = a.do(http.MethodGet, "/auth/me", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "guarded", body["username"])
	assert.NotContains(t, body, "password_hash")

	status, _ = a.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "guarded", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCancelReservationOverHTTP(t *testing.T) {
	a := newAPI(t)
	adminToken := a.login(membership.AdminUsername, "admin123")
	owner := a.registerAndLogin("owner")
	other := a.registerAndLogin("other")

	_, body := a.do(http.MethodPost, "/admin/books", adminToken, map[string]interface{}{"title": "Beloved", "author": "Toni Morrison"})
	bookID := field(body, "book", "id").(string)

	_, body = a.do(http.MethodPost, "/books/"+bookID+"/reserve", owner, nil)
	reservationID := field(body, "reservation", "id").(string)

	status, _ := a.do(http.MethodPost, "/reservations/"+reservationID+"/cancel", other, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = a.do(http.MethodGet, "/reservations", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["reservations"])

	status, _ = a.do(http.MethodPost, "/reservations/"+reservationID+"/cancel", owner, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = a.do(http.MethodPost, "/reservations/"+reservationID+"/cancel", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "already_cancelled", body["code"])

	status, _ = a.do(http.MethodPost, "/reservations/not-a-uuid/cancel", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBookAdministration(t *testing.T) {
	a := newAPI(t)
	adminToken := a.login(membership.AdminUsername, "admin123")

	_, body := a.do(http.MethodPost, "/admin/books", adminToken, map[string]interface{}{"title": "Draft", "author": "Someone", "total_copies": 5})
	bookID := field(body, "book", "id").(string)

	status, body := a.do(http.MethodPatch, "/admin/books/"+bookID+"/copies", adminToken, map[string]int{"total_copies": 7})
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 7, body["available_copies"])

	status, _ = a.do(http.MethodPatch, "/admin/books/"+bookID+"/copies", adminToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(http.MethodPut, "/admin/books/"+bookID, adminToken, map[string]interface{}{"title": "Final", "author": "Someone", "total_copies": 3})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Final", field(body, "book", "title"))

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "books.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("title,author,isbn,publisher,totalCopies\nA,X,,,2\nB,Y,,,\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/admin/books/import", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, body = a.send(req, adminToken)
	require.Equal(t, http.StatusOK, status, body)

	status, body = a.do(http.MethodGet, "/admin/books", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["books"], 3)

	status, _ = a.do(http.MethodDelete, "/admin/books/"+bookID, adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = a.do(http.MethodGet, "/books/"+bookID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExportLoansOverHTTP(t *testing.T) {
	a := newAPI(t)
	adminToken := a.login(membership.AdminUsername, "admin123")

	req, err := http.NewRequest(http.MethodGet, a.server.URL+"/admin/loans/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "loans-")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "id,userName,bookTitle,loanDate,dueDate,returnDate,status\n", string(raw))
}

func TestFavoritesAndReviewsOverHTTP(t *testing.T) {
	a := newAPI(t)
	adminToken := a.login(membership.AdminUsername, "admin123")
	userToken := a.registerAndLogin("fan")

	_, body := a.do(http.MethodPost, "/admin/books", adminToken, map[string]interface{}{"title": "Loved", "author": "Writer"})
	bookID := field(body, "book", "id").(string)

	status, body := a.do(http.MethodGet, "/favorites/"+bookID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["is_favorite"])

	status, _ = a.do(http.MethodPost, "/favorites", userToken, map[string]string{"book_id": bookID})
	require.Equal(t, http.StatusCreated, status)

	status, body = a.do(http.MethodGet, "/favorites/"+bookID, userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["is_favorite"])

	status, body = a.do(http.MethodGet, "/favorites", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["favorites"], 1)

	status, _ = a.do(http.MethodDelete, "/favorites", userToken, map[string]string{"book_id": bookID})
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodPost, "/reviews", userToken, map[string]interface{}{"book_id": bookID, "rating": 5, "comment": "great"})
	require.Equal(t, http.StatusCreated, status)

	status, body = a.do(http.MethodPost, "/reviews", userToken, map[string]interface{}{"book_id": bookID, "rating": 3})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "duplicate_review", body["code"])

	status, body = a.do(http.MethodGet, "/books/"+bookID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["reviews"], 1)
}
