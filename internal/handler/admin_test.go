package handlers

import (
	"CrowdGuard/internal/models"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// browser replays the cookies the server sets, like a real client would.
type browser struct {
	s       *testServer
	cookies map[string]*http.Cookie
}

func newBrowser(s *testServer) *browser {
	return &browser{s: s, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	b.s.engine.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck
	}
	return w
}

func (b *browser) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return b.send(http.MethodPost, loginPath, url.Values{"username": {email}, "password": {password}})
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// csrf reads the form token from a rendered dashboard page.
func (b *browser) csrf(t *testing.T, page string) string {
	t.Helper()
	w := b.send(http.MethodGet, page, nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := csrfInput.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2, "no csrf token on %s", page)
	return m[1]
}

func newStaffServer(t *testing.T) *testServer {
	t.Helper()
	s := newTestServer(t, nil)
	_, err := models.CreateUser(s.db, "admin@x.com", "Control Room", "admin-password", true)
	require.NoError(t, err)
	_, err = models.CreateUser(s.db, "pilgrim@x.com", "Pilgrim", "pilgrim-password", false)
	require.NoError(t, err)
	return s
}

func TestDashboardRequiresStaffSession(t *testing.T) {
	s := newStaffServer(t)
	b := newBrowser(s)

	w := b.send(http.MethodGet, "/dashboard/", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, loginPath, w.Header().Get("Location"))

	w = b.send(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Admin sign in")

	w = b.login(t, "pilgrim@x.com", "pilgrim-password")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials or not an admin user.")
	assert.Contains(t, w.Body.String(), `value="pilgrim@x.com"`)

	w = b.login(t, "admin@x.com", "wrong-password")
	assert.Contains(t, w.Body.String(), "Invalid credentials or not an admin user.")

	assert.Equal(t, http.StatusFound, b.send(http.MethodGet, "/dashboard/sos-requests/", nil).Code)
}

func TestDashboardPages(t *testing.T) {
	s := newStaffServer(t)
	require.NoError(t, models.CreateSosRequest(s.db, &models.SosRequest{
		UserEmail: "pilgrim@x.com", UserName: "Pilgrim", SosType: "medical",
		Latitude: 29.95, Longitude: 78.16, Status: models.SosStatusOpen, IsActive: true,
	}))
	require.NoError(t, models.CreateLostFound(s.db, &models.LostFound{
		ReportType: models.ReportLost, UserEmail: "pilgrim@x.com", PersonName: "Asha",
		Description: "Red saree", Location: "Ghat", Status: models.ReportStatusOpen, IsActive: true,
	}))
	_, err := models.SeedInitialData(s.db)
	require.NoError(t, err)

	b := newBrowser(s)
	w := b.login(t, "Admin@x.com", "admin-password")
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, dashboardPath, w.Header().Get("Location"))
	require.Contains(t, b.cookies, sessionName)

	w = b.send(http.MethodGet, loginPath, nil)
	assert.Equal(t, http.StatusFound, w.Code)

	w = b.send(http.MethodGet, "/dashboard/", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, "Open SOS<b>1</b>")
	assert.Contains(t, body, "Open lost &amp; found<b>1</b>")
	assert.Contains(t, body, "Medical Emergency")

	for _, page := range []string{"/dashboard/sos-requests/", "/dashboard/lost-found/?search=asha", "/dashboard/amenities/", "/dashboard/crowding-zones/"} {
		w = b.send(http.MethodGet, page, nil)
		assert.Equal(t, http.StatusOK, w.Code, page)
	}
	assert.Contains(t, b.send(http.MethodGet, "/dashboard/lost-found/", nil).Body.String(), "Asha")
	assert.Contains(t, b.send(http.MethodGet, "/dashboard/crowding-zones/", nil).Body.String(), "Bharat Mandir")

	for _, export := range []string{"/dashboard/sos-requests/export", "/dashboard/lost-found/export"} {
		w = b.send(http.MethodGet, export, nil)
		require.Equal(t, http.StatusOK, w.Code, export)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
		assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), export)
	}
}

func TestDashboardSosStatusUpdate(t *testing.T) {
	s := newStaffServer(t)
	sos := &models.SosRequest{
		UserEmail: "pilgrim@x.com", SosType: "danger", Latitude: 1, Longitude: 2,
		Status: models.SosStatusOpen, IsActive: true,
	}
	require.NoError(t, models.CreateSosRequest(s.db, sos))

	b := newBrowser(s)
	require.Equal(t, http.StatusFound, b.login(t, "admin@x.com", "admin-password").Code)

	token := b.csrf(t, "/dashboard/sos-requests/")
	path := fmt.Sprintf("/dashboard/sos-requests/%d/status", sos.ID)
	w := b.send(http.MethodPost, path, url.Values{"status": {"in_progress"}, "assigned_team": {"Team 7"}, "csrf_token": {token}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard/sos-requests/", w.Header().Get("Location"))

	got, err := models.GetSosRequest(s.db, sos.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SosStatusInProgress, got.Status)
	assert.Equal(t, "Team 7", got.AssignedTeam)

	w = b.send(http.MethodGet, "/dashboard/sos-requests/", nil)
	assert.Contains(t, w.Body.String(), fmt.Sprintf("SOS request #%d updated.", sos.ID))

	w = b.send(http.MethodPost, path, url.Values{"status": {"bogus"}, "csrf_token": {token}})
	require.Equal(t, http.StatusFound, w.Code)
	got, err = models.GetSosRequest(s.db, sos.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SosStatusInProgress, got.Status)
}

func TestDashboardSosStatusNeedsCSRFToken(t *testing.T) {
	s := newStaffServer(t)
	sos := &models.SosRequest{
		UserEmail: "pilgrim@x.com", SosType: "medical", Latitude: 1, Longitude: 2,
		Status: models.SosStatusOpen, IsActive: true,
	}
	require.NoError(t, models.CreateSosRequest(s.db, sos))
	path := fmt.Sprintf("/dashboard/sos-requests/%d/status", sos.ID)

	b := newBrowser(s)
	require.Equal(t, http.StatusFound, b.login(t, "admin@x.com", "admin-password").Code)
	token := b.csrf(t, "/dashboard/sos-requests/")
	assert.Equal(t, token, b.csrf(t, "/dashboard/"), "token is stable within a session")

	cases := []struct {
		name string
		form url.Values
	}{
		{"missing", url.Values{"status": {"resolved"}}},
		{"wrong", url.Values{"status": {"resolved"}, "csrf_token": {token + "x"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := b.send(http.MethodPost, path, tc.form)
			require.Equal(t, http.StatusForbidden, w.Code)
			assert.JSONEq(t, `{"detail":"CSRF verification failed. Request aborted."}`, w.Body.String())
		})
	}

	// a second admin session has its own token
	other := newBrowser(s)
	require.Equal(t, http.StatusFound, other.login(t, "admin@x.com", "admin-password").Code)
	otherToken := other.csrf(t, "/dashboard/sos-requests/")
	assert.NotEqual(t, token, otherToken)
	w := b.send(http.MethodPost, path, url.Values{"status": {"resolved"}, "csrf_token": {otherToken}})
	require.Equal(t, http.StatusForbidden, w.Code)

	got, err := models.GetSosRequest(s.db, sos.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SosStatusOpen, got.Status)

	w = b.send(http.MethodPost, path, url.Values{"status": {"resolved"}, "csrf_token": {token}})
	require.Equal(t, http.StatusFound, w.Code)
	got, err = models.GetSosRequest(s.db, sos.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SosStatusResolved, got.Status)
}

func TestAdminLogout(t *testing.T) {
	s := newStaffServer(t)
	b := newBrowser(s)
	require.Equal(t, http.StatusFound, b.login(t, "admin@x.com", "admin-password").Code)
	require.Equal(t, http.StatusOK, b.send(http.MethodGet, "/dashboard/", nil).Code)

	w := b.send(http.MethodGet, "/logout/", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, loginPath, w.Header().Get("Location"))

	w = b.send(http.MethodGet, loginPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You have been logged out successfully.")

	assert.Equal(t, http.StatusFound, b.send(http.MethodGet, "/dashboard/", nil).Code)
}
