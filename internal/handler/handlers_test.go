package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/config"
	"CrowdGuard/pkg/i18n"
	"CrowdGuard/pkg/middleware"
	"CrowdGuard/pkg/util"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	h      *Handlers
}

func newTestServer(t *testing.T, tweak func(*config.Config), opts ...Option) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := util.InitDatabase(logger.Default.LogMode(logger.Silent), "sqlite", "")
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.Default()
	cfg.Storage.LocalPath = t.TempDir()
	if tweak != nil {
		tweak(cfg)
	}
	h := NewHandlers(db, cfg, opts...)
	engine := gin.New()
	h.Register(engine)
	return &testServer{engine: engine, db: db, h: h}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type listBody[T any] struct {
	Count    int     `json:"count"`
	Results  []T     `json:"results"`
	Category *string `json:"category"`
}

func TestZoneLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/zones/", gin.H{
		"name": "Ghat", "status": "safe", "color": "green", "capacity": 10, "longitude": 78.1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string][]string](t, w), "latitude")

	w = s.do(t, http.MethodPost, "/api/zones/", gin.H{
		"name": "Ring", "status": "high", "color": "red", "capacity": 50,
		"zone_type": "polygon", "polygon": [][]float64{{1, 2}, {3, 4}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string][]string](t, w), "polygon")

	w = s.do(t, http.MethodPost, "/api/zones/", gin.H{
		"name": "Ghat", "status": "critical", "color": "red", "capacity": 95, "latitude": 29.95, "longitude": 78.16,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.ZoneView](t, w)
	assert.Equal(t, "circle", created.ZoneType)
	assert.Equal(t, "red", created.ColorCode)
	assert.Equal(t, "Critical", created.StatusDisplay)
	require.NotNil(t, created.Lat)
	assert.Equal(t, 29.95, *created.Lat)

	w = s.do(t, http.MethodPost, "/api/zones/", gin.H{
		"name": "Arena", "status": "safe", "color": "green", "capacity": 5,
		"zone_type": "polygon", "polygon": [][]float64{{1, 2}, {3, 4}, {5, 6}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	list := decode[listBody[models.ZoneView]](t, s.do(t, http.MethodGet, "/api/zones/", nil))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "Arena", list.Results[0].Name)

	list = decode[listBody[models.ZoneView]](t, s.do(t, http.MethodGet, "/api/zones/?status=critical", nil))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, created.ID, list.Results[0].ID)

	path := fmt.Sprintf("/api/zones/%d/", created.ID)
	w = s.do(t, http.MethodPatch, path, gin.H{"status": "moderate", "color": "yellow"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "moderate", decode[models.ZoneView](t, w).Status)

	w = s.do(t, http.MethodPatch, path, gin.H{"zone_type": "polygon"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, path, gin.H{"name": "Ghat East", "status": "safe", "color": "green", "capacity": 1, "latitude": 1, "longitude": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ghat East", decode[models.ZoneView](t, w).Name)

	list = decode[listBody[models.ZoneView]](t, s.do(t, http.MethodGet, "/api/zones/?status=moderate", nil))
	assert.Equal(t, 0, list.Count)
}

func TestSoftDeleteHidesRecords(t *testing.T) {
	cases := []struct {
		name    string
		base    string
		payload gin.H
		model   any
	}{
		{"zone", "/api/zones/", gin.H{
			"name": "Ghat", "status": "safe", "color": "green", "capacity": 10, "latitude": 29.9, "longitude": 78.1,
		}, &models.Zone{}},
		{"amenity", "/api/amenities/", gin.H{
			"name": "Water Point", "category": "food", "latitude": 29.9, "longitude": 78.1,
		}, &models.Amenity{}},
		{"sos request", "/api/sos-requests/", gin.H{
			"user_email": "a@x.com", "sos_type": "medical", "latitude": 29.9, "longitude": 78.1,
		}, &models.SosRequest{}},
		{"family member", "/api/family-members/", gin.H{
			"user_email": "a@x.com", "name": "Mom", "phone": "9876543210", "relationship": "parent",
		}, &models.FamilyMember{}},
		{"lost-found report", "/api/lost-found/", gin.H{
			"report_type": "lost", "user_email": "a@x.com", "person_name": "Asha", "description": "Red saree", "location": "Ghat",
		}, &models.LostFound{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			w := s.do(t, http.MethodPost, tc.base, tc.payload)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			id := uint(decode[map[string]any](t, w)["id"].(float64))
			path := fmt.Sprintf("%s%d/", tc.base, id)

			// warms the list cache where there is one
			require.Equal(t, 1, decode[listBody[map[string]any]](t, s.do(t, http.MethodGet, tc.base, nil)).Count)

			require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, nil).Code)

			w = s.do(t, http.MethodGet, path, nil)
			require.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "Not found.", decode[map[string]string](t, w)["detail"])
			assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, nil).Code)
			assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, path, gin.H{}).Code)
			assert.Equal(t, 0, decode[listBody[map[string]any]](t, s.do(t, http.MethodGet, tc.base, nil)).Count)

			var row struct{ IsActive bool }
			require.NoError(t, s.db.Model(tc.model).Where("id = ?", id).Take(&row).Error)
			assert.False(t, row.IsActive)

			assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, tc.base+"abc/", nil).Code)
		})
	}
}

func TestAmenityListAndCategories(t *testing.T) {
	tr, err := i18n.NewI18nSupport("en")
	require.NoError(t, err)
	s := newTestServer(t, nil, WithI18n(tr))

	for _, a := range []gin.H{
		{"name": "City Hospital", "category": "medical", "latitude": 29.95, "longitude": 78.16, "phone": "+91-1234567890"},
		{"name": "Langar Hall", "category": "food", "latitude": 29.94, "longitude": 78.14},
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/amenities/", a).Code)
	}

	w := s.do(t, http.MethodGet, "/api/amenities/?category=medical", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "phone")
	list := decode[listBody[models.AmenityListView]](t, w)
	require.Equal(t, 1, list.Count)
	require.NotNil(t, list.Category)
	assert.Equal(t, "medical", *list.Category)
	assert.Equal(t, "Medical", list.Results[0].CategoryDisplay)

	list = decode[listBody[models.AmenityListView]](t, s.do(t, http.MethodGet, "/api/amenities/", nil))
	assert.Equal(t, 2, list.Count)
	assert.Nil(t, list.Category)
	assert.Equal(t, "food", list.Results[0].Category)

	detail := decode[models.AmenityView](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/amenities/%d/", list.Results[1].ID), nil))
	require.NotNil(t, detail.Phone)
	assert.Equal(t, "+91-1234567890", *detail.Phone)

	cats := decode[[]models.Choice](t, s.do(t, http.MethodGet, "/api/amenities/categories/", nil))
	require.Len(t, cats, len(models.AmenityCategoryChoices))
	assert.Equal(t, models.Choice{Value: "food", Label: "Food & Water"}, cats[1])

	cats = decode[[]models.Choice](t, s.do(t, http.MethodGet, "/api/amenities/categories/?lang=hi", nil))
	assert.Equal(t, "भोजन और पानी", cats[1].Label)
	cats = decode[[]models.Choice](t, s.do(t, http.MethodGet, "/api/amenities/categories/", nil, "Accept-Language", "hi-IN,hi;q=0.9"))
	assert.Equal(t, "भोजन और पानी", cats[1].Label)
}

func TestSosCreateIsIdempotent(t *testing.T) {
	s := newTestServer(t, nil)
	body := gin.H{"user_email": "Pilgrim@X.com", "user_name": "Ravi", "sos_type": "medical", "latitude": 29.95, "longitude": 78.16}

	w := s.do(t, http.MethodPost, "/api/sos-requests/", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.SosView](t, w)
	assert.Equal(t, "open", created.Status)
	assert.Equal(t, "Open", created.StatusDisplay)
	assert.Equal(t, "Medical Emergency", created.SosTypeDisplay)
	assert.Equal(t, "pilgrim@x.com", created.UserEmail)

	w = s.do(t, http.MethodPost, "/api/sos-requests/", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get(middleware.ReplayedHeader))
	assert.Equal(t, created.ID, decode[models.SosView](t, w).ID)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/sos-requests/", body).Code)

	// a rejected attempt does not burn its key
	w = s.do(t, http.MethodPost, "/api/sos-requests/", gin.H{"user_email": "b@x.com", "sos_type": "medical", "longitude": 78.1}, "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/sos-requests/", gin.H{"user_email": "b@x.com", "sos_type": "medical", "latitude": 29.9, "longitude": 78.1}, "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get(middleware.ReplayedHeader))

	w = s.do(t, http.MethodPost, "/api/sos-requests/", gin.H{"user_email": "a@x.com", "sos_type": "medical", "longitude": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"This field is required."}, decode[map[string][]string](t, w)["latitude"])

	w = s.do(t, http.MethodPost, "/api/sos-requests/", gin.H{"user_email": "a@x.com", "sos_type": "fire", "latitude": 1, "longitude": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{`"fire" is not a valid choice.`}, decode[map[string][]string](t, w)["sos_type"])

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/api/sos-requests/%d/", created.ID), gin.H{"status": "in_progress", "assigned_team": "Medic 4"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "In Progress", decode[models.SosView](t, w).StatusDisplay)

	list := decode[listBody[models.SosView]](t, s.do(t, http.MethodGet, "/api/sos-requests/?status=open", nil))
	assert.Equal(t, 2, list.Count)
	list = decode[listBody[models.SosView]](t, s.do(t, http.MethodGet, "/api/sos-requests/?user_email=PILGRIM@x.com", nil))
	assert.Equal(t, 2, list.Count)
}

func TestFamilyPatchWithCoordinatesStampsLocation(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/family-members/", gin.H{
		"user_email": "a@x.com", "name": "Mom", "phone": "9876543210", "relationship": "parent",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	m := decode[models.FamilyMemberView](t, w)
	assert.Nil(t, m.LastLocationUpdate)
	assert.Equal(t, "Parent", m.RelationshipDisplay)
	path := fmt.Sprintf("/api/family-members/%d/", m.ID)

	m = decode[models.FamilyMemberView](t, s.do(t, http.MethodPatch, path, gin.H{"name": "Mother"}))
	assert.Equal(t, "Mother", m.Name)
	assert.Nil(t, m.LastLocationUpdate)

	w = s.do(t, http.MethodPatch, path, gin.H{"latitude": 29.96})
	require.Equal(t, http.StatusOK, w.Code)
	m = decode[models.FamilyMemberView](t, w)
	require.NotNil(t, m.LastLocationUpdate)
	require.NotNil(t, m.Latitude)
	assert.Nil(t, m.Longitude)

	var stored models.FamilyMember
	require.NoError(t, s.db.First(&stored, m.ID).Error)
	assert.NotNil(t, stored.LastLocationUpdate)

	w = s.do(t, http.MethodPost, "/api/family-members/", gin.H{
		"user_email": "A@x.com", "name": "Mom again", "phone": "9876543210", "relationship": "parent",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "non_field_errors")

	list := decode[listBody[models.FamilyMemberView]](t, s.do(t, http.MethodGet, "/api/family-members/?user_email=a@x.com", nil))
	assert.Equal(t, 1, list.Count)
}

func TestUpdateLocationTouchesOnlyOthersRows(t *testing.T) {
	s := newTestServer(t, nil)
	seed := []models.FamilyMember{
		{UserEmail: "a@x.com", Name: "Bob", Phone: "bob_1111", Relationship: "friend", IsActive: true},
		{UserEmail: "c@x.com", Name: "Bob", Phone: "bob_2222", Relationship: "friend", IsActive: true},
		{UserEmail: "bob@x.com", Name: "Own", Phone: "bob_3333", Relationship: "other", IsActive: true},
		{UserEmail: "a@x.com", Name: "Bobby", Phone: "bobby_1", Relationship: "friend", IsActive: true},
	}
	require.NoError(t, s.db.Create(&seed).Error)

	w := s.do(t, http.MethodPost, "/api/family-members/update-location/", gin.H{"email": "bob@x.com", "latitude": 12.5, "longitude": 77.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Detail       string `json:"detail"`
		UpdatedCount int64  `json:"updated_count"`
	}](t, w)
	assert.Equal(t, int64(2), body.UpdatedCount)
	assert.NotEmpty(t, body.Detail)

	var own models.FamilyMember
	require.NoError(t, s.db.First(&own, seed[2].ID).Error)
	assert.Nil(t, own.Latitude)
	var bobby models.FamilyMember
	require.NoError(t, s.db.First(&bobby, seed[3].ID).Error)
	assert.Nil(t, bobby.Latitude)

	w = s.do(t, http.MethodPost, "/api/family-members/update-location/", gin.H{"email": "bob@x.com", "latitude": 12.5})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "longitude")
}

func TestUpdateLocationReportsDatabaseFailure(t *testing.T) {
	s := newTestServer(t, nil)
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := s.do(t, http.MethodPost, "/api/family-members/update-location/", gin.H{"email": "bob@x.com", "latitude": 1, "longitude": 2})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, decode[map[string]string](t, w)["detail"])
}

func TestLostFoundSearch(t *testing.T) {
	s := newTestServer(t, nil)
	for _, r := range []gin.H{
		{"report_type": "lost", "user_email": "a@x.com", "person_name": "Asha", "description": "Red saree", "location": "Har Ki Pauri"},
		{"report_type": "found", "user_email": "b@x.com", "person_name": "Unknown boy", "description": "About 7 years, blue shirt", "location": "Main Bazaar", "age": 7},
	} {
		w := s.do(t, http.MethodPost, "/api/lost-found/", r)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	cases := map[string]int{
		"":                                 2,
		"?search=asha":                     1,
		"?search=BLUE":                     1,
		"?search=pauri":                    1,
		"?search=50%25":                    0,
		"?search=_":                        0,
		"?report_type=found&search=bazaar": 1,
		"?report_type=lost&search=bazaar":  0,
		"?status=open":                     2,
	}
	for query, want := range cases {
		list := decode[listBody[models.LostFoundView]](t, s.do(t, http.MethodGet, "/api/lost-found/"+query, nil))
		assert.Equal(t, want, list.Count, query)
	}

	w := s.do(t, http.MethodPost, "/api/lost-found/", gin.H{"report_type": "lost", "user_email": "a@x.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[map[string][]string](t, w)
	for _, f := range []string{"person_name", "description", "location"} {
		assert.Contains(t, fields, f)
	}
}

func multipartPhoto(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestLostFoundPhotoUpload(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/lost-found/", gin.H{
		"report_type": "lost", "user_email": "a@x.com", "person_name": "Asha", "description": "Red saree", "location": "Ghat",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.LostFoundView](t, w).ID
	path := fmt.Sprintf("/api/lost-found/%d/photo/", id)

	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	body, ct := multipartPhoto(t, "asha.PNG", png)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[models.LostFoundView](t, w)
	require.NotNil(t, report.PhotoURL)
	prefix := fmt.Sprintf("/media/lost-found/%d/", id)
	assert.True(t, strings.HasPrefix(*report.PhotoURL, prefix), *report.PhotoURL)
	assert.True(t, strings.HasSuffix(*report.PhotoURL, ".png"))

	w = s.do(t, http.MethodGet, *report.PhotoURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, png, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	body, ct = multipartPhoto(t, "notes.png", []byte("just some text, not an image"))
	req = httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "photo")

	body, ct = multipartPhoto(t, "asha.exe", png)
	req = httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/media/lost-found/missing.png", nil).Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/auth/register/", gin.H{"email": "Alice@X.com", "full_name": "Alice", "password": "s3cret-pass"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[map[string]any](t, w)["access_token"].(string)
	assert.NotEmpty(t, token)

	w = s.do(t, http.MethodPost, "/api/auth/register/", gin.H{"email": "alice@x.com", "full_name": "Alice", "password": "s3cret-pass"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "email")

	w = s.do(t, http.MethodPost, "/api/auth/register/", gin.H{"email": "short@x.com", "full_name": "S", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "password")

	w = s.do(t, http.MethodPost, "/api/auth/login/", gin.H{"email": "alice@x.com", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode[map[string]string](t, w)["detail"])

	w = s.do(t, http.MethodPost, "/api/auth/login/", gin.H{"email": "ALICE@x.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/profile/", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/profile/", nil, "Authorization", "Bearer garbage").Code)

	w = s.do(t, http.MethodGet, "/api/auth/profile/", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[models.UserProfile](t, w)
	assert.Equal(t, "alice@x.com", profile.Email)
	assert.Equal(t, "Alice", profile.FullName)
}

func TestUnsetJWTSecretRejectsForgedTokens(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.JWTSecret = ""
		c.RateLimit = "100-M"
	})
	require.NotEmpty(t, s.h.cfg.JWTSecret)
	_, err := models.CreateUser(s.db, "ops@x.com", "Ops", "ops-password", true)
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.Claims{Email: "ops@x.com", IsStaff: true}).SignedString([]byte(""))
	require.NoError(t, err)
	auth := []string{"Authorization", "Bearer " + forged}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/profile/", nil, auth...).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPut, "/api/system/rate-limiter", gin.H{"rate": "1000-M"}, auth...).Code)

	w := s.do(t, http.MethodPost, "/api/auth/login/", gin.H{"email": "ops@x.com", "password": "ops-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[map[string]any](t, w)["access_token"].(string)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/auth/profile/", nil, "Authorization", "Bearer "+token).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/system/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]any](t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	s.do(t, http.MethodGet, "/api/zones/", nil)
	s.do(t, http.MethodGet, "/api/zones/", nil)
	w = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/zones/",status="200"} 2`)
	assert.Contains(t, w.Body.String(), `cache_hits_total{key="zones:active"} 1`)
}

func TestRateLimitAndRuntimeUpdate(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.RateLimit = "2-M" })
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/zones/", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/zones/", nil).Code)
	w := s.do(t, http.MethodGet, "/api/zones/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/system/health", nil).Code)

	_, err := models.CreateUser(s.db, "ops@x.com", "Ops", "ops-password", true)
	require.NoError(t, err)
	user, err := models.GetUserByEmail(s.db, "ops@x.com")
	require.NoError(t, err)
	token, err := models.IssueToken(user, s.h.cfg.JWTSecret, time.Hour)
	require.NoError(t, err)

	w = s.do(t, http.MethodPut, "/api/system/rate-limiter", gin.H{"rate": "often"}, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/system/rate-limiter", gin.H{
		"rate":         "100-M",
		"route_rates":  map[string]string{"/api/zones/": "1-M"},
		"exempt_users": []string{"*@x.com"},
	}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/zones/", nil, "Authorization", "Bearer "+token).Code)
	}
	// the raised global rate readmits the throttled caller
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/amenities/", nil).Code)
	// while the zone list now has its own budget of one
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/zones/", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodGet, "/api/zones/", nil).Code)
}
