package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"enquirydesk/internal/config"
	"enquirydesk/internal/domain"
	"enquirydesk/internal/services"
	"enquirydesk/internal/store"
	"enquirydesk/internal/util"
)

const (
	testPrefix    = "/api/v1"
	testSecret    = "0123456789abcdef0123456789abcdef"
	testPublicKey = "public-anon-key"
)

// enquiryOutageKV fails every call touching enquiry keys and serves the
// rest from memory, so admin logins keep working.
type enquiryOutageKV struct {
	*store.MemoryStore
}

var errOutage = errors.New("connection refused")

func (k enquiryOutageKV) Set(ctx context.Context, key string, v []byte) error {
	if strings.HasPrefix(key, domain.KeyPrefix) {
		return errOutage
	}
	return k.MemoryStore.Set(ctx, key, v)
}

func (k enquiryOutageKV) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, domain.KeyPrefix) {
		return nil, errOutage
	}
	return k.MemoryStore.Get(ctx, key)
}

func (k enquiryOutageKV) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	if prefix == domain.KeyPrefix {
		return nil, errOutage
	}
	return k.MemoryStore.GetByPrefix(ctx, prefix)
}

type harness struct {
	t       *testing.T
	handler http.Handler
	kv      store.KV
	token   string
}

type option func(*config.Config)

func withPublicKey(key string) option {
	return func(c *config.Config) { c.Auth.PublicAPIKey = key }
}

func withOrigins(origins ...string) option {
	return func(c *config.Config) { c.CORS.AllowedOrigins = origins }
}

func newHarness(t *testing.T, kv store.KV, opts ...option) *harness {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Name: "Enquiry Desk API", Version: "test", APIPrefix: testPrefix},
		Auth: config.AuthConfig{
			SecretKey:          testSecret,
			TokenExpiryMinutes: 60,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         600,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var mu sync.Mutex
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	log := zap.NewNop()
	enquiries := services.NewEnquiryService(kv, log, services.WithClock(now))
	auth := services.NewAuthService(kv, util.NewTokenIssuer(testSecret, time.Hour), log)
	health := services.NewHealthService(cfg.App.Name, cfg.App.Version)

	_, err := auth.CreateAdmin(context.Background(), services.CreateAdminInput{
		Username: "admin",
		Email:    "admin@agency.co.uk",
		Password: "admin-password",
	})
	require.NoError(t, err)

	h := &harness{
		t:       t,
		handler: New(cfg, enquiries, auth, health, log).Handler(),
		kv:      kv,
	}

	rec := h.do(http.MethodPost, testPrefix+"/auth/login", "", map[string]string{
		"username": "admin",
		"password": "admin-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login services.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	h.token = login.AccessToken
	return h
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *harness) list(query string) map[string]interface{} {
	h.t.Helper()
	rec := h.do(http.MethodGet, testPrefix+"/enquiries"+query, h.token, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody(h.t, rec)
}

func (h *harness) submit(path string, body map[string]string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, testPrefix+path, "", body)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(h.t, rec)["enquiryId"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())

	for _, path := range []string{"/health", testPrefix + "/health"} {
		rec := h.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	}
}

func TestGenericSubmissionAppearsInList(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())

	rec := h.do(http.MethodPost, testPrefix+"/enquiries", "", map[string]string{
		"type":        "Free Website Audit",
		"contactName": "Jane Smith",
		"email":       "jane@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Enquiry submitted successfully", body["message"])
	id := body["enquiryId"].(string)

	list := h.list("")
	enquiries := list["enquiries"].([]interface{})
	require.Len(t, enquiries, 1)
	e := enquiries[0].(map[string]interface{})
	assert.Equal(t, id, e["id"])
	assert.Equal(t, "new", e["status"])
	assert.Equal(t, "", e["phone"])
	assert.Equal(t, "", e["websiteUrl"])
	assert.NotEmpty(t, e["createdAt"])
	assert.Equal(t, float64(1), list["total"])
}

func TestSubmissionMissingFields(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())

	tests := []struct {
		path string
		body map[string]string
		want []interface{}
	}{
		{"/enquiries", map[string]string{"contactName": "Jane"}, []interface{}{"type", "email"}},
		{"/package-enquiries", map[string]string{
			"type": "Silver Template Site", "packageType": "template_one",
			"contactName": "John Smith", "email": "john@example.com",
		}, []interface{}{"agencyName"}},
		{"/custom-enquiries", map[string]string{
			"type": "Fully Customised Website", "contactName": "Ava Jones",
			"email": "ava@example.com", "agencyName": "Harbour Homes",
		}, []interface{}{"requirements"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := h.do(http.MethodPost, testPrefix+tt.path, "", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Equal(t, tt.want, body["fields"])
			for _, f := range tt.want {
				assert.Contains(t, body["error"], f.(string))
			}
		})
	}

	assert.Empty(t, h.list("")["enquiries"])
}

func TestInvalidJSON(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())

	rec := h.do(http.MethodPost, testPrefix+"/enquiries", "", `{"type":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeBody(t, rec)["code"])
}

func TestUpdateStatusThenGet(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	id := h.submit("/package-enquiries", map[string]string{
		"type": "Gold Template Site", "packageType": "template_two",
		"agencyName": "Smith Lettings", "contactName": "John Smith",
		"email": "john@example.com", "themeColor": "#112233", "font": "Poppins",
	})

	rec := h.do(http.MethodPatch, testPrefix+"/enquiries/"+id, h.token, map[string]string{"status": "won"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, testPrefix+"/enquiries/"+id, h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e := decodeBody(t, rec)["enquiry"].(map[string]interface{})
	assert.Equal(t, "won", e["status"])
	assert.Equal(t, "Poppins", e["font"])

	created, err := time.Parse(time.RFC3339, e["createdAt"].(string))
	require.NoError(t, err)
	updated, err := time.Parse(time.RFC3339, e["updatedAt"].(string))
	require.NoError(t, err)
	assert.True(t, updated.After(created))
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	id := h.submit("/enquiries", map[string]string{"type": "Contact", "contactName": "Jane", "email": "jane@example.com"})

	rec := h.do(http.MethodPatch, testPrefix+"/enquiries/"+id, h.token, map[string]string{"status": "closed"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []interface{}{"status"}, decodeBody(t, rec)["fields"])
}

func TestUnknownIDs(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	id := h.submit("/enquiries", map[string]string{"type": "Contact", "contactName": "Jane", "email": "jane@example.com"})
	unknown := "00000000-0000-4000-8000-000000000000"

	rec := h.do(http.MethodPatch, testPrefix+"/enquiries/"+unknown, h.token, map[string]string{"status": "won"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodPatch, testPrefix+"/enquiries/not-an-id", h.token, map[string]string{"status": "won"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for i := 0; i < 2; i++ {
		rec = h.do(http.MethodDelete, testPrefix+"/enquiries/"+unknown, h.token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])
	}

	rec = h.do(http.MethodGet, testPrefix+"/enquiries/"+id, h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e := decodeBody(t, rec)["enquiry"].(map[string]interface{})
	assert.Equal(t, "new", e["status"])
	assert.NotContains(t, e, "updatedAt")
}

func TestDelete(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	id := h.submit("/enquiries", map[string]string{"type": "Contact", "contactName": "Jane", "email": "jane@example.com"})

	rec := h.do(http.MethodDelete, testPrefix+"/enquiries/"+id, h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	rec = h.do(http.MethodGet, testPrefix+"/enquiries/"+id, h.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDegradesOnStoreFailure(t *testing.T) {
	h := newHarness(t, enquiryOutageKV{store.NewMemoryStore()})

	body := h.list("")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []interface{}{}, body["enquiries"])
	assert.Equal(t, services.ListWarning, body["warning"])

	// writes and single reads still fail loudly
	rec := h.do(http.MethodPost, testPrefix+"/enquiries", "", map[string]string{
		"type": "Contact", "contactName": "Jane", "email": "jane@example.com",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decodeBody(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", errBody["code"])
	assert.NotContains(t, errBody["error"], "connection refused")

	rec = h.do(http.MethodGet, testPrefix+"/enquiries/00000000-0000-4000-8000-000000000000", h.token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = h.do(http.MethodGet, testPrefix+"/enquiries/export", h.token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListSearchAndFilters(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	h.submit("/enquiries", map[string]string{"type": "Free Website Audit", "contactName": "Anna Smith", "email": "anna@example.com"})
	h.submit("/enquiries", map[string]string{"type": "Contact", "contactName": "Bob Jones", "email": "bob@smithfield.com"})
	h.submit("/custom-enquiries", map[string]string{
		"type": "Fully Customised Website", "contactName": "Carl Brown", "email": "carl@example.com",
		"agencyName": "Brown Estates", "requirements": "A bespoke portal integrated site with valuations.",
	})

	names := func(body map[string]interface{}) []string {
		var out []string
		for _, e := range body["enquiries"].([]interface{}) {
			out = append(out, e.(map[string]interface{})["contactName"].(string))
		}
		return out
	}

	for _, term := range []string{"smith", "SMITH", "sMiTh"} {
		assert.Equal(t, []string{"Bob Jones", "Anna Smith"}, names(h.list("?search="+term)))
	}

	assert.Equal(t, []string{"Carl Brown"}, names(h.list("?type=custom_quote")))
	assert.Equal(t, []string{"Anna Smith"}, names(h.list("?type=Free+Website+Audit&status=all")))
	assert.Empty(t, names(h.list("?status=won")))

	page := h.list("?skip=1&limit=1")
	assert.Equal(t, []string{"Bob Jones"}, names(page))
	assert.Equal(t, float64(3), page["total"])
	stats := page["stats"].(map[string]interface{})
	assert.Equal(t, float64(3), stats["new"])

	rec := h.do(http.MethodGet, testPrefix+"/enquiries?limit=-1&status=done", h.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []interface{}{"status", "limit"}, decodeBody(t, rec)["fields"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	id := "00000000-0000-4000-8000-000000000000"

	routes := []struct{ method, path string }{
		{http.MethodGet, "/enquiries"},
		{http.MethodGet, "/enquiries/export"},
		{http.MethodGet, "/enquiries/" + id},
		{http.MethodPatch, "/enquiries/" + id},
		{http.MethodDelete, "/enquiries/" + id},
		{http.MethodGet, "/auth/me"},
	}
	for _, rt := range routes {
		for _, token := range []string{"", "not-a-jwt"} {
			rec := h.do(rt.method, testPrefix+rt.path, token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s token=%q", rt.method, rt.path, token)
			assert.Equal(t, "UNAUTHORIZED", decodeBody(t, rec)["code"])
		}
	}
}

func TestPublicKeyGuardsIntake(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(), withPublicKey(testPublicKey))
	body := map[string]string{"type": "Contact", "contactName": "Jane", "email": "jane@example.com"}

	rec := h.do(http.MethodPost, testPrefix+"/enquiries", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, testPrefix+"/enquiries", "wrong-key", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, testPrefix+"/enquiries", testPublicKey, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, testPrefix+"/enquiries", h.token, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// the public key is not an admin credential
	rec = h.do(http.MethodGet, testPrefix+"/enquiries", testPublicKey, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndMe(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())

	rec := h.do(http.MethodGet, testPrefix+"/auth/me", h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "admin", me["username"])
	assert.NotContains(t, me, "hashedPassword")

	rec = h.do(http.MethodPost, testPrefix+"/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, testPrefix+"/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	h.submit("/enquiries", map[string]string{"type": "Contact", "contactName": "Jane", "email": "jane@example.com"})

	rec := h.do(http.MethodGet, testPrefix+"/enquiries/export?status=new", h.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	// XLSX is a zip archive
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())

	rec := h.do(http.MethodGet, testPrefix+"/enquiries", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	id, _ := decodeBody(t, rec)["id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore())
	h.submit("/enquiries", map[string]string{"type": "Contact", "contactName": "Jane", "email": "jane@example.com"})

	rec := h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "enquiries_created_total")
}

func TestCORS(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(), withOrigins("https://agency.example"))

	req := httptest.NewRequest(http.MethodOptions, testPrefix+"/enquiries", nil)
	req.Header.Set("Origin", "https://agency.example")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://agency.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, testPrefix+"/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
