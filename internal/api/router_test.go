package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/waleedsbi/atm-master/internal/api"
	"github.com/waleedsbi/atm-master/internal/models"
)

func newFullRouter(t *testing.T) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return api.NewRouter(ctx, &api.RouterDeps{
		Log:    testLogger(),
		DB:     &mockHealth{},
		Schema: &mockSchema{},
		Backup: &mockBackupService{},
		Tables: &mockTableService{listFn: func(context.Context) ([]models.TableInfo, error) {
			return []models.TableInfo{{Name: "Banks"}}, nil
		}},
		Audit: &mockAuditRepo{},
		Users: &mockUserLookup{users: map[string]*models.User{
			"viewer-key": {Username: "viewer", Role: "viewer", Permissions: []string{models.PermDatabaseRead}},
		}},
		CORSOrigins:    []string{"http://localhost:3000"},
		Version:        "test",
		Database:       "ATM",
		MaxUploadBytes: 1 << 20,
	})
}

func authRequest(r http.Handler, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRouter_AuthAndPermissions(t *testing.T) {
	r := newFullRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{"ready is public", http.MethodGet, "/api/v1/ready", "", http.StatusOK},
		{"tables need a key", http.MethodGet, "/api/v1/database/tables", "", http.StatusUnauthorized},
		{"unknown key", http.MethodGet, "/api/v1/database/tables", "nope", http.StatusUnauthorized},
		{"reader lists tables", http.MethodGet, "/api/v1/database/tables", "viewer-key", http.StatusOK},
		{"reader cannot back up", http.MethodGet, "/api/v1/database/backup", "viewer-key", http.StatusForbidden},
		{"reader cannot restore", http.MethodPost, "/api/v1/database/restore", "viewer-key", http.StatusForbidden},
		{"reader cannot read audit", http.MethodGet, "/api/v1/audit", "viewer-key", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nodes", "viewer-key", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := authRequest(r, tt.method, tt.path, tt.key)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}

			if w.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}

func TestMetricsRouter(t *testing.T) {
	w := authRequest(api.NewMetricsRouter(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
