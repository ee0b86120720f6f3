package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/middleware"
	"github.com/waleedsbi/atm-master/internal/models"
)

const testRequestID = "req-1"

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// newTestRouter creates a gin engine that authenticates every request as an
// admin user.
func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.RequestIDKey, testRequestID)
		c.Set(middleware.UserKey, &models.User{ID: 1, Username: "ops", Role: models.RoleAdmin})
		c.Next()
	})

	return r
}

// doRequest performs an HTTP request against the test router and returns the recorder.
func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

// doRestore posts a multipart restore form. An empty file skips the file part.
func doRestore(t *testing.T, r http.Handler, file string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}

	if file != "" {
		fw, err := mw.CreateFormFile("file", "backup.json")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(file)); err != nil {
			t.Fatal(err)
		}
	}

	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/database/restore", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}

	return body
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["code"] != code {
		t.Errorf("code = %v, want %q", body["code"], code)
	}

	if body["error"] == "" || body["error"] == nil {
		t.Error("error message missing")
	}
}
