package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"roadeye/config"
	"roadeye/database"
	"roadeye/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

// fakeStorage fails uploads whose key carries failSuffix and records the
// rest
type fakeStorage struct {
	failSuffix string

	mu       sync.Mutex
	attempts int
	uploaded []string
}

func (f *fakeStorage) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error) {
	f.mu.Lock()
	f.attempts++
	f.mu.Unlock()

	if f.failSuffix != "" && strings.HasSuffix(objectKey, f.failSuffix) {
		return "", errors.New("storage unavailable")
	}

	f.mu.Lock()
	f.uploaded = append(f.uploaded, objectKey)
	f.mu.Unlock()
	return "https://storage.local/" + objectKey, nil
}

func (f *fakeStorage) Remove(ctx context.Context, objectKey string) error { return nil }

func (f *fakeStorage) PublicURL(objectKey string) string {
	return "https://storage.local/" + objectKey
}

func submitBody(t *testing.T, filenames []string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("issue_type", models.IssuePothole)
	w.WriteField("severity", models.SeverityHigh)
	w.WriteField("latitude", "19.076")
	w.WriteField("longitude", "72.8777")
	w.WriteField("description", "deep pothole near the signal")

	for _, name := range filenames {
		fw, err := w.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("failed to build form file: %v", err)
		}
		fw.Write([]byte("jpeg-bytes"))
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func newSubmitRouter(store *fakeStorage) *gin.Engine {
	cfg := &config.Config{
		MaxImagesPerReport: 5,
		MaxImageSizeBytes:  10 * 1024 * 1024,
	}
	sh := NewHandlers(database.NewDatabaseFromConn(db), nil, cfg, nil, store, nil, nil)

	r := gin.New()
	r.POST("/reports", func(c *gin.Context) {
		c.Set("user_id", "u1")
		sh.SubmitReport(c)
	})
	return r
}

func TestSubmitReportUploadFailureFailsAll(t *testing.T) {
	it(func() {
		store := &fakeStorage{failSuffix: "-broken.jpg"}
		r := newSubmitRouter(store)

		// Upload goroutines finish in any order; only the two survivors
		// reach the tracking insert.
		mock.MatchExpectationsInOrder(false)
		mock.ExpectExec("INSERT INTO pending_uploads (.+)").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO pending_uploads (.+)").
			WillReturnResult(sqlmock.NewResult(2, 1))

		body, contentType := submitBody(t, []string{"a.jpg", "broken.jpg", "c.jpg"})
		req := httptest.NewRequest(http.MethodPost, "/reports", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502 when one upload fails, got %d: %s", w.Code, w.Body.String())
		}
		if strings.Contains(w.Body.String(), "storage.local") {
			t.Errorf("expected no uploaded URL to escape in the response: %s", w.Body.String())
		}

		if store.attempts != 3 {
			t.Errorf("expected all 3 uploads attempted, got %d", store.attempts)
		}
		if len(store.uploaded) != 2 {
			t.Errorf("expected 2 surviving objects, got %d", len(store.uploaded))
		}

		// The surviving objects stay tracked for the sweeper; no report row
		// is ever inserted.
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestSubmitReportRejectsBadInput(t *testing.T) {
	it(func() {
		store := &fakeStorage{}
		r := newSubmitRouter(store)

		testCases := []struct {
			name      string
			filenames []string
		}{
			{
				name:      "no images",
				filenames: nil,
			},
			{
				name:      "too many images",
				filenames: []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"},
			},
		}

		for _, tc := range testCases {
			body, contentType := submitBody(t, tc.filenames)
			req := httptest.NewRequest(http.MethodPost, "/reports", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
			}
		}

		if store.attempts != 0 {
			t.Errorf("expected no upload attempts on rejected input, got %d", store.attempts)
		}
	})
}
