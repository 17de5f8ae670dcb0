package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roadeye/database"
	"roadeye/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jknair0/beforeeach"
)

var (
	db     *sql.DB
	mock   sqlmock.Sqlmock
	h      *Handlers
	router *gin.Engine
)

func setUp() {
	gin.SetMode(gin.TestMode)
	db, mock, _ = sqlmock.New()
	h = NewHandlers(database.NewDatabaseFromConn(db), nil, nil, nil, nil, nil, nil)

	router = gin.New()
	router.POST("/admin/reports/:id/status", h.UpdateStatus)
	router.POST("/admin/notifications", h.SendNotification)
	router.GET("/health", h.HealthCheck)
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

var reportTestColumns = []string{
	"id", "user_id", "issue_type", "severity", "description",
	"latitude", "longitude", "address", "images", "status",
	"admin_notes", "eta", "resolved_at",
	"verification_score", "ai_validated", "ai_reason", "created_at", "updated_at",
}

func lockedReportRow(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(reportTestColumns).
		AddRow("r1", "u1", models.IssuePothole, models.SeverityHigh, "",
			19.076, 72.8777, "", `["https://img/1.jpg"]`, status,
			"", nil, nil,
			0.85, false, "", now, now)
}

func postStatus(body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/admin/reports/r1/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpdateStatusApprove(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+) FOR UPDATE").
			WithArgs("r1").
			WillReturnRows(lockedReportRow("Pending"))
		mock.ExpectExec("UPDATE reports SET status = (.+)").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications (.+)").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		w := postStatus(models.UpdateStatusRequest{Status: "Approved", AdminNotes: "verified on site"})

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var report models.Report
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if report.Status != models.StatusApproved {
			t.Errorf("expected Approved, got %s", report.Status)
		}
		if report.AdminNotes != "verified on site" {
			t.Errorf("expected notes to round-trip, got %q", report.AdminNotes)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestUpdateStatusConflict(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+) FOR UPDATE").
			WithArgs("r1").
			WillReturnRows(lockedReportRow("Rejected"))
		mock.ExpectRollback()

		w := postStatus(models.UpdateStatusRequest{Status: "In Progress"})

		if w.Code != http.StatusConflict {
			t.Errorf("expected 409 for a transition out of a terminal state, got %d", w.Code)
		}
	})
}

func TestUpdateStatusBadRequests(t *testing.T) {
	it(func() {
		testCases := []struct {
			name string
			body interface{}
		}{
			{
				name: "unknown status",
				body: models.UpdateStatusRequest{Status: "Done"},
			},
			{
				name: "pending target",
				body: models.UpdateStatusRequest{Status: "Pending"},
			},
			{
				name: "malformed eta",
				body: models.UpdateStatusRequest{Status: "In Progress", ETA: "next tuesday"},
			},
			{
				name: "missing status",
				body: gin.H{"admin_notes": "no status"},
			},
		}

		for _, tc := range testCases {
			w := postStatus(tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
			}
		}
	})
}

func TestUpdateStatusNotFound(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+) FOR UPDATE").
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows(reportTestColumns))
		mock.ExpectRollback()

		w := postStatus(models.UpdateStatusRequest{Status: "Approved"})

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 for an unknown report, got %d", w.Code)
		}
	})
}

func TestSendNotification(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT INTO notifications (.+)").
			WithArgs("u1", "Road closure", "Main street repairs start Monday.", models.NotificationTypeAnnouncement).
			WillReturnResult(sqlmock.NewResult(7, 1))

		payload, _ := json.Marshal(models.SendNotificationRequest{
			UserID:  "u1",
			Title:   "Road closure",
			Message: "Main street repairs start Monday.",
		})
		req := httptest.NewRequest(http.MethodPost, "/admin/notifications", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var n models.Notification
		if err := json.Unmarshal(w.Body.Bytes(), &n); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if n.ID != 7 {
			t.Errorf("expected inserted id 7, got %d", n.ID)
		}
		if n.Type != models.NotificationTypeAnnouncement {
			t.Errorf("expected type %s, got %s", models.NotificationTypeAnnouncement, n.Type)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestSendNotificationMissingFields(t *testing.T) {
	it(func() {
		payload, _ := json.Marshal(gin.H{"title": "no recipient"})
		req := httptest.NewRequest(http.MethodPost, "/admin/notifications", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for a partial payload, got %d", w.Code)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	it(func() {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		var health models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "healthy" || health.Service != "roadeye" {
			t.Errorf("unexpected health payload: %+v", health)
		}
		if health.ConnectedClients != 0 {
			t.Errorf("expected 0 connected clients without a hub, got %d", health.ConnectedClients)
		}
	})
}
