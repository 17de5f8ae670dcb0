package database

import (
	"context"
	"testing"
	"time"

	"roadeye/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var statsTestColumns = []string{
	"user_id", "points", "streak", "reports_count", "badge", "city", "ward", "created_at", "updated_at",
}

func statsRow(userID string, points, streak, reportsCount int, badge string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(statsTestColumns).
		AddRow(userID, points, streak, reportsCount, badge, "", "", now, now)
}

func TestGetOrCreateStats(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT IGNORE INTO users_stats (.+)").
			WithArgs("u1", models.WelcomeBonusPoints, models.InitialStreak, models.BadgeNovice).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT (.+) FROM users_stats WHERE user_id = (.+)").
			WithArgs("u1").
			WillReturnRows(statsRow("u1", 100, 1, 0, models.BadgeNovice))

		stats, err := d.GetOrCreateStats(context.Background(), "u1")
		if err != nil {
			t.Errorf("GetOrCreateStats: unexpected error: %v", err)
		}
		if stats.Points != models.WelcomeBonusPoints {
			t.Errorf("expected welcome bonus of %d points, got %d", models.WelcomeBonusPoints, stats.Points)
		}
		if stats.Streak != models.InitialStreak {
			t.Errorf("expected initial streak %d, got %d", models.InitialStreak, stats.Streak)
		}
		if stats.Badge != models.BadgeNovice {
			t.Errorf("expected badge %s, got %s", models.BadgeNovice, stats.Badge)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestGetOrCreateStatsExisting(t *testing.T) {
	it(func() {
		// Losing INSERT IGNORE affects no rows; the existing record wins
		mock.ExpectExec("INSERT IGNORE INTO users_stats (.+)").
			WithArgs("u1", models.WelcomeBonusPoints, models.InitialStreak, models.BadgeNovice).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM users_stats WHERE user_id = (.+)").
			WithArgs("u1").
			WillReturnRows(statsRow("u1", 320, 1, 22, models.BadgeScout))

		stats, err := d.GetOrCreateStats(context.Background(), "u1")
		if err != nil {
			t.Errorf("GetOrCreateStats: unexpected error: %v", err)
		}
		if stats.Points != 320 || stats.ReportsCount != 22 {
			t.Errorf("expected existing record to survive, got points=%d reports=%d", stats.Points, stats.ReportsCount)
		}
	})
}

func TestAwardReportPoints(t *testing.T) {
	it(func() {
		testCases := []struct {
			name         string
			pointsAfter  int
			badgeBefore  string
			expectBadge  string
			badgeChanged bool
		}{
			{
				name:        "first report keeps novice",
				pointsAfter: 110,
				badgeBefore: models.BadgeNovice,
				expectBadge: models.BadgeNovice,
			},
			{
				name:         "crossing 250 promotes to scout",
				pointsAfter:  250,
				badgeBefore:  models.BadgeNovice,
				expectBadge:  models.BadgeScout,
				badgeChanged: true,
			},
			{
				name:         "crossing 1000 promotes to champion",
				pointsAfter:  1000,
				badgeBefore:  models.BadgeGuardian,
				expectBadge:  models.BadgeChampion,
				badgeChanged: true,
			},
		}

		for _, tc := range testCases {
			setUp()

			mock.ExpectExec("INSERT IGNORE INTO users_stats (.+)").
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery("SELECT (.+) FROM users_stats WHERE user_id = (.+)").
				WithArgs("u1").
				WillReturnRows(statsRow("u1", tc.pointsAfter-models.ReportAwardPoints, 1, 4, tc.badgeBefore))

			mock.ExpectExec(`UPDATE users_stats SET points = points \+ \?, reports_count = reports_count \+ 1`).
				WithArgs(models.ReportAwardPoints, "u1").
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectQuery("SELECT (.+) FROM users_stats WHERE user_id = (.+)").
				WithArgs("u1").
				WillReturnRows(statsRow("u1", tc.pointsAfter, 1, 5, tc.badgeBefore))

			if tc.badgeChanged {
				mock.ExpectExec("UPDATE users_stats SET badge = (.+)").
					WithArgs(tc.expectBadge, "u1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			}

			stats, err := d.AwardReportPoints(context.Background(), "u1")
			if err != nil {
				t.Errorf("%s: unexpected error: %v", tc.name, err)
				continue
			}
			if stats.Points != tc.pointsAfter {
				t.Errorf("%s: expected %d points, got %d", tc.name, tc.pointsAfter, stats.Points)
			}
			if stats.Badge != tc.expectBadge {
				t.Errorf("%s: expected badge %s, got %s", tc.name, tc.expectBadge, stats.Badge)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("%s: unmet expectations: %v", tc.name, err)
			}
		}
	})
}

func TestTopScores(t *testing.T) {
	it(func() {
		rows := sqlmock.NewRows(statsTestColumns).
			AddRow("u2", 540, 1, 44, models.BadgeGuardian, "Mumbai", "K-East", time.Now(), time.Now()).
			AddRow("u1", 130, 1, 3, models.BadgeNovice, "", "", time.Now(), time.Now())

		mock.ExpectQuery("SELECT (.+) FROM users_stats ORDER BY points DESC LIMIT (.+)").
			WithArgs(10).
			WillReturnRows(rows)

		leaders, err := d.TopScores(context.Background(), 10)
		if err != nil {
			t.Errorf("TopScores: unexpected error: %v", err)
		}
		if len(leaders) != 2 {
			t.Fatalf("expected 2 leaders, got %d", len(leaders))
		}
		if leaders[0].UserID != "u2" || leaders[0].Points != 540 {
			t.Errorf("expected u2 on top with 540 points, got %s with %d", leaders[0].UserID, leaders[0].Points)
		}
	})
}
