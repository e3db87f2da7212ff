package database

import (
	"database/sql"
	stdlog "log"
	"time"

	"github.com/username/pricefolio/src/logger"
	"github.com/username/pricefolio/src/models"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the diagnostics database and ensures its tables exist. The
// store is a sink for the full DataWarning stream plus a query audit trail;
// pricing itself never reads from it.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS data_warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		manufacturer TEXT,
		series TEXT,
		severity TEXT NOT NULL,
		code TEXT NOT NULL,
		message TEXT NOT NULL,
		locator TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS price_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		manufacturer TEXT NOT NULL,
		series TEXT NOT NULL,
		article_nr TEXT NOT NULL,
		config_hash TEXT NOT NULL,
		total_price TEXT NOT NULL,
		currency TEXT NOT NULL,
		on_request BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// InsertWarnings stores a batch of warnings attributed to one manufacturer
// series. Sink failures are logged, never propagated: diagnostics must not
// disturb the pricing flow.
func InsertWarnings(manufacturer, series string, warnings []models.DataWarning) {
	if DB == nil || len(warnings) == 0 {
		return
	}
	tx, err := DB.Begin()
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to begin warning sink transaction", "error", err)
		}
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO data_warnings (manufacturer, series, severity, code, message, locator) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to prepare warning insert", "error", err)
		}
		return
	}
	defer stmt.Close()

	for _, w := range warnings {
		if _, err := stmt.Exec(manufacturer, series, string(w.Severity), string(w.Code), w.Message, w.Locator); err != nil {
			if logger.L != nil {
				logger.L.Error("failed to insert warning", "code", w.Code, "error", err)
			}
			return
		}
	}
	if err := tx.Commit(); err != nil && logger.L != nil {
		logger.L.Error("failed to commit warning sink transaction", "error", err)
	}
}

// InsertQueryAudit records one completed price query.
func InsertQueryAudit(manufacturer, series, articleNr, configHash, totalPrice, currency string, onRequest bool) {
	if DB == nil {
		return
	}
	_, err := DB.Exec(`INSERT INTO price_queries (manufacturer, series, article_nr, config_hash, total_price, currency, on_request) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		manufacturer, series, articleNr, configHash, totalPrice, currency, onRequest)
	if err != nil && logger.L != nil {
		logger.L.Error("failed to insert query audit", "article", articleNr, "error", err)
	}
}

// StoredWarning is one persisted diagnostics row.
type StoredWarning struct {
	ID           int64     `json:"id"`
	Manufacturer string    `json:"manufacturer"`
	Series       string    `json:"series"`
	Severity     string    `json:"severity"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	Locator      string    `json:"locator,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecentWarnings returns the latest persisted warnings, newest first.
func RecentWarnings(limit int) ([]StoredWarning, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := DB.Query(`SELECT id, COALESCE(manufacturer, ''), COALESCE(series, ''), severity, code, message, COALESCE(locator, ''), created_at FROM data_warnings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []StoredWarning
	for rows.Next() {
		var w StoredWarning
		if err := rows.Scan(&w.ID, &w.Manufacturer, &w.Series, &w.Severity, &w.Code, &w.Message, &w.Locator, &w.CreatedAt); err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}
