package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/cryptogains/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateAPIKeyTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS tax_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		upload_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		total_gain_loss REAL,
		short_term_gain_loss REAL,
		long_term_gain_loss REAL,
		num_transactions INTEGER,
		num_short_term INTEGER,
		num_long_term INTEGER,
		detailed_report TEXT
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL,
		date TIMESTAMP,
		type TEXT,
		symbol TEXT,
		amount REAL,
		price_per_unit REAL,
		price_usd REAL,
		fee_usd REAL,
		FOREIGN KEY(report_id) REFERENCES tax_reports(id)
	);

	CREATE TABLE IF NOT EXISTS api_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exchange TEXT DEFAULT 'gemini',
		api_key TEXT NOT NULL,
		api_secret_enc TEXT NOT NULL,
		is_sandbox BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP,
		UNIQUE(exchange, api_key)
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
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateAPIKeyTable upgrades api_keys rows created before secrets were
// encrypted at rest (the old column was api_secret, plaintext).
func migrateAPIKeyTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='api_keys'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'api_keys' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'api_keys' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(api_keys)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'api_keys'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'api_keys': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'api_keys'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'api_keys': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'api_keys'", "error", err)
		}
		return
	}

	if _, ok := columnExists["api_secret_enc"]; !ok {
		_, err := DB.Exec("ALTER TABLE api_keys ADD COLUMN api_secret_enc TEXT NOT NULL DEFAULT ''")
		if err != nil {
			logger.L.Error("Error adding 'api_secret_enc' column to 'api_keys' table", "error", err)
		} else {
			logger.L.Info("Added 'api_secret_enc' column to 'api_keys' table. Plaintext secrets must be re-entered.")
		}
	}
	if _, ok := columnExists["last_used"]; !ok {
		_, err := DB.Exec("ALTER TABLE api_keys ADD COLUMN last_used TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'last_used' column to 'api_keys' table", "error", err)
		} else {
			logger.L.Info("Added 'last_used' column to 'api_keys' table")
		}
	}
}
