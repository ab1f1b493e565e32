package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptogains/src/models"
)

// InsertReport persists a calculation run: the report row plus every
// transaction it was computed from, in a single database transaction.
// The full summary is stored as the detailed_report JSON blob so a report
// read needs no recomputation.
func InsertReport(filename string, summary models.TaxSummary, txs []models.Transaction) (int64, error) {
	detail, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("error marshaling detailed report: %w", err)
	}

	dbTx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.Exec(`INSERT INTO tax_reports
		(filename, upload_date, total_gain_loss, short_term_gain_loss, long_term_gain_loss,
		 num_transactions, num_short_term, num_long_term, detailed_report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filename, time.Now().UTC(),
		summary.TotalGainLoss.InexactFloat64(),
		summary.ShortTermGainLoss.InexactFloat64(),
		summary.LongTermGainLoss.InexactFloat64(),
		summary.NumTransactions, summary.NumShortTerm, summary.NumLongTerm,
		string(detail))
	if err != nil {
		return 0, fmt.Errorf("error inserting tax report: %w", err)
	}

	reportID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading report id: %w", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO transactions
		(report_id, date, type, symbol, amount, price_per_unit, price_usd, fee_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		_, err := stmt.Exec(reportID, tx.Date, tx.RawType, tx.Symbol,
			tx.Amount.InexactFloat64(), tx.PricePerUnit.InexactFloat64(),
			tx.PriceUSD.InexactFloat64(), tx.FeeUSD.InexactFloat64())
		if err != nil {
			return 0, fmt.Errorf("error inserting transaction for report %d: %w", reportID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing report: %w", err)
	}
	return reportID, nil
}

// ListReports returns all report rows, newest first.
func ListReports() ([]models.TaxReportListItem, error) {
	rows, err := DB.Query(`SELECT id, filename, upload_date, total_gain_loss, num_transactions
		FROM tax_reports ORDER BY upload_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying reports: %w", err)
	}
	defer rows.Close()

	var reports []models.TaxReportListItem
	for rows.Next() {
		var item models.TaxReportListItem
		if err := rows.Scan(&item.ID, &item.Filename, &item.UploadDate, &item.TotalGainLoss, &item.NumTransactions); err != nil {
			return nil, fmt.Errorf("error scanning report row: %w", err)
		}
		reports = append(reports, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over report rows: %w", err)
	}
	return reports, nil
}

// GetReport loads one report and its stored summary. Returns sql.ErrNoRows
// if the id is unknown.
func GetReport(id int64) (*models.TaxReport, error) {
	var report models.TaxReport
	var detail string

	err := DB.QueryRow(`SELECT id, filename, upload_date, detailed_report
		FROM tax_reports WHERE id = ?`, id).
		Scan(&report.ID, &report.Filename, &report.UploadDate, &detail)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(detail), &report.Summary); err != nil {
		return nil, fmt.Errorf("error unmarshaling detailed report %d: %w", id, err)
	}
	return &report, nil
}

// DeleteReport removes a report and its associated transactions. Returns
// sql.ErrNoRows if the id is unknown.
func DeleteReport(id int64) error {
	dbTx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM transactions WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("error deleting transactions for report %d: %w", id, err)
	}

	res, err := dbTx.Exec(`DELETE FROM tax_reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting report %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return dbTx.Commit()
}

// GetReportTransactions returns the stored input batch of a report.
func GetReportTransactions(reportID int64) ([]models.Transaction, error) {
	rows, err := DB.Query(`SELECT date, type, symbol, amount, price_per_unit, price_usd, fee_usd
		FROM transactions WHERE report_id = ? ORDER BY date ASC, id ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for report %d: %w", reportID, err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var (
			tx                              models.Transaction
			amount, price, priceUSD, feeUSD float64
		)
		if err := rows.Scan(&tx.Date, &tx.RawType, &tx.Symbol, &amount, &price, &priceUSD, &feeUSD); err != nil {
			return nil, fmt.Errorf("error scanning transaction row for report %d: %w", reportID, err)
		}
		tx.Kind = models.ParseTxKind(tx.RawType)
		tx.Amount = decimal.NewFromFloat(amount)
		tx.PricePerUnit = decimal.NewFromFloat(price)
		tx.PriceUSD = decimal.NewFromFloat(priceUSD)
		tx.FeeUSD = decimal.NewFromFloat(feeUSD)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for report %d: %w", reportID, err)
	}
	return txs, nil
}

// SaveAPIKey upserts stored exchange credentials with the secret already
// encrypted by the caller.
func SaveAPIKey(exchange, apiKey, encryptedSecret string, isSandbox bool) error {
	_, err := DB.Exec(`INSERT INTO api_keys (exchange, api_key, api_secret_enc, is_sandbox, created_at, last_used)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(exchange, api_key) DO UPDATE SET
			api_secret_enc = excluded.api_secret_enc,
			is_sandbox = excluded.is_sandbox,
			last_used = CURRENT_TIMESTAMP`,
		exchange, apiKey, encryptedSecret, isSandbox)
	if err != nil {
		return fmt.Errorf("error saving api key: %w", err)
	}
	return nil
}

// TouchAPIKey bumps last_used for stored credentials.
func TouchAPIKey(exchange, apiKey string) error {
	_, err := DB.Exec(`UPDATE api_keys SET last_used = CURRENT_TIMESTAMP WHERE exchange = ? AND api_key = ?`,
		exchange, apiKey)
	if err != nil {
		return fmt.Errorf("error updating api key last_used: %w", err)
	}
	return nil
}
