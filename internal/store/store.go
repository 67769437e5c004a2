// Package store keeps the local journal of submitted orders. The journal
// is written only after the order service has accepted a submission; it is
// a back-office record, not a source of truth.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kargopost/orderwizard/internal/store/config"
)

// Entry - строка журнала отправленных заказов
type Entry struct {
	TrackingNumber string
	RemoteID       string
	Mode           string
	Operator       string
	Payload        []byte
	CreatedAt      time.Time
}

type Journal interface {
	Record(ctx context.Context, entry Entry) error
	ByOperator(ctx context.Context, operator string) ([]Entry, error)
}

type journal struct {
	database *sql.DB
}

func NewJournal(cfg config.Config) (Journal, error) {
	if cfg.DBDsn == "" {
		// без БД журнал выключен
		return noopJournal{}, nil
	}

	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}

	// Журнал отправленных заказов.
	// Одна строка на отправку, строки не редактируются
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS submitted_order (" +
			" tracking_number VARCHAR (12) PRIMARY KEY," +
			" remote_id VARCHAR (40) NOT NULL," +
			" mode VARCHAR (10) NOT NULL," +
			" operator VARCHAR (40) NOT NULL," +
			" payload TEXT NOT NULL," +
			" created_at TIMESTAMP NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	return &journal{database: db}, nil
}

func (j *journal) Record(ctx context.Context, entry Entry) error {
	_, err := j.database.ExecContext(ctx,
		"INSERT INTO submitted_order (tracking_number, remote_id, mode, operator, payload, created_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6)",
		entry.TrackingNumber,
		entry.RemoteID,
		entry.Mode,
		entry.Operator,
		entry.Payload,
		entry.CreatedAt)
	return err
}

func (j *journal) ByOperator(ctx context.Context, operator string) ([]Entry, error) {
	rows, err := j.database.QueryContext(ctx,
		"SELECT tracking_number, remote_id, mode, operator, payload, created_at"+
			" FROM submitted_order"+
			" WHERE operator = $1"+
			" ORDER BY created_at DESC",
		operator)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		err := rows.Scan(&entry.TrackingNumber,
			&entry.RemoteID,
			&entry.Mode,
			&entry.Operator,
			&entry.Payload,
			&entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type noopJournal struct{}

func (noopJournal) Record(ctx context.Context, entry Entry) error { return nil }

func (noopJournal) ByOperator(ctx context.Context, operator string) ([]Entry, error) {
	return nil, nil
}
