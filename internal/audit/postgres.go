package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
)

// PostgresStorage — серверный вариант хранилища: пакетная вставка
// в таблицу action_audit. Включается конфигом, когда журнал нужен
// дольше жизни процесса.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(connString string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &PostgresStorage{db: db}, nil
}

func (s *PostgresStorage) WriteBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице action_audit
	const numFields = 9
	var placeholders strings.Builder
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9)

		vals = append(vals,
			e.ID, e.ActionID, e.ActionType, e.Subtype,
			e.Status, e.ErrorCode, e.Message, e.DurationMs, e.Timestamp,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO action_audit (id, action_id, action_type, subtype, status, error_code, message, duration_ms, timestamp) VALUES %s",
		strings.TrimSuffix(placeholders.String(), ","),
	)

	_, err := s.db.ExecContext(ctx, query, vals...)
	return err
}

func (s *PostgresStorage) Close() error { return s.db.Close() }
