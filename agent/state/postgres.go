package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:conversation_sessions,alias:cs"`

	UserID    string              `bun:"user_id,pk"`
	Messages  []contractx.Message `bun:"messages,type:jsonb,notnull"`
	ExpiresAt time.Time           `bun:"expires_at,nullzero"`
	UpdatedAt time.Time           `bun:"updated_at,notnull"`
}

// PostgresStore keeps one row per user. Rows past expires_at are treated as
// absent and removed by PurgeExpired. With a zero ttl expires_at is NULL and
// the row never expires.
type PostgresStore struct {
	db  *bun.DB
	ttl time.Duration
	now func() time.Time
}

func OpenPostgres(dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewPostgresStore(db *bun.DB, ttl time.Duration) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source. Intended for tests.
func (s *PostgresStore) WithClock(now func() time.Time) *PostgresStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create conversation_sessions: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*sessionRow)(nil)).
		Index("conversation_sessions_expires_at_idx").
		Column("expires_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create conversation_sessions index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, userID string) ([]contractx.Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}

	row := new(sessionRow)
	err := s.loadQuery(row, userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return []contractx.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	if row.Messages == nil {
		return []contractx.Message{}, nil
	}
	return cloneMessages(row.Messages), nil
}

func (s *PostgresStore) Save(ctx context.Context, userID string, messages []contractx.Message) error {
	row, err := s.newRow(userID, messages)
	if err != nil {
		return err
	}

	if _, err := s.upsertQuery(row).Exec(ctx); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	if _, err := s.clearQuery(userID).Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows whose TTL elapsed and reports how many were removed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.purgeQuery().Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *PostgresStore) newRow(userID string, messages []contractx.Message) (*sessionRow, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}
	now := s.now().UTC()
	if messages == nil {
		messages = []contractx.Message{}
	}
	row := &sessionRow{
		UserID:    userID,
		Messages:  cloneMessages(messages),
		UpdatedAt: now,
	}
	if s.ttl > 0 {
		row.ExpiresAt = now.Add(s.ttl)
	}
	return row, nil
}

func (s *PostgresStore) loadQuery(row *sessionRow, userID string) *bun.SelectQuery {
	now := s.now().UTC()
	return s.db.NewSelect().
		Model(row).
		Where("cs.user_id = ?", userID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("cs.expires_at IS NULL").WhereOr("cs.expires_at > ?", now)
		}).
		Limit(1)
}

func (s *PostgresStore) upsertQuery(row *sessionRow) *bun.InsertQuery {
	return s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("messages = EXCLUDED.messages").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at")
}

func (s *PostgresStore) clearQuery(userID string) *bun.DeleteQuery {
	return s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("user_id = ?", userID)
}

func (s *PostgresStore) purgeQuery() *bun.DeleteQuery {
	return s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("expires_at <= ?", s.now().UTC())
}
