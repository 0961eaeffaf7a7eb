package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ga03-kanban/internal/kanban/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type migration struct {
	version int
	sql     string
}

var sqliteMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kanban_columns (
	id                    TEXT NOT NULL,
	user_id               TEXT NOT NULL,
	name                  TEXT NOT NULL,
	color                 TEXT NOT NULL DEFAULT '',
	type                  TEXT NOT NULL DEFAULT 'CUSTOM',
	display_order         INTEGER NOT NULL DEFAULT 0,
	is_default            INTEGER NOT NULL DEFAULT 0,
	gmail_label_id        TEXT NOT NULL DEFAULT '',
	gmail_label_name      TEXT NOT NULL DEFAULT '',
	add_labels_on_move    TEXT NOT NULL DEFAULT '[]',
	remove_labels_on_move TEXT NOT NULL DEFAULT '[]',
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS board_emails (
	user_id         TEXT NOT NULL,
	email_id        TEXT NOT NULL,
	column_id       TEXT NOT NULL,
	order_in_column INTEGER NOT NULL DEFAULT 0,
	is_read         INTEGER NOT NULL DEFAULT 0,
	is_starred      INTEGER NOT NULL DEFAULT 0,
	snooze_until    DATETIME,
	prior_column_id TEXT NOT NULL DEFAULT '',
	prior_order     INTEGER NOT NULL DEFAULT 0,
	summary         TEXT NOT NULL DEFAULT '',
	subject         TEXT NOT NULL DEFAULT '',
	from_email      TEXT NOT NULL DEFAULT '',
	from_name       TEXT NOT NULL DEFAULT '',
	preview         TEXT NOT NULL DEFAULT '',
	received_at     DATETIME NOT NULL,
	has_attachments INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	PRIMARY KEY (user_id, email_id)
);

CREATE INDEX IF NOT EXISTS idx_board_emails_column ON board_emails(user_id, column_id, order_in_column);
CREATE INDEX IF NOT EXISTS idx_board_emails_snooze ON board_emails(snooze_until);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

// SQLiteStore keeps boards in a local SQLite file, for single-user and offline setups
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies pending migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection keeps every transaction on the same handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range sqliteMigrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Board returns the BoardAPI of userID
func (s *SQLiteStore) Board(userID string) BoardAPI {
	return &sqliteBoard{db: s.db, userID: userID}
}

// UsersWithHolds gets the users owning at least one snoozed card
func (s *SQLiteStore) UsersWithHolds(ctx context.Context) ([]string, error) {
	var users []string
	err := s.db.SelectContext(ctx, &users,
		"SELECT DISTINCT user_id FROM board_emails WHERE snooze_until IS NOT NULL ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("querying snoozed users: %w", err)
	}
	return users, nil
}

type sqliteBoard struct {
	db     *sqlx.DB
	userID string
}

func (b *sqliteBoard) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const columnSelect = `SELECT id, user_id, name, color, type, display_order, is_default,
	gmail_label_id, gmail_label_name, add_labels_on_move, remove_labels_on_move,
	created_at, updated_at FROM kanban_columns`

const emailSelect = `SELECT user_id, email_id, column_id, order_in_column, is_read, is_starred,
	snooze_until, prior_column_id, prior_order, summary, subject, from_email, from_name,
	preview, received_at, has_attachments, created_at, updated_at FROM board_emails`

func (b *sqliteBoard) ListColumns(ctx context.Context) ([]*domain.Column, error) {
	var columns []*domain.Column
	err := b.db.SelectContext(ctx, &columns,
		columnSelect+" WHERE user_id = ? ORDER BY display_order ASC", b.userID)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	return columns, nil
}

func (b *sqliteBoard) getColumn(ctx context.Context, tx *sqlx.Tx, columnID string) (*domain.Column, error) {
	var column domain.Column
	err := tx.GetContext(ctx, &column, columnSelect+" WHERE user_id = ? AND id = ?", b.userID, columnID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: column %s no longer exists", domain.ErrConflict, columnID)
		}
		return nil, fmt.Errorf("getting column %s: %w", columnID, err)
	}
	return &column, nil
}

func (b *sqliteBoard) CreateColumn(ctx context.Context, column *domain.Column) (*domain.Column, error) {
	col := column.Clone()
	if col.ID == "" {
		col.ID = uuid.New().String()
	}
	col.UserID = b.userID
	col.CreatedAt = time.Now().UTC()
	col.UpdatedAt = col.CreatedAt

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kanban_columns (
			id, user_id, name, color, type, display_order, is_default,
			gmail_label_id, gmail_label_name, add_labels_on_move, remove_labels_on_move,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		col.ID, col.UserID, col.Name, col.Color, string(col.Type), col.Order, boolToInt(col.IsDefault),
		col.GmailLabelID, col.GmailLabelName, col.AddLabelsOnMove, col.RemoveLabelsOnMove,
		col.CreatedAt, col.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating column %s: %w", col.ID, err)
	}
	return col, nil
}

func (b *sqliteBoard) UpdateColumn(ctx context.Context, columnID string, patch domain.ColumnPatch) (*domain.Column, error) {
	var updated *domain.Column
	err := b.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := b.getColumn(ctx, tx, columnID)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		updated.UpdatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE kanban_columns SET
				name = ?, color = ?, display_order = ?, gmail_label_id = ?, gmail_label_name = ?,
				add_labels_on_move = ?, remove_labels_on_move = ?, updated_at = ?
			WHERE user_id = ? AND id = ?`,
			updated.Name, updated.Color, updated.Order, updated.GmailLabelID, updated.GmailLabelName,
			updated.AddLabelsOnMove, updated.RemoveLabelsOnMove, updated.UpdatedAt,
			b.userID, columnID,
		)
		if err != nil {
			return fmt.Errorf("updating column %s: %w", columnID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (b *sqliteBoard) ReorderColumns(ctx context.Context, columnIDs []string) error {
	return b.withTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for i, id := range columnIDs {
			res, err := tx.ExecContext(ctx,
				"UPDATE kanban_columns SET display_order = ?, updated_at = ? WHERE user_id = ? AND id = ?",
				i, now, b.userID, id)
			if err != nil {
				return fmt.Errorf("reordering column %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: column %s no longer exists", domain.ErrConflict, id)
			}
		}
		return nil
	})
}

func (b *sqliteBoard) DeleteColumn(ctx context.Context, columnID string) error {
	return b.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		err := tx.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM board_emails WHERE user_id = ? AND column_id = ?", b.userID, columnID)
		if err != nil {
			return fmt.Errorf("counting emails of column %s: %w", columnID, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: column %s still holds %d emails", domain.ErrConflict, columnID, count)
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM kanban_columns WHERE user_id = ? AND id = ?", b.userID, columnID)
		if err != nil {
			return fmt.Errorf("deleting column %s: %w", columnID, err)
		}
		return nil
	})
}

func (b *sqliteBoard) GetBoard(ctx context.Context, filter domain.BoardFilter) (*domain.BoardSnapshot, error) {
	columns, err := b.ListColumns(ctx)
	if err != nil {
		return nil, err
	}

	query := emailSelect + " WHERE user_id = ?"
	if filter.UnreadOnly {
		query += " AND is_read = 0"
	}
	if filter.WithAttachments {
		query += " AND has_attachments = 1"
	}
	if filter.StarredOnly {
		query += " AND is_starred = 1"
	}
	query += " ORDER BY column_id ASC, order_in_column ASC"

	var emails []domain.BoardEmail
	if err := b.db.SelectContext(ctx, &emails, query, b.userID); err != nil {
		return nil, fmt.Errorf("querying board emails: %w", err)
	}

	snap := &domain.BoardSnapshot{
		Columns:        columns,
		EmailsByColumn: make(map[string][]domain.BoardEmail, len(columns)),
	}
	for _, col := range columns {
		snap.EmailsByColumn[col.ID] = []domain.BoardEmail{}
	}
	for _, e := range emails {
		snap.EmailsByColumn[e.ColumnID] = append(snap.EmailsByColumn[e.ColumnID], e)
	}
	return snap, nil
}

func (b *sqliteBoard) GetEmail(ctx context.Context, emailID string) (*domain.BoardEmail, error) {
	var email domain.BoardEmail
	err := b.db.GetContext(ctx, &email, emailSelect+" WHERE user_id = ? AND email_id = ?", b.userID, emailID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting email %s: %w", emailID, err)
	}
	return &email, nil
}

func (b *sqliteBoard) getEmail(ctx context.Context, tx *sqlx.Tx, emailID string) (*domain.BoardEmail, error) {
	var email domain.BoardEmail
	err := tx.GetContext(ctx, &email, emailSelect+" WHERE user_id = ? AND email_id = ?", b.userID, emailID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEmailGone, emailID)
		}
		return nil, fmt.Errorf("getting email %s: %w", emailID, err)
	}
	return &email, nil
}

// place puts emailID at index of columnID and renumbers the column
func (b *sqliteBoard) place(ctx context.Context, tx *sqlx.Tx, columnID, emailID string, index int) error {
	var ids []string
	err := tx.SelectContext(ctx, &ids, `
		SELECT email_id FROM board_emails
		WHERE user_id = ? AND column_id = ? AND email_id <> ?
		ORDER BY order_in_column ASC`, b.userID, columnID, emailID)
	if err != nil {
		return fmt.Errorf("listing column %s: %w", columnID, err)
	}
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	ordered := make([]string, 0, len(ids)+1)
	ordered = append(ordered, ids[:index]...)
	ordered = append(ordered, emailID)
	ordered = append(ordered, ids[index:]...)
	return b.renumber(ctx, tx, columnID, ordered)
}

func (b *sqliteBoard) compact(ctx context.Context, tx *sqlx.Tx, columnID string) error {
	var ids []string
	err := tx.SelectContext(ctx, &ids,
		"SELECT email_id FROM board_emails WHERE user_id = ? AND column_id = ? ORDER BY order_in_column ASC",
		b.userID, columnID)
	if err != nil {
		return fmt.Errorf("listing column %s: %w", columnID, err)
	}
	return b.renumber(ctx, tx, columnID, ids)
}

func (b *sqliteBoard) renumber(ctx context.Context, tx *sqlx.Tx, columnID string, ordered []string) error {
	stmt, err := tx.PreparexContext(ctx,
		"UPDATE board_emails SET column_id = ?, order_in_column = ? WHERE user_id = ? AND email_id = ?")
	if err != nil {
		return fmt.Errorf("preparing renumber statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range ordered {
		if _, err := stmt.ExecContext(ctx, columnID, i, b.userID, id); err != nil {
			return fmt.Errorf("renumbering %s: %w", id, err)
		}
	}
	return nil
}

func (b *sqliteBoard) AddEmail(ctx context.Context, email domain.BoardEmail, index int) error {
	return b.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := b.getColumn(ctx, tx, email.ColumnID); err != nil {
			return err
		}
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO board_emails (
				user_id, email_id, column_id, order_in_column, is_read, is_starred,
				snooze_until, prior_column_id, prior_order, summary, subject, from_email, from_name,
				preview, received_at, has_attachments, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, NULL, '', 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.userID, email.EmailID, email.ColumnID, 1<<30, boolToInt(email.IsRead), boolToInt(email.IsStarred),
			email.Summary, email.Subject, email.FromEmail, email.FromName,
			email.Preview, email.ReceivedAt.UTC(), boolToInt(email.HasAttachments), now, now,
		)
		if err != nil {
			return fmt.Errorf("adding email %s: %w", email.EmailID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: email %s is already on the board", domain.ErrConflict, email.EmailID)
		}
		return b.place(ctx, tx, email.ColumnID, email.EmailID, index)
	})
}

func (b *sqliteBoard) RemoveEmail(ctx context.Context, emailID string) error {
	return b.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := b.getEmail(ctx, tx, emailID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM board_emails WHERE user_id = ? AND email_id = ?", b.userID, emailID)
		if err != nil {
			return fmt.Errorf("removing email %s: %w", emailID, err)
		}
		return b.compact(ctx, tx, current.ColumnID)
	})
}

func (b *sqliteBoard) MoveEmail(ctx context.Context, emailID, targetColumnID string, index int) error {
	return b.withTx(ctx, func(tx *sqlx.Tx) error {
		return b.moveTx(ctx, tx, emailID, targetColumnID, index)
	})
}

func (b *sqliteBoard) moveTx(ctx context.Context, tx *sqlx.Tx, emailID, targetColumnID string, index int) error {
	current, err := b.getEmail(ctx, tx, emailID)
	if err != nil {
		return err
	}
	if _, err := b.getColumn(ctx, tx, targetColumnID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE board_emails SET column_id = ?, snooze_until = NULL, prior_column_id = '', prior_order = 0, updated_at = ?
		WHERE user_id = ? AND email_id = ?`,
		targetColumnID, time.Now().UTC(), b.userID, emailID)
	if err != nil {
		return fmt.Errorf("moving email %s: %w", emailID, err)
	}
	if err := b.place(ctx, tx, targetColumnID, emailID, index); err != nil {
		return err
	}
	if current.ColumnID != targetColumnID {
		return b.compact(ctx, tx, current.ColumnID)
	}
	return nil
}

func (b *sqliteBoard) SnoozeEmail(ctx context.Context, emailID, snoozedColumnID, priorColumnID string, priorOrder int, until time.Time) error {
	return b.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := b.getEmail(ctx, tx, emailID)
		if err != nil {
			return err
		}
		if current.ColumnID == snoozedColumnID {
			return fmt.Errorf("%w: %s", domain.ErrAlreadySnoozed, emailID)
		}
		if _, err := b.getColumn(ctx, tx, snoozedColumnID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE board_emails SET column_id = ?, snooze_until = ?, prior_column_id = ?, prior_order = ?, updated_at = ?
			WHERE user_id = ? AND email_id = ?`,
			snoozedColumnID, until.UTC(), priorColumnID, priorOrder, time.Now().UTC(), b.userID, emailID)
		if err != nil {
			return fmt.Errorf("snoozing email %s: %w", emailID, err)
		}
		if err := b.place(ctx, tx, snoozedColumnID, emailID, -1); err != nil {
			return err
		}
		return b.compact(ctx, tx, current.ColumnID)
	})
}

func (b *sqliteBoard) UnsnoozeEmail(ctx context.Context, emailID string) (string, error) {
	var restored string
	err := b.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := b.getEmail(ctx, tx, emailID)
		if err != nil {
			return err
		}
		if current.SnoozeUntil == nil && current.PriorColumnID == "" {
			return fmt.Errorf("%w: %s", domain.ErrNotSnoozed, emailID)
		}

		target, index := current.PriorColumnID, current.PriorOrder
		if target != "" {
			if _, err := b.getColumn(ctx, tx, target); err != nil {
				if !errors.Is(err, domain.ErrConflict) {
					return err
				}
				target = ""
			}
		}
		if target == "" {
			err := tx.GetContext(ctx, &target, `
				SELECT id FROM kanban_columns WHERE user_id = ? AND type = ?
				ORDER BY is_default DESC, display_order ASC LIMIT 1`,
				b.userID, string(domain.ColumnTypeInbox))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("%w: board has no inbox column", domain.ErrConflict)
				}
				return fmt.Errorf("finding inbox column: %w", err)
			}
			index = -1
		}

		restored = target
		return b.moveTx(ctx, tx, emailID, target, index)
	})
	if err != nil {
		return "", err
	}
	return restored, nil
}

func (b *sqliteBoard) UpdateFlags(ctx context.Context, emailID string, patch domain.FlagPatch) error {
	return b.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := b.getEmail(ctx, tx, emailID)
		if err != nil {
			return err
		}
		if patch.IsRead != nil {
			current.IsRead = *patch.IsRead
		}
		if patch.IsStarred != nil {
			current.IsStarred = *patch.IsStarred
		}
		if patch.Summary != nil {
			current.Summary = *patch.Summary
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE board_emails SET is_read = ?, is_starred = ?, summary = ?, updated_at = ?
			WHERE user_id = ? AND email_id = ?`,
			boolToInt(current.IsRead), boolToInt(current.IsStarred), current.Summary, time.Now().UTC(),
			b.userID, emailID)
		if err != nil {
			return fmt.Errorf("updating flags of %s: %w", emailID, err)
		}
		return nil
	})
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
