package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    login TEXT PRIMARY KEY,
    user_id TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_groups (
    login TEXT NOT NULL,
    group_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (login, group_name),
    FOREIGN KEY (login) REFERENCES users(login) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_user_groups_login
    ON user_groups(login, position);
`

// SQL is a directory stored in two tables, users and user_groups.
type SQL struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens a SQLite database with the pure-Go driver. In-memory DSNs are pinned
// to a single connection because every SQLite connection gets its own memory database.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("directory: open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQL wraps an open database. Call EnsureSchema before first use.
func NewSQL(db *sql.DB, opts ...Option) *SQL {
	return &SQL{db: db, opts: buildOptions(opts)}
}

// EnsureSchema creates the tables when missing.
func (d *SQL) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("directory: apply schema: %w", err)
	}
	return nil
}

// AddUser inserts or replaces a user and its groups in one transaction.
func (d *SQL) AddUser(ctx context.Context, u User) (err error) {
	if err := u.validate(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("directory: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users (login, user_id, password_hash) VALUES (?, ?, ?)
		 ON CONFLICT(login) DO UPDATE SET user_id = excluded.user_id, password_hash = excluded.password_hash`,
		u.Login, u.UserID, u.PasswordHash,
	); err != nil {
		return fmt.Errorf("directory: upsert user %q: %w", u.Login, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_groups WHERE login = ?`, u.Login); err != nil {
		return fmt.Errorf("directory: clear groups of %q: %w", u.Login, err)
	}
	for i, g := range u.Groups {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO user_groups (login, group_name, position) VALUES (?, ?, ?)`,
			u.Login, g, i,
		); err != nil {
			return fmt.Errorf("directory: add group %q to %q: %w", g, u.Login, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("directory: commit: %w", err)
	}
	return nil
}

func (d *SQL) CheckPassword(ctx context.Context, login, plaintext string) (bool, error) {
	var hash string
	err := d.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE login = ?`, login).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("directory: load password of %q: %w", login, err)
	}
	ok, err := checkHash(d.opts.verifier, login, plaintext, hash)
	if err != nil || !ok {
		return ok, err
	}

	if fresh := d.opts.upgradedHash(plaintext, hash); fresh != "" {
		if _, err := d.db.ExecContext(ctx,
			`UPDATE users SET password_hash = ? WHERE login = ? AND password_hash = ?`,
			fresh, login, hash,
		); err != nil {
			return false, fmt.Errorf("directory: upgrade hash of %q: %w", login, err)
		}
	}
	return true, nil
}

func (d *SQL) UserID(ctx context.Context, login string) (string, error) {
	var userID string
	err := d.db.QueryRowContext(ctx, `SELECT user_id FROM users WHERE login = ?`, login).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLogin, login)
	}
	if err != nil {
		return "", fmt.Errorf("directory: load user id of %q: %w", login, err)
	}
	return userID, nil
}

func (d *SQL) Principals(ctx context.Context, login string) ([]string, error) {
	userID, err := d.UserID(ctx, login)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT group_name FROM user_groups WHERE login = ? ORDER BY position`, login)
	if err != nil {
		return nil, fmt.Errorf("directory: load groups of %q: %w", login, err)
	}
	defer rows.Close()

	principals := []string{userID}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("directory: scan group of %q: %w", login, err)
		}
		principals = append(principals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate groups of %q: %w", login, err)
	}
	return principals, nil
}
