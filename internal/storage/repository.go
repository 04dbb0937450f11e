package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetwatch/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists users, entries and sessions in a SQLite
// database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection also keeps
	// in-memory databases on one schema.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser persists a new user and returns it with its assigned id.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*core.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		username, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "username", username)
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", id))
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?", email))
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?", username))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// UpdateUserProfile rewrites username and email in place.
func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, id int64, username, email string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET username = ?, email = ? WHERE id = ?",
		username, email, id,
	)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// UpdateUserPassword overwrites the stored password hash.
func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ?",
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

// CreateEntry persists a new entry and returns it with its assigned id.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (*core.Entry, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO entries (item, category, price_cents, location, date_posted, user_id) VALUES (?, ?, ?, ?, ?, ?)",
		e.Item, e.Category, e.Price.Cents, e.Location, e.DatePosted.UTC(), e.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create entry id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Entry saved",
		"id", e.ID,
		"item", e.Item,
		"category", e.Category,
		"price_cents", e.Price.Cents,
		"user_id", e.UserID)
	return &e, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (*core.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, item, category, price_cents, location, date_posted, user_id FROM entries WHERE id = ?", id)

	var e core.Entry
	err := row.Scan(&e.ID, &e.Item, &e.Category, &e.Price.Cents, &e.Location, &e.DatePosted, &e.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	return &e, nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE entries SET item = ?, category = ?, price_cents = ?, location = ?, date_posted = ? WHERE id = ?",
		e.Item, e.Category, e.Price.Cents, e.Location, e.DatePosted.UTC(), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListEntriesByMonth returns a user's entries whose date_posted falls
// inside the given calendar month, newest first.
func (r *SQLiteRepository) ListEntriesByMonth(ctx context.Context, userID int64, year, month int) ([]core.Entry, error) {
	start, end := monthBounds(year, month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item, category, price_cents, location, date_posted, user_id
		 FROM entries
		 WHERE user_id = ? AND date_posted >= ? AND date_posted < ?
		 ORDER BY date_posted DESC, id DESC`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries by month: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		var e core.Entry
		if err := rows.Scan(&e.ID, &e.Item, &e.Category, &e.Price.Cents, &e.Location, &e.DatePosted, &e.UserID); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CategoryTotalsByMonth returns the grouped price sums per category over
// the user's entries inside the given calendar month. Categories with no
// entries in the month do not appear.
func (r *SQLiteRepository) CategoryTotalsByMonth(ctx context.Context, userID int64, year, month int) ([]core.CategoryTotal, error) {
	start, end := monthBounds(year, month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(price_cents)
		 FROM entries
		 WHERE user_id = ? AND date_posted >= ? AND date_posted < ?
		 GROUP BY category
		 ORDER BY category`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("category totals by month: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// CreateSession records a session token for a user.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		s.Token, s.UserID, s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSessionUser resolves an unexpired session token to its user.
func (r *SQLiteRepository) GetSessionUser(ctx context.Context, token string) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.created_at
		 FROM sessions s
		 JOIN users u ON s.user_id = u.id
		 WHERE s.token = ? AND s.expires_at > ?`,
		token, time.Now().UTC(),
	)
	return r.scanUser(row)
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were removed.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: rows affected: %w", err)
	}
	return n, nil
}

// monthBounds returns [start, end) of the calendar month in UTC.
func monthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
