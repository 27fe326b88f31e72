package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tienlen/internal/ports"
)

// Store handles SQLite persistence for the standalone server: player
// wallets, the settlement ledger, and per-table engine state carried
// across restarts.
type Store struct {
	db *sql.DB
}

var (
	_ ports.EconomyPort      = (*Store)(nil)
	_ ports.WelcomeBonusPort = (*Store)(nil)
)

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Single connection: sqlite has one writer, and an in-memory db
	// exists per connection.
	db.SetMaxOpenConns(1)
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS wallets (
			user_id TEXT PRIMARY KEY,
			gold    INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS ledger (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			reason     TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS welcome_grants (
			user_id    TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS table_state (
			room_id    TEXT PRIMARY KEY,
			state_json TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// GetBalance retrieves the current gold balance for a user. Unknown
// users report zero gold rather than an error.
func (s *Store) GetBalance(ctx context.Context, userID string) (int64, error) {
	var gold int64
	err := s.db.QueryRowContext(ctx, "SELECT gold FROM wallets WHERE user_id = ?", userID).Scan(&gold)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return gold, nil
}

// UpdateBalances applies a settlement batch in one transaction, writing
// a ledger row per change.
func (s *Store) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback()

	for _, up := range updates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id, gold) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET gold = gold + excluded.gold
		`, up.UserID, up.Amount); err != nil {
			return fmt.Errorf("update wallet %s: %w", up.UserID, err)
		}

		reason := ""
		if up.Metadata != nil {
			if r, ok := up.Metadata["reason"].(string); ok {
				reason = r
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger (id, user_id, amount, reason) VALUES (?, ?, ?, ?)
		`, uuid.NewString(), up.UserID, up.Amount, reason); err != nil {
			return fmt.Errorf("write ledger for %s: %w", up.UserID, err)
		}
	}

	return tx.Commit()
}

// GrantWelcomeBonusOnce grants the starting gold at most once per user.
func (s *Store) GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin grant: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO welcome_grants (user_id) VALUES (?)", userID)
	if err != nil {
		return false, fmt.Errorf("record grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record grant: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, gold) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET gold = gold + excluded.gold
	`, userID, amount); err != nil {
		return false, fmt.Errorf("grant gold: %w", err)
	}

	reason := "starting_gold"
	if metadata != nil {
		if r, ok := metadata["reason"].(string); ok {
			reason = r
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger (id, user_id, amount, reason) VALUES (?, ?, ?, ?)
	`, uuid.NewString(), userID, amount, reason); err != nil {
		return false, fmt.Errorf("write ledger: %w", err)
	}

	return true, tx.Commit()
}

// SaveTableState upserts a table's persistable engine state.
func (s *Store) SaveTableState(ctx context.Context, roomID string, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal table state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO table_state (room_id, state_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at
	`, roomID, string(raw))
	return err
}

// LoadTableState reads a table's persisted engine state into out.
// Missing rows report found=false with no error.
func (s *Store) LoadTableState(ctx context.Context, roomID string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT state_json FROM table_state WHERE room_id = ?", roomID).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load table state: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal table state: %w", err)
	}
	return true, nil
}

// DeleteTableState removes a reaped table's persisted state.
func (s *Store) DeleteTableState(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM table_state WHERE room_id = ?", roomID)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
