package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// storeRepo implements the processed-event store
type storeRepo struct {
	db *sql.DB
}

// NewStoreRepo creates the sqlite-backed store
func NewStoreRepo(dbPath string) (repo.StoreRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_reactions (
			key TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			msg_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			emoji TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create processed_reactions table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatches (
			correlation_id TEXT PRIMARY KEY,
			requester_id TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create dispatches table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_reactions_created ON processed_reactions(created_at)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_dispatches_created ON dispatches(created_at)`)

	fmt.Printf("[Store] Database initialized at %s\n", dbPath)
	return &storeRepo{db: db}, nil
}

// MarkReactionProcessed records a reaction key, reporting whether the
// key was newly inserted
func (r *storeRepo) MarkReactionProcessed(ctx context.Context, key, chatID, msgID, userID, emoji string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO processed_reactions (key, chat_id, msg_id, user_id, emoji, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key, chatID, msgID, userID, emoji, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to mark reaction processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// IsReactionProcessed reports whether a reaction key is recorded
func (r *storeRepo) IsReactionProcessed(ctx context.Context, key string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM processed_reactions WHERE key = ?
	`, key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check reaction: %w", err)
	}
	return count > 0, nil
}

// RecordDispatch upserts a dispatch record
func (r *storeRepo) RecordDispatch(ctx context.Context, rec *domain.DispatchRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO dispatches (correlation_id, requester_id, chat_id, status, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.CorrelationID, rec.RequesterID, rec.OriginChatID, string(rec.Status), rec.Attempts, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}

// CleanupOld removes entries older than the cutoff
func (r *storeRepo) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"processed_reactions", "dispatches"} {
		result, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE created_at < ?`, table), before.Unix())
		if err != nil {
			return total, fmt.Errorf("failed to cleanup %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}
	return total, nil
}

// Stats returns store statistics
func (r *storeRepo) Stats(ctx context.Context) (*repo.StoreStats, error) {
	var stats repo.StoreStats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_reactions`).Scan(&stats.ProcessedReactions); err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dispatches`).Scan(&stats.Dispatches); err != nil {
		return nil, fmt.Errorf("failed to count dispatches: %w", err)
	}
	return &stats, nil
}

// Close closes the database connection
func (r *storeRepo) Close() error {
	return r.db.Close()
}
