package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// BatchInfo summarizes one saved batch for retention decisions.
type BatchInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Runs      int       `json:"runs"`
}

// RetentionPolicy decides which batches to keep.
type RetentionPolicy interface {
	Apply(batches []BatchInfo) (keep []BatchInfo)
}

// CountPolicy keeps the N most recent batches.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount batches (assumed sorted newest-first).
func (p *CountPolicy) Apply(batches []BatchInfo) []BatchInfo {
	if len(batches) <= p.MaxCount {
		return batches
	}
	return batches[:p.MaxCount]
}

// AgePolicy keeps batches newer than MaxAge.
type AgePolicy struct {
	MaxAge time.Duration
}

// Apply keeps batches whose CreatedAt is within MaxAge of now.
func (p *AgePolicy) Apply(batches []BatchInfo) []BatchInfo {
	cutoff := time.Now().Add(-p.MaxAge)
	var keep []BatchInfo
	for _, b := range batches {
		if b.CreatedAt.After(cutoff) {
			keep = append(keep, b)
		}
	}
	return keep
}

// CompositePolicy keeps a batch if ANY sub-policy wants it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the union of batches kept by any sub-policy, in input order.
func (p *CompositePolicy) Apply(batches []BatchInfo) []BatchInfo {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, b := range policy.Apply(batches) {
			kept[b.ID] = true
		}
	}

	var result []BatchInfo
	for _, b := range batches {
		if kept[b.ID] {
			result = append(result, b)
		}
	}
	return result
}

// ListBatches returns every saved batch, newest first.
func (s *SQLiteResultStore) ListBatches(ctx context.Context) ([]BatchInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, MAX(created_at), COUNT(*)
		FROM runs
		GROUP BY batch_id
		ORDER BY MAX(created_at) DESC, batch_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []BatchInfo
	for rows.Next() {
		var b BatchInfo
		var createdAt string
		if err := rows.Scan(&b.ID, &createdAt, &b.Runs); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("batch %s has bad timestamp %q: %w", b.ID, createdAt, err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Prune deletes every batch the policy does not keep, together with its
// runs, and returns the deleted batch IDs.
func (s *SQLiteResultStore) Prune(ctx context.Context, policy RetentionPolicy) ([]string, error) {
	batches, err := s.ListBatches(ctx)
	if err != nil {
		return nil, err
	}

	keepSet := make(map[string]bool)
	for _, b := range policy.Apply(batches) {
		keepSet[b.ID] = true
	}

	var deleted []string
	for _, b := range batches {
		if keepSet[b.ID] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE batch_id = ?`, b.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete batch %s: %w", b.ID, err)
		}
		deleted = append(deleted, b.ID)
	}
	return deleted, nil
}

// ParseDuration parses durations like "30d", "2w" or "720h".
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}
