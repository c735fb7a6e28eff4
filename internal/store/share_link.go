package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/syncbridge/syncd/internal/model"
)

// ShareLink binds an opaque token to a single mirrored path, per the
// shared-link submission endpoint (SPEC_FULL.md "Supplemented Features").
type ShareLink struct {
	Token        string
	WatchGroupID int64
	RelativePath string
	CreatedAt    model.Timestamp
}

// CreateShareLink mints a new token bound to (watchGroupID, relativePath).
func (s *EventStore) CreateShareLink(ctx context.Context, watchGroupID int64, relativePath string) (ShareLink, error) {
	link := ShareLink{
		Token:        uuid.NewString(),
		WatchGroupID: watchGroupID,
		RelativePath: relativePath,
		CreatedAt:    model.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO share_link (token, watch_group_id, relative_path, created_at) VALUES (?, ?, ?, ?)`,
		link.Token, link.WatchGroupID, link.RelativePath, int64(link.CreatedAt))
	if err != nil {
		return ShareLink{}, fmt.Errorf("store: create share link: %w", err)
	}

	return link, nil
}

// ResolveShareLink looks up the watch group and path a token was minted
// for, or ErrNotFound.
func (s *EventStore) ResolveShareLink(ctx context.Context, token string) (ShareLink, error) {
	var link ShareLink

	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT token, watch_group_id, relative_path, created_at FROM share_link WHERE token = ?`, token,
	).Scan(&link.Token, &link.WatchGroupID, &link.RelativePath, &createdAt)
	if err == sql.ErrNoRows {
		return ShareLink{}, ErrNotFound
	}

	if err != nil {
		return ShareLink{}, fmt.Errorf("store: resolve share link %s: %w", token, err)
	}

	link.CreatedAt = model.Timestamp(createdAt)

	return link, nil
}
