package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syncbridge/syncd/internal/model"
)

// ListWatchGroups returns every server watch group, ordered by id.
func (s *EventStore) ListWatchGroups(ctx context.Context) ([]model.WatchGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM server_watch_group ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list watch groups: %w", err)
	}
	defer rows.Close()

	var groups []model.WatchGroup

	for rows.Next() {
		var g model.WatchGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("store: scanning watch group: %w", err)
		}

		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// InsertWatchGroup creates a new watch group and returns it with its
// assigned id.
func (s *EventStore) InsertWatchGroup(ctx context.Context, name string) (model.WatchGroup, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO server_watch_group (name) VALUES (?)`, name)
	if err != nil {
		return model.WatchGroup{}, fmt.Errorf("store: insert watch group %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.WatchGroup{}, fmt.Errorf("store: watch group last insert id: %w", err)
	}

	return model.WatchGroup{ID: id, Name: name}, nil
}

// RenameWatchGroup updates an existing watch group's display name.
func (s *EventStore) RenameWatchGroup(ctx context.Context, id int64, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE server_watch_group SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("store: rename watch group %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rename watch group %d rows affected: %w", id, err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// ClientConfigInput is the argument to UpsertClientConfig: everything
// needed to replace one client's registration and watch-group bindings in
// a single transaction.
type ClientConfigInput struct {
	ClientID          string
	HostName          string
	MinPollIntervalMS int64
	Bindings          []BindingInput
}

// BindingInput is one client_watch_group row plus its excluded dirs.
type BindingInput struct {
	ServerWatchGroupID int64
	PathToMonitor      string
	ExcludeDotDirs     bool
	ExcludeDirs        []string
}

// UpsertClientConfig atomically upserts the client row and replaces all of
// its watch-group bindings (delete then re-insert), per spec §4.3.
func (s *EventStore) UpsertClientConfig(ctx context.Context, in ClientConfigInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: upsert client config begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a documented no-op

	_, err = tx.ExecContext(ctx,
		`INSERT INTO client (id, host_name, min_poll_interval_in_ms, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET host_name = excluded.host_name,
			min_poll_interval_in_ms = excluded.min_poll_interval_in_ms`,
		in.ClientID, in.HostName, in.MinPollIntervalMS, int64(model.Now()),
	)
	if err != nil {
		return fmt.Errorf("store: upsert client row %s: %w", in.ClientID, err)
	}

	existingIDs, err := queryClientWatchGroupIDs(ctx, tx, in.ClientID)
	if err != nil {
		return err
	}

	if len(existingIDs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM client_watch_group_excluded_dir WHERE client_watch_group IN (`+placeholders(len(existingIDs))+`)`,
			toArgs(existingIDs)...); err != nil {
			return fmt.Errorf("store: delete excluded dirs for %s: %w", in.ClientID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM client_watch_group WHERE client_id = ?`, in.ClientID); err != nil {
		return fmt.Errorf("store: delete bindings for %s: %w", in.ClientID, err)
	}

	for _, b := range in.Bindings {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO client_watch_group (client_id, server_watch_group_id, path_to_monitor, exclude_dot_dirs)
			 VALUES (?, ?, ?, ?)`,
			in.ClientID, b.ServerWatchGroupID, b.PathToMonitor, boolToInt(b.ExcludeDotDirs))
		if err != nil {
			return fmt.Errorf("store: insert binding for %s/%d: %w", in.ClientID, b.ServerWatchGroupID, err)
		}

		bindingID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("store: binding last insert id: %w", err)
		}

		for _, dir := range b.ExcludeDirs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO client_watch_group_excluded_dir (client_watch_group, exclude_dir) VALUES (?, ?)`,
				bindingID, dir); err != nil {
				return fmt.Errorf("store: insert excluded dir %q: %w", dir, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: upsert client config commit: %w", err)
	}

	return nil
}

func queryClientWatchGroupIDs(ctx context.Context, tx *sql.Tx, clientID string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM client_watch_group WHERE client_id = ?`, clientID)
	if err != nil {
		return nil, fmt.Errorf("store: query existing bindings for %s: %w", clientID, err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scanning binding id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetClientConfig loads a client's WatchConfig (poll interval plus every
// watch-group binding joined to its group name), or ok=false if the
// client has never registered.
func (s *EventStore) GetClientConfig(ctx context.Context, clientID string) (cfg model.WatchConfig, ok bool, err error) {
	var minPoll int64

	err = s.db.QueryRowContext(ctx,
		`SELECT min_poll_interval_in_ms FROM client WHERE id = ?`, clientID).Scan(&minPoll)
	if err == sql.ErrNoRows {
		return model.WatchConfig{}, false, nil
	}

	if err != nil {
		return model.WatchConfig{}, false, fmt.Errorf("store: get client %s: %w", clientID, err)
	}

	cfg.MinPollIntervalMS = minPoll
	cfg.WatchGroups = make(map[int64]model.WatchConfigGroupEntry)

	rows, err := s.db.QueryContext(ctx,
		`SELECT cwg.id, cwg.server_watch_group_id, cwg.path_to_monitor, cwg.exclude_dot_dirs, swg.name
		 FROM client_watch_group cwg
		 JOIN server_watch_group swg ON swg.id = cwg.server_watch_group_id
		 WHERE cwg.client_id = ?`, clientID)
	if err != nil {
		return model.WatchConfig{}, false, fmt.Errorf("store: get client bindings %s: %w", clientID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bindingID      int64
			wgID           int64
			pathToMonitor  string
			excludeDotDirs int
			name           string
		)

		if err := rows.Scan(&bindingID, &wgID, &pathToMonitor, &excludeDotDirs, &name); err != nil {
			return model.WatchConfig{}, false, fmt.Errorf("store: scanning binding: %w", err)
		}

		dirs, err := s.queryExcludedDirs(ctx, bindingID)
		if err != nil {
			return model.WatchConfig{}, false, err
		}

		cfg.WatchGroups[wgID] = model.WatchConfigGroupEntry{
			Name:           name,
			PathToMonitor:  pathToMonitor,
			ExcludeDirs:    dirs,
			ExcludeDotDirs: excludeDotDirs != 0,
		}
	}

	if err := rows.Err(); err != nil {
		return model.WatchConfig{}, false, fmt.Errorf("store: iterating bindings: %w", err)
	}

	return cfg, true, nil
}

func (s *EventStore) queryExcludedDirs(ctx context.Context, bindingID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exclude_dir FROM client_watch_group_excluded_dir WHERE client_watch_group = ?`, bindingID)
	if err != nil {
		return nil, fmt.Errorf("store: query excluded dirs for binding %d: %w", bindingID, err)
	}
	defer rows.Close()

	var dirs []string

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("store: scanning excluded dir: %w", err)
		}

		dirs = append(dirs, d)
	}

	return dirs, rows.Err()
}

// AdminClientRow is one row of the admin "all clients with bindings" view.
type AdminClientRow struct {
	Client   model.Client
	Bindings []BindingInput
}

// ListClientsWithBindings returns every registered client joined with its
// watch-group bindings, for the admin API.
func (s *EventStore) ListClientsWithBindings(ctx context.Context) ([]AdminClientRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, host_name, min_poll_interval_in_ms, created_at FROM client ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list clients: %w", err)
	}
	defer rows.Close()

	var out []AdminClientRow

	for rows.Next() {
		var (
			c         model.Client
			createdAt int64
		)

		if err := rows.Scan(&c.ID, &c.HostName, &c.MinPollIntervalMS, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scanning client: %w", err)
		}

		c.CreatedAt = model.Timestamp(createdAt)

		cfg, _, err := s.GetClientConfig(ctx, c.ID)
		if err != nil {
			return nil, err
		}

		var bindings []BindingInput

		for wgID, entry := range cfg.WatchGroups {
			bindings = append(bindings, BindingInput{
				ServerWatchGroupID: wgID,
				PathToMonitor:      entry.PathToMonitor,
				ExcludeDotDirs:     entry.ExcludeDotDirs,
				ExcludeDirs:        entry.ExcludeDirs,
			})
		}

		out = append(out, AdminClientRow{Client: c, Bindings: bindings})
	}

	return out, rows.Err()
}

// OldestClientID returns the id of the earliest-registered client, used by
// the CSV migration to attribute events with an unrecognized host. Returns
// ErrNotFound if no clients are registered.
func (s *EventStore) OldestClientID(ctx context.Context) (string, error) {
	var id string

	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM client ORDER BY created_at ASC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("store: oldest client: %w", err)
	}

	return id, nil
}

// ClientIDByHost returns the id of the client registered with the given
// host name, or ErrNotFound.
func (s *EventStore) ClientIDByHost(ctx context.Context, host string) (string, error) {
	var id string

	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM client WHERE host_name = ? LIMIT 1`, host).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("store: client by host %q: %w", host, err)
	}

	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

func placeholders(n int) string {
	out := make([]byte, 0, n*2)

	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}

		out = append(out, '?')
	}

	return string(out)
}

func toArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return args
}
