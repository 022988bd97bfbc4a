package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
)

// ErrDuplicate is returned when an insert hits a uniqueness constraint,
// e.g. granting VIP to a user who already has it.
var ErrDuplicate = errors.New("duplicate row")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func wrapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, username, display_name, bio, is_online, last_seen_at, created_at
		FROM profiles
		WHERE user_id = $1
	`, userID)
	err := row.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.Bio, &p.IsOnline, &p.LastSeenAt, &p.CreatedAt)
	return p, wrapNotFound(err)
}

func (s *Store) GetRole(ctx context.Context, userID string) (model.Role, error) {
	var r model.Role
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, role, granted_by, granted_at
		FROM user_roles
		WHERE user_id = $1
	`, userID)
	err := row.Scan(&r.UserID, &r.Role, &r.GrantedBy, &r.GrantedAt)
	return r, wrapNotFound(err)
}

// SetRole upserts the single elevated role row a user may hold.
func (s *Store) SetRole(ctx context.Context, userID, role, grantedBy string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role, granted_by, granted_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET role = EXCLUDED.role, granted_by = EXCLUDED.granted_by, granted_at = EXCLUDED.granted_at
	`, userID, role, grantedBy)
	return err
}

func (s *Store) RemoveRole(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RevokeAllTrialAdmins(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE role = 'trial_admin'`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListUserSummaries(ctx context.Context, limit int) ([]model.UserSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			p.user_id, p.username, p.display_name, p.bio, p.is_online, p.last_seen_at, p.created_at,
			COALESCE(r.role, 'user'),
			EXISTS (
				SELECT 1 FROM moderation_actions b
				WHERE b.target_user_id = p.user_id
				  AND b.action_type IN ('ban', 'temp_ban', 'perm_ban')
				  AND b.is_active
				  AND (b.expires_at IS NULL OR b.expires_at > now())
			),
			(
				SELECT count(*) FROM moderation_actions w
				WHERE w.target_user_id = p.user_id AND w.action_type = 'warn' AND w.is_active
			),
			EXISTS (SELECT 1 FROM vips v WHERE v.user_id = p.user_id)
		FROM profiles p
		LEFT JOIN user_roles r ON r.user_id = p.user_id
		ORDER BY p.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.UserSummary
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(
			&u.Profile.UserID, &u.Profile.Username, &u.Profile.DisplayName, &u.Profile.Bio,
			&u.Profile.IsOnline, &u.Profile.LastSeenAt, &u.Profile.CreatedAt,
			&u.Role, &u.IsBanned, &u.WarningCount, &u.IsVIP,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, u)
	}
	return summaries, rows.Err()
}

func (s *Store) ListAdminRoster(ctx context.Context) ([]model.RosterEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.user_id, p.username, r.role,
			EXISTS (SELECT 1 FROM admin_pins ap WHERE ap.user_id = r.user_id)
		FROM user_roles r
		JOIN profiles p ON p.user_id = r.user_id
		WHERE r.role IN ('trial_admin', 'admin', 'creator')
		ORDER BY p.username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []model.RosterEntry
	for rows.Next() {
		var entry model.RosterEntry
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.Role, &entry.HasPin); err != nil {
			return nil, err
		}
		roster = append(roster, entry)
	}
	return roster, rows.Err()
}

// ListRecipients resolves a broadcast audience snapshot at send time.
func (s *Store) ListRecipients(ctx context.Context, target string) ([]string, error) {
	var query string
	switch target {
	case "vips":
		query = `SELECT user_id FROM vips`
	case "admins":
		query = `SELECT user_id FROM user_roles WHERE role IN ('trial_admin', 'admin', 'creator')`
	default:
		query = `SELECT user_id FROM profiles`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) RevokeSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL
	`, revokedAt, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CreatePasswordReset(ctx context.Context, reset model.PasswordReset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, created_by, created_at, expires_at, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, reset.ID, reset.UserID, reset.TokenHash, reset.CreatedBy, reset.CreatedAt, reset.ExpiresAt, reset.UsedAt)
	return err
}
