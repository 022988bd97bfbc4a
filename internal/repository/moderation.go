package repository

import (
	"context"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
)

func (s *Store) InsertModerationAction(ctx context.Context, action model.ModerationAction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO moderation_actions (id, target_user_id, target_ip, action_type, reason, expires_at, created_by, created_at, is_active, is_fake)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, action.ID, action.TargetUserID, action.TargetIP, action.ActionType, action.Reason,
		action.ExpiresAt, action.CreatedBy, action.CreatedAt, action.IsActive, action.IsFake)
	return err
}

func (s *Store) InsertModerationActions(ctx context.Context, actions []model.ModerationAction) (int64, error) {
	var inserted int64
	for _, action := range actions {
		if err := s.InsertModerationAction(ctx, action); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListModerationActions(ctx context.Context, limit int) ([]model.ModerationAction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, target_user_id, target_ip, action_type, reason, expires_at, created_by, created_at, is_active, is_fake
		FROM moderation_actions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []model.ModerationAction
	for rows.Next() {
		var a model.ModerationAction
		if err := rows.Scan(&a.ID, &a.TargetUserID, &a.TargetIP, &a.ActionType, &a.Reason,
			&a.ExpiresAt, &a.CreatedBy, &a.CreatedAt, &a.IsActive, &a.IsFake); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// DeactivateBans flips a user's active ban rows to inactive. History is
// append-only, nothing is deleted.
func (s *Store) DeactivateBans(ctx context.Context, targetUserID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE moderation_actions
		SET is_active = false
		WHERE target_user_id = $1
		  AND action_type IN ('ban', 'temp_ban', 'perm_ban')
		  AND is_active
	`, targetUserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeactivateWarning(ctx context.Context, warningID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE moderation_actions
		SET is_active = false
		WHERE id = $1 AND action_type = 'warn' AND is_active
	`, warningID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) HasActiveBan(ctx context.Context, targetUserID string, now time.Time) (bool, error) {
	var banned bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM moderation_actions
			WHERE target_user_id = $1
			  AND action_type IN ('ban', 'temp_ban', 'perm_ban')
			  AND is_active
			  AND (expires_at IS NULL OR expires_at > $2)
		)
	`, targetUserID, now).Scan(&banned)
	return banned, err
}

func (s *Store) ClearAllBans(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE moderation_actions
		SET is_active = false
		WHERE action_type IN ('ban', 'temp_ban', 'perm_ban', 'ip_ban') AND is_active
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ClearAllWarnings(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE moderation_actions
		SET is_active = false
		WHERE action_type = 'warn' AND is_active
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeactivateExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE moderation_actions
		SET is_active = false
		WHERE action_type IN ('ban', 'temp_ban', 'perm_ban', 'ip_ban')
		  AND is_active
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GrantVIP(ctx context.Context, vip model.VIP) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vips (user_id, granted_by, reason, granted_at)
		VALUES ($1, $2, $3, $4)
	`, vip.UserID, vip.GrantedBy, vip.Reason, vip.GrantedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GrantVIPs applies the bulk variant, skipping users who already hold VIP.
func (s *Store) GrantVIPs(ctx context.Context, vips []model.VIP) (int64, error) {
	var granted int64
	for _, vip := range vips {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO vips (user_id, granted_by, reason, granted_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO NOTHING
		`, vip.UserID, vip.GrantedBy, vip.Reason, vip.GrantedAt)
		if err != nil {
			return granted, err
		}
		granted += tag.RowsAffected()
	}
	return granted, nil
}

func (s *Store) RevokeVIP(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vips WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListVIPs(ctx context.Context) ([]model.VIP, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, granted_by, reason, granted_at
		FROM vips
		ORDER BY granted_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vips []model.VIP
	for rows.Next() {
		var v model.VIP
		if err := rows.Scan(&v.UserID, &v.GrantedBy, &v.Reason, &v.GrantedAt); err != nil {
			return nil, err
		}
		vips = append(vips, v)
	}
	return vips, rows.Err()
}

func (s *Store) GetSiteLock(ctx context.Context) (model.SiteLock, error) {
	lock := model.SiteLock{ID: "global"}
	row := s.pool.QueryRow(ctx, `
		SELECT is_locked, lock_reason, locked_at, locked_by
		FROM site_locks
		WHERE id = 'global'
	`)
	err := row.Scan(&lock.IsLocked, &lock.LockReason, &lock.LockedAt, &lock.LockedBy)
	if err != nil {
		// An absent singleton row reads as unlocked.
		if wrapNotFound(err) == ErrNotFound {
			return lock, nil
		}
		return lock, err
	}
	return lock, nil
}

func (s *Store) SetSiteLock(ctx context.Context, lock model.SiteLock) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO site_locks (id, is_locked, lock_reason, locked_at, locked_by)
		VALUES ('global', $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET is_locked = EXCLUDED.is_locked,
			lock_reason = EXCLUDED.lock_reason,
			locked_at = EXCLUDED.locked_at,
			locked_by = EXCLUDED.locked_by
	`, lock.IsLocked, lock.LockReason, lock.LockedAt, lock.LockedBy)
	return err
}
