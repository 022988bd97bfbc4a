package repository

import (
	"context"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
)

func (s *Store) GetAdminPin(ctx context.Context, userID string) (model.AdminPin, error) {
	var pin model.AdminPin
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, pin_hash, failed_attempts, locked_until, updated_at
		FROM admin_pins
		WHERE user_id = $1
	`, userID)
	err := row.Scan(&pin.UserID, &pin.PinHash, &pin.FailedAttempts, &pin.LockedUntil, &pin.UpdatedAt)
	return pin, wrapNotFound(err)
}

func (s *Store) UpsertAdminPin(ctx context.Context, pin model.AdminPin) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_pins (user_id, pin_hash, failed_attempts, locked_until, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET pin_hash = EXCLUDED.pin_hash,
			failed_attempts = EXCLUDED.failed_attempts,
			locked_until = EXCLUDED.locked_until,
			updated_at = EXCLUDED.updated_at
	`, pin.UserID, pin.PinHash, pin.FailedAttempts, pin.LockedUntil, pin.UpdatedAt)
	return err
}

func (s *Store) RecordPinFailure(ctx context.Context, userID string, attempts int, lockedUntil *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE admin_pins
		SET failed_attempts = $1, locked_until = $2, updated_at = now()
		WHERE user_id = $3
	`, attempts, lockedUntil, userID)
	return err
}

func (s *Store) ResetPinFailures(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE admin_pins
		SET failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE user_id = $1
	`, userID)
	return err
}

func (s *Store) DeleteAdminPin(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM admin_pins WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteAllAdminPins(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM admin_pins`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) InsertAdminNote(ctx context.Context, note model.AdminNote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_notes (id, target_user_id, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, note.ID, note.TargetUserID, note.Note, note.CreatedBy, note.CreatedAt)
	return err
}

func (s *Store) ListAdminNotes(ctx context.Context, targetUserID string) ([]model.AdminNote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, target_user_id, note, created_by, created_at
		FROM admin_notes
		WHERE target_user_id = $1
		ORDER BY created_at DESC
	`, targetUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []model.AdminNote
	for rows.Next() {
		var n model.AdminNote
		if err := rows.Scan(&n.ID, &n.TargetUserID, &n.Note, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// LatestTestEmergency returns the most recent drill started by an admin,
// used to enforce the cooldown window.
func (s *Store) LatestTestEmergency(ctx context.Context, createdBy string) (model.TestEmergency, error) {
	var e model.TestEmergency
	row := s.pool.QueryRow(ctx, `
		SELECT id, created_by, created_at, ended_at, is_active, oxygen_level, power_level, threat_level
		FROM test_emergencies
		WHERE created_by = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, createdBy)
	err := row.Scan(&e.ID, &e.CreatedBy, &e.CreatedAt, &e.EndedAt, &e.IsActive, &e.OxygenLevel, &e.PowerLevel, &e.ThreatLevel)
	return e, wrapNotFound(err)
}

func (s *Store) InsertTestEmergency(ctx context.Context, e model.TestEmergency) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO test_emergencies (id, created_by, created_at, ended_at, is_active, oxygen_level, power_level, threat_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.CreatedBy, e.CreatedAt, e.EndedAt, e.IsActive, e.OxygenLevel, e.PowerLevel, e.ThreatLevel)
	return err
}

func (s *Store) EndTestEmergency(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE test_emergencies
		SET is_active = false, ended_at = $1
		WHERE id = $2 AND is_active
	`, endedAt, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListMonitoringEvents(ctx context.Context, since time.Time) ([]model.MonitoringEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_type, user_id, details, created_at
		FROM monitoring_events
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.MonitoringEvent
	for rows.Next() {
		var e model.MonitoringEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.UserID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) InsertAccessLog(ctx context.Context, entry model.AccessLogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_access_log (id, admin_id, action, method, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.AdminID, entry.Action, entry.Method, entry.IPAddress, entry.CreatedAt)
	return err
}

func (s *Store) ListAccessLogs(ctx context.Context, limit int) ([]model.AccessLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, admin_id, action, method, ip_address, created_at
		FROM admin_access_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AccessLogEntry
	for rows.Next() {
		var e model.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.Method, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
