package repository

import (
	"context"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
)

func (s *Store) InsertNaviMessage(ctx context.Context, msg model.NaviMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO navi_messages (id, message, priority, target, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.Message, msg.Priority, msg.Target, msg.CreatedBy, msg.CreatedAt)
	return err
}

func (s *Store) ListNaviMessages(ctx context.Context, limit int) ([]model.NaviMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, message, priority, target, created_by, created_at
		FROM navi_messages
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.NaviMessage
	for rows.Next() {
		var m model.NaviMessage
		if err := rows.Scan(&m.ID, &m.Message, &m.Priority, &m.Target, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// InsertInboxMessage fans one broadcast row out to one recipient. The
// (broadcast_id, recipient_id) key makes redelivery idempotent; the bool
// reports whether a new row was written.
func (s *Store) InsertInboxMessage(ctx context.Context, msg model.InboxMessage) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, broadcast_id, recipient_id, message, message_type, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (broadcast_id, recipient_id) DO NOTHING
	`, msg.ID, msg.BroadcastID, msg.RecipientID, msg.Message, msg.MessageType, msg.Priority, msg.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) GetNaviSettings(ctx context.Context) ([]model.NaviSetting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, value, updated_by, updated_at
		FROM navi_settings
		ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []model.NaviSetting
	for rows.Next() {
		var setting model.NaviSetting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedBy, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

func (s *Store) SetNaviSetting(ctx context.Context, setting model.NaviSetting) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO navi_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
	`, setting.Key, setting.Value, setting.UpdatedBy, setting.UpdatedAt)
	return err
}

func (s *Store) ResetNaviSettings(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM navi_settings`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
