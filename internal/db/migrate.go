package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id uuid PRIMARY KEY,
		username text NOT NULL UNIQUE,
		display_name text NOT NULL DEFAULT '',
		bio text,
		is_online boolean NOT NULL DEFAULT false,
		last_seen_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id uuid PRIMARY KEY REFERENCES profiles (user_id) ON DELETE CASCADE,
		role text NOT NULL,
		granted_by uuid,
		granted_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS moderation_actions (
		id uuid PRIMARY KEY,
		target_user_id uuid,
		target_ip text,
		action_type text NOT NULL,
		reason text NOT NULL DEFAULT '',
		expires_at timestamptz,
		created_by uuid NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		is_active boolean NOT NULL DEFAULT true,
		is_fake boolean NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_moderation_actions_target
		ON moderation_actions (target_user_id, action_type, is_active)`,
	`CREATE TABLE IF NOT EXISTS vips (
		user_id uuid PRIMARY KEY,
		granted_by uuid NOT NULL,
		reason text NOT NULL DEFAULT '',
		granted_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS site_locks (
		id text PRIMARY KEY,
		is_locked boolean NOT NULL DEFAULT false,
		lock_reason text,
		locked_at timestamptz,
		locked_by uuid
	)`,
	`CREATE TABLE IF NOT EXISTS navi_messages (
		id uuid PRIMARY KEY,
		message text NOT NULL,
		priority text NOT NULL DEFAULT 'info',
		target text NOT NULL DEFAULT 'all',
		created_by uuid NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS navi_settings (
		key text PRIMARY KEY,
		value text NOT NULL,
		updated_by uuid NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id uuid PRIMARY KEY,
		broadcast_id uuid NOT NULL,
		recipient_id uuid NOT NULL,
		message text NOT NULL,
		message_type text NOT NULL,
		priority text NOT NULL DEFAULT 'info',
		created_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (broadcast_id, recipient_id)
	)`,
	`CREATE TABLE IF NOT EXISTS admin_pins (
		user_id uuid PRIMARY KEY,
		pin_hash text NOT NULL,
		failed_attempts integer NOT NULL DEFAULT 0,
		locked_until timestamptz,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS admin_notes (
		id uuid PRIMARY KEY,
		target_user_id uuid NOT NULL,
		note text NOT NULL,
		created_by uuid NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS test_emergencies (
		id uuid PRIMARY KEY,
		created_by uuid NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		ended_at timestamptz,
		is_active boolean NOT NULL DEFAULT true,
		oxygen_level integer NOT NULL,
		power_level integer NOT NULL,
		threat_level text NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS monitoring_events (
		id uuid PRIMARY KEY,
		event_type text NOT NULL,
		user_id uuid,
		details text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS admin_access_log (
		id uuid PRIMARY KEY,
		admin_id uuid NOT NULL,
		action text NOT NULL,
		method text NOT NULL,
		ip_address text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id uuid PRIMARY KEY,
		user_id uuid NOT NULL,
		token_hash text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		expires_at timestamptz NOT NULL,
		revoked_at timestamptz
	)`,
	`CREATE TABLE IF NOT EXISTS password_resets (
		id uuid PRIMARY KEY,
		user_id uuid NOT NULL,
		token_hash text NOT NULL,
		created_by uuid NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		expires_at timestamptz NOT NULL,
		used_at timestamptz
	)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
