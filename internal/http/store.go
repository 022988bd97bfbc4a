package http

import (
	"context"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
)

// Narrow per-entity store interfaces. The server depends on these rather than
// the concrete repository so the dispatch and authorization logic is testable
// against an in-memory fake.

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	ListUserSummaries(ctx context.Context, limit int) ([]model.UserSummary, error)
	ListRecipients(ctx context.Context, target string) ([]string, error)
}

type RoleStore interface {
	GetRole(ctx context.Context, userID string) (model.Role, error)
	SetRole(ctx context.Context, userID, role, grantedBy string) error
	RemoveRole(ctx context.Context, userID string) (bool, error)
	RevokeAllTrialAdmins(ctx context.Context) (int64, error)
	ListAdminRoster(ctx context.Context) ([]model.RosterEntry, error)
}

type ModerationStore interface {
	InsertModerationAction(ctx context.Context, action model.ModerationAction) error
	InsertModerationActions(ctx context.Context, actions []model.ModerationAction) (int64, error)
	ListModerationActions(ctx context.Context, limit int) ([]model.ModerationAction, error)
	DeactivateBans(ctx context.Context, targetUserID string) (int64, error)
	DeactivateWarning(ctx context.Context, warningID string) (bool, error)
	ClearAllBans(ctx context.Context) (int64, error)
	ClearAllWarnings(ctx context.Context) (int64, error)
}

type VIPStore interface {
	GrantVIP(ctx context.Context, vip model.VIP) error
	GrantVIPs(ctx context.Context, vips []model.VIP) (int64, error)
	RevokeVIP(ctx context.Context, userID string) (bool, error)
	ListVIPs(ctx context.Context) ([]model.VIP, error)
}

type SiteLockStore interface {
	GetSiteLock(ctx context.Context) (model.SiteLock, error)
	SetSiteLock(ctx context.Context, lock model.SiteLock) error
}

type NaviStore interface {
	InsertNaviMessage(ctx context.Context, msg model.NaviMessage) error
	ListNaviMessages(ctx context.Context, limit int) ([]model.NaviMessage, error)
	InsertInboxMessage(ctx context.Context, msg model.InboxMessage) (bool, error)
	GetNaviSettings(ctx context.Context) ([]model.NaviSetting, error)
	SetNaviSetting(ctx context.Context, setting model.NaviSetting) error
	ResetNaviSettings(ctx context.Context) (int64, error)
}

type PinStore interface {
	GetAdminPin(ctx context.Context, userID string) (model.AdminPin, error)
	UpsertAdminPin(ctx context.Context, pin model.AdminPin) error
	RecordPinFailure(ctx context.Context, userID string, attempts int, lockedUntil *time.Time) error
	ResetPinFailures(ctx context.Context, userID string) error
	DeleteAdminPin(ctx context.Context, userID string) (bool, error)
	DeleteAllAdminPins(ctx context.Context) (int64, error)
}

type NoteStore interface {
	InsertAdminNote(ctx context.Context, note model.AdminNote) error
	ListAdminNotes(ctx context.Context, targetUserID string) ([]model.AdminNote, error)
}

type EmergencyStore interface {
	LatestTestEmergency(ctx context.Context, createdBy string) (model.TestEmergency, error)
	InsertTestEmergency(ctx context.Context, emergency model.TestEmergency) error
	EndTestEmergency(ctx context.Context, id string, endedAt time.Time) (bool, error)
}

type AuditStore interface {
	ListMonitoringEvents(ctx context.Context, since time.Time) ([]model.MonitoringEvent, error)
	InsertAccessLog(ctx context.Context, entry model.AccessLogEntry) error
	ListAccessLogs(ctx context.Context, limit int) ([]model.AccessLogEntry, error)
}

type AccountStore interface {
	RevokeSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
	CreatePasswordReset(ctx context.Context, reset model.PasswordReset) error
}

type Store interface {
	ProfileStore
	RoleStore
	ModerationStore
	VIPStore
	SiteLockStore
	NaviStore
	PinStore
	NoteStore
	EmergencyStore
	AuditStore
	AccountStore
}
