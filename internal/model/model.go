package model

import "time"

type Profile struct {
	UserID      string
	Username    string
	DisplayName string
	Bio         *string
	IsOnline    bool
	LastSeenAt  *time.Time
	CreatedAt   time.Time
}

type Role struct {
	UserID    string
	Role      string
	GrantedBy *string
	GrantedAt time.Time
}

type ModerationAction struct {
	ID           string
	TargetUserID *string
	TargetIP     *string
	ActionType   string
	Reason       string
	ExpiresAt    *time.Time
	CreatedBy    string
	CreatedAt    time.Time
	IsActive     bool
	IsFake       bool
}

type VIP struct {
	UserID    string
	GrantedBy string
	Reason    string
	GrantedAt time.Time
}

type SiteLock struct {
	ID         string
	IsLocked   bool
	LockReason *string
	LockedAt   *time.Time
	LockedBy   *string
}

type NaviMessage struct {
	ID        string
	Message   string
	Priority  string
	Target    string
	CreatedBy string
	CreatedAt time.Time
}

type NaviSetting struct {
	Key       string
	Value     string
	UpdatedBy string
	UpdatedAt time.Time
}

type InboxMessage struct {
	ID          string
	BroadcastID string
	RecipientID string
	Message     string
	MessageType string
	Priority    string
	CreatedAt   time.Time
}

type AdminPin struct {
	UserID         string
	PinHash        string
	FailedAttempts int
	LockedUntil    *time.Time
	UpdatedAt      time.Time
}

type AdminNote struct {
	ID           string
	TargetUserID string
	Note         string
	CreatedBy    string
	CreatedAt    time.Time
}

type TestEmergency struct {
	ID          string
	CreatedBy   string
	CreatedAt   time.Time
	EndedAt     *time.Time
	IsActive    bool
	OxygenLevel int
	PowerLevel  int
	ThreatLevel string
}

type MonitoringEvent struct {
	ID        string
	EventType string
	UserID    *string
	Details   string
	CreatedAt time.Time
}

type AccessLogEntry struct {
	ID        string
	AdminID   string
	Action    string
	Method    string
	IPAddress string
	CreatedAt time.Time
}

type Session struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// UserSummary is the joined row behind the users listing: profile plus
// moderation/VIP/role status resolved at query time.
type UserSummary struct {
	Profile      Profile
	Role         string
	IsBanned     bool
	WarningCount int
	IsVIP        bool
}

// RosterEntry is one elevated-role user in the admin roster.
type RosterEntry struct {
	UserID   string
	Username string
	Role     string
	HasPin   bool
	Online   bool
}
