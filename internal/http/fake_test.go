package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/repository"
)

// fakeStore is an in-memory Store used by the handler tests.
type fakeStore struct {
	mu sync.Mutex

	profiles     map[string]model.Profile
	roles        map[string]model.Role
	actions      []model.ModerationAction
	vips         map[string]model.VIP
	siteLock     model.SiteLock
	naviMessages []model.NaviMessage
	inbox        map[string]model.InboxMessage
	naviSettings map[string]model.NaviSetting
	pins         map[string]model.AdminPin
	notes        []model.AdminNote
	emergencies  []model.TestEmergency
	monitoring   []model.MonitoringEvent
	accessLogs   []model.AccessLogEntry
	sessions     []model.Session
	resets       []model.PasswordReset
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:     make(map[string]model.Profile),
		roles:        make(map[string]model.Role),
		vips:         make(map[string]model.VIP),
		siteLock:     model.SiteLock{ID: "global"},
		inbox:        make(map[string]model.InboxMessage),
		naviSettings: make(map[string]model.NaviSetting),
		pins:         make(map[string]model.AdminPin),
	}
}

func inboxKey(broadcastID, recipientID string) string {
	return broadcastID + "|" + recipientID
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListUserSummaries(_ context.Context, limit int) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var summaries []model.UserSummary
	for _, p := range f.profiles {
		s := model.UserSummary{Profile: p, Role: "user"}
		if r, ok := f.roles[p.UserID]; ok {
			s.Role = r.Role
		}
		if _, ok := f.vips[p.UserID]; ok {
			s.IsVIP = true
		}
		for _, a := range f.actions {
			if a.TargetUserID == nil || *a.TargetUserID != p.UserID || !a.IsActive {
				continue
			}
			switch a.ActionType {
			case "warn":
				s.WarningCount++
			case "ban", "temp_ban", "perm_ban":
				s.IsBanned = true
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Profile.UserID < summaries[j].Profile.UserID
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (f *fakeStore) ListRecipients(_ context.Context, target string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	switch target {
	case "vips":
		for id := range f.vips {
			ids = append(ids, id)
		}
	case "admins":
		for id := range f.roles {
			ids = append(ids, id)
		}
	default:
		for id := range f.profiles {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) GetRole(_ context.Context, userID string) (model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[userID]
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) SetRole(_ context.Context, userID, role, grantedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[userID] = model.Role{UserID: userID, Role: role, GrantedBy: &grantedBy, GrantedAt: time.Now().UTC()}
	return nil
}

func (f *fakeStore) RemoveRole(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[userID]; !ok {
		return false, nil
	}
	delete(f.roles, userID)
	return true, nil
}

func (f *fakeStore) RevokeAllTrialAdmins(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var revoked int64
	for id, r := range f.roles {
		if r.Role == "trial_admin" {
			delete(f.roles, id)
			revoked++
		}
	}
	return revoked, nil
}

func (f *fakeStore) ListAdminRoster(_ context.Context) ([]model.RosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var roster []model.RosterEntry
	for id, r := range f.roles {
		entry := model.RosterEntry{UserID: id, Role: r.Role}
		if p, ok := f.profiles[id]; ok {
			entry.Username = p.Username
		}
		_, entry.HasPin = f.pins[id]
		roster = append(roster, entry)
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].UserID < roster[j].UserID })
	return roster, nil
}

func (f *fakeStore) InsertModerationAction(_ context.Context, action model.ModerationAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeStore) InsertModerationActions(_ context.Context, actions []model.ModerationAction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, actions...)
	return int64(len(actions)), nil
}

func (f *fakeStore) ListModerationActions(_ context.Context, limit int) ([]model.ModerationAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]model.ModerationAction, len(f.actions))
	copy(actions, f.actions)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].CreatedAt.After(actions[j].CreatedAt) })
	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

func isBanType(actionType string) bool {
	switch actionType {
	case "ban", "temp_ban", "perm_ban":
		return true
	default:
		return false
	}
}

func (f *fakeStore) DeactivateBans(_ context.Context, targetUserID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var lifted int64
	for i, a := range f.actions {
		if a.TargetUserID != nil && *a.TargetUserID == targetUserID && isBanType(a.ActionType) && a.IsActive {
			f.actions[i].IsActive = false
			lifted++
		}
	}
	return lifted, nil
}

func (f *fakeStore) DeactivateWarning(_ context.Context, warningID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.actions {
		if a.ID == warningID && a.ActionType == "warn" && a.IsActive {
			f.actions[i].IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ClearAllBans(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cleared int64
	for i, a := range f.actions {
		if (isBanType(a.ActionType) || a.ActionType == "ip_ban") && a.IsActive {
			f.actions[i].IsActive = false
			cleared++
		}
	}
	return cleared, nil
}

func (f *fakeStore) ClearAllWarnings(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cleared int64
	for i, a := range f.actions {
		if a.ActionType == "warn" && a.IsActive {
			f.actions[i].IsActive = false
			cleared++
		}
	}
	return cleared, nil
}

func (f *fakeStore) GrantVIP(_ context.Context, vip model.VIP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vips[vip.UserID]; ok {
		return repository.ErrDuplicate
	}
	f.vips[vip.UserID] = vip
	return nil
}

func (f *fakeStore) GrantVIPs(_ context.Context, vips []model.VIP) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var granted int64
	for _, vip := range vips {
		if _, ok := f.vips[vip.UserID]; ok {
			continue
		}
		f.vips[vip.UserID] = vip
		granted++
	}
	return granted, nil
}

func (f *fakeStore) RevokeVIP(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vips[userID]; !ok {
		return false, nil
	}
	delete(f.vips, userID)
	return true, nil
}

func (f *fakeStore) ListVIPs(_ context.Context) ([]model.VIP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var vips []model.VIP
	for _, v := range f.vips {
		vips = append(vips, v)
	}
	sort.Slice(vips, func(i, j int) bool { return vips[i].UserID < vips[j].UserID })
	return vips, nil
}

func (f *fakeStore) GetSiteLock(_ context.Context) (model.SiteLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.siteLock, nil
}

func (f *fakeStore) SetSiteLock(_ context.Context, lock model.SiteLock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.siteLock = lock
	return nil
}

func (f *fakeStore) InsertNaviMessage(_ context.Context, msg model.NaviMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.naviMessages = append(f.naviMessages, msg)
	return nil
}

func (f *fakeStore) ListNaviMessages(_ context.Context, limit int) ([]model.NaviMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	messages := make([]model.NaviMessage, len(f.naviMessages))
	copy(messages, f.naviMessages)
	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (f *fakeStore) InsertInboxMessage(_ context.Context, msg model.InboxMessage) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := inboxKey(msg.BroadcastID, msg.RecipientID)
	if _, ok := f.inbox[key]; ok {
		return false, nil
	}
	f.inbox[key] = msg
	return true, nil
}

func (f *fakeStore) GetNaviSettings(_ context.Context) ([]model.NaviSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var settings []model.NaviSetting
	for _, s := range f.naviSettings {
		settings = append(settings, s)
	}
	return settings, nil
}

func (f *fakeStore) SetNaviSetting(_ context.Context, setting model.NaviSetting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.naviSettings[setting.Key] = setting
	return nil
}

func (f *fakeStore) ResetNaviSettings(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cleared := int64(len(f.naviSettings))
	f.naviSettings = make(map[string]model.NaviSetting)
	return cleared, nil
}

func (f *fakeStore) GetAdminPin(_ context.Context, userID string) (model.AdminPin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pin, ok := f.pins[userID]
	if !ok {
		return model.AdminPin{}, repository.ErrNotFound
	}
	return pin, nil
}

func (f *fakeStore) UpsertAdminPin(_ context.Context, pin model.AdminPin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins[pin.UserID] = pin
	return nil
}

func (f *fakeStore) RecordPinFailure(_ context.Context, userID string, attempts int, lockedUntil *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pin := f.pins[userID]
	pin.FailedAttempts = attempts
	pin.LockedUntil = lockedUntil
	f.pins[userID] = pin
	return nil
}

func (f *fakeStore) ResetPinFailures(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pin := f.pins[userID]
	pin.FailedAttempts = 0
	pin.LockedUntil = nil
	f.pins[userID] = pin
	return nil
}

func (f *fakeStore) DeleteAdminPin(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pins[userID]; !ok {
		return false, nil
	}
	delete(f.pins, userID)
	return true, nil
}

func (f *fakeStore) DeleteAllAdminPins(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := int64(len(f.pins))
	f.pins = make(map[string]model.AdminPin)
	return deleted, nil
}

func (f *fakeStore) InsertAdminNote(_ context.Context, note model.AdminNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note)
	return nil
}

func (f *fakeStore) ListAdminNotes(_ context.Context, targetUserID string) ([]model.AdminNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var notes []model.AdminNote
	for _, n := range f.notes {
		if n.TargetUserID == targetUserID {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (f *fakeStore) LatestTestEmergency(_ context.Context, createdBy string) (model.TestEmergency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.TestEmergency
	for i := range f.emergencies {
		e := &f.emergencies[i]
		if e.CreatedBy != createdBy {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return model.TestEmergency{}, repository.ErrNotFound
	}
	return *latest, nil
}

func (f *fakeStore) InsertTestEmergency(_ context.Context, e model.TestEmergency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emergencies = append(f.emergencies, e)
	return nil
}

func (f *fakeStore) EndTestEmergency(_ context.Context, id string, endedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.emergencies {
		if e.ID == id && e.IsActive {
			f.emergencies[i].IsActive = false
			f.emergencies[i].EndedAt = &endedAt
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListMonitoringEvents(_ context.Context, since time.Time) ([]model.MonitoringEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []model.MonitoringEvent
	for _, e := range f.monitoring {
		if !e.CreatedAt.Before(since) {
			events = append(events, e)
		}
	}
	return events, nil
}

func (f *fakeStore) InsertAccessLog(_ context.Context, entry model.AccessLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessLogs = append(f.accessLogs, entry)
	return nil
}

func (f *fakeStore) ListAccessLogs(_ context.Context, limit int) ([]model.AccessLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]model.AccessLogEntry, len(f.accessLogs))
	copy(entries, f.accessLogs)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeStore) RevokeSessionsByUser(_ context.Context, userID string, revokedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var revoked int64
	for i, s := range f.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			at := revokedAt
			f.sessions[i].RevokedAt = &at
			revoked++
		}
	}
	return revoked, nil
}

func (f *fakeStore) CreatePasswordReset(_ context.Context, reset model.PasswordReset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, reset)
	return nil
}
