package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/repository"
)

// Feature flags NAVI falls back to when nothing is stored.
var naviDefaults = map[string]string{
	"auto_moderation":   "true",
	"broadcast_enabled": "true",
	"flag_threshold":    "3",
	"greeting_enabled":  "true",
	"response_delay_ms": "400",
	"profanity_filter":  "true",
}

type userResponse struct {
	UserID       string  `json:"userId"`
	Username     string  `json:"username"`
	DisplayName  string  `json:"displayName"`
	Bio          *string `json:"bio,omitempty"`
	Role         string  `json:"role"`
	IsOnline     bool    `json:"isOnline"`
	LastSeen     *string `json:"lastSeen,omitempty"`
	IsBanned     bool    `json:"isBanned"`
	WarningCount int     `json:"warningCount"`
	IsVIP        bool    `json:"isVip"`
}

func (s *Server) getUsers(w http.ResponseWriter, r *http.Request, _ caller) {
	limit := 200
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	summaries, err := s.store.ListUserSummaries(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	users := make([]userResponse, 0, len(summaries))
	for _, u := range summaries {
		resp := userResponse{
			UserID:       u.Profile.UserID,
			Username:     u.Profile.Username,
			DisplayName:  u.Profile.DisplayName,
			Bio:          u.Profile.Bio,
			Role:         u.Role,
			IsOnline:     u.Profile.IsOnline,
			IsBanned:     u.IsBanned,
			WarningCount: u.WarningCount,
			IsVIP:        u.IsVIP,
		}
		if u.Profile.LastSeenAt != nil {
			seen := formatTime(*u.Profile.LastSeenAt)
			resp.LastSeen = &seen
		}
		users = append(users, resp)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

type moderationLogResponse struct {
	ID           string  `json:"id"`
	TargetUserID *string `json:"target_user_id,omitempty"`
	TargetIP     *string `json:"target_ip,omitempty"`
	ActionType   string  `json:"action_type"`
	Reason       string  `json:"reason"`
	ExpiresAt    *string `json:"expires_at,omitempty"`
	CreatedBy    string  `json:"created_by"`
	CreatedAt    string  `json:"created_at"`
	IsActive     bool    `json:"is_active"`
	IsFake       bool    `json:"is_fake"`
}

func (s *Server) getLogs(w http.ResponseWriter, r *http.Request, _ caller) {
	actions, err := s.store.ListModerationActions(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logs := make([]moderationLogResponse, 0, len(actions))
	for _, a := range actions {
		entry := moderationLogResponse{
			ID:           a.ID,
			TargetUserID: a.TargetUserID,
			TargetIP:     a.TargetIP,
			ActionType:   a.ActionType,
			Reason:       a.Reason,
			CreatedBy:    a.CreatedBy,
			CreatedAt:    formatTime(a.CreatedAt),
			IsActive:     a.IsActive,
			IsFake:       a.IsFake,
		}
		if a.ExpiresAt != nil {
			expires := formatTime(*a.ExpiresAt)
			entry.ExpiresAt = &expires
		}
		logs = append(logs, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

type vipResponse struct {
	UserID    string `json:"userId"`
	GrantedBy string `json:"grantedBy"`
	Reason    string `json:"reason"`
	GrantedAt string `json:"grantedAt"`
}

func (s *Server) getVIPs(w http.ResponseWriter, r *http.Request, _ caller) {
	vips, err := s.store.ListVIPs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]vipResponse, 0, len(vips))
	for _, v := range vips {
		resp = append(resp, vipResponse{
			UserID:    v.UserID,
			GrantedBy: v.GrantedBy,
			Reason:    v.Reason,
			GrantedAt: formatTime(v.GrantedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vips": resp})
}

func (s *Server) getSiteLockStatus(w http.ResponseWriter, r *http.Request, _ caller) {
	lock, err := s.store.GetSiteLock(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{"isLocked": lock.IsLocked}
	if lock.LockReason != nil {
		resp["lockReason"] = *lock.LockReason
	}
	if lock.LockedAt != nil {
		resp["lockedAt"] = formatTime(*lock.LockedAt)
	}
	if lock.LockedBy != nil {
		resp["lockedBy"] = *lock.LockedBy
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getNaviMessages(w http.ResponseWriter, r *http.Request, _ caller) {
	messages, err := s.store.ListNaviMessages(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, map[string]interface{}{
			"id":        m.ID,
			"message":   m.Message,
			"priority":  m.Priority,
			"target":    m.Target,
			"createdBy": m.CreatedBy,
			"createdAt": formatTime(m.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": resp})
}

func (s *Server) getNaviSettings(w http.ResponseWriter, r *http.Request, _ caller) {
	stored, err := s.store.GetNaviSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	settings := make(map[string]string, len(naviDefaults))
	for key, value := range naviDefaults {
		settings[key] = value
	}
	for _, setting := range stored {
		settings[setting.Key] = setting.Value
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": settings})
}

func (s *Server) getMonitoringEvents(w http.ResponseWriter, r *http.Request, _ caller) {
	since := time.Now().UTC().Add(-5 * time.Minute)
	events, err := s.store.ListMonitoringEvents(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		entry := map[string]interface{}{
			"id":        e.ID,
			"eventType": e.EventType,
			"details":   e.Details,
			"createdAt": formatTime(e.CreatedAt),
		}
		if e.UserID != nil {
			entry["userId"] = *e.UserID
		}
		resp = append(resp, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": resp})
}

func (s *Server) getPinStatus(w http.ResponseWriter, r *http.Request, c caller) {
	pin, err := s.store.GetAdminPin(r.Context(), c.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"hasPin": false, "locked": false})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	locked := pin.LockedUntil != nil && pin.LockedUntil.After(time.Now().UTC())
	resp := map[string]interface{}{
		"hasPin":         true,
		"locked":         locked,
		"failedAttempts": pin.FailedAttempts,
	}
	if locked {
		resp["lockedUntil"] = formatTime(*pin.LockedUntil)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getNotes(w http.ResponseWriter, r *http.Request, _ caller) {
	targetUserID := r.URL.Query().Get("target_user_id")
	if targetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing target_user_id")
		return
	}
	notes, err := s.store.ListAdminNotes(r.Context(), targetUserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]interface{}, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, map[string]interface{}{
			"id":           n.ID,
			"targetUserId": n.TargetUserID,
			"note":         n.Note,
			"createdBy":    n.CreatedBy,
			"createdAt":    formatTime(n.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": resp})
}

func (s *Server) getAdminRoster(w http.ResponseWriter, r *http.Request, _ caller) {
	roster, err := s.store.ListAdminRoster(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]interface{}, 0, len(roster))
	for _, entry := range roster {
		resp = append(resp, map[string]interface{}{
			"userId":   entry.UserID,
			"username": entry.Username,
			"role":     entry.Role,
			"hasPin":   entry.HasPin,
			"online":   s.isOnline(r.Context(), entry.UserID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"admins": resp})
}

func (s *Server) getAccessLogs(w http.ResponseWriter, r *http.Request, _ caller) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := s.store.ListAccessLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, map[string]interface{}{
			"id":        e.ID,
			"adminId":   e.AdminID,
			"action":    e.Action,
			"method":    e.Method,
			"ipAddress": e.IPAddress,
			"createdAt": formatTime(e.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accessLogs": resp})
}
