package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/crypto"
	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/repository"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

var banDurations = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

func decodeBody(body []byte, out interface{}) error {
	return json.Unmarshal(body, out)
}

// Moderation

type warnRequest struct {
	TargetUserID string `json:"targetUserId"`
	Reason       string `json:"reason"`
	IsFake       bool   `json:"isFake"`
}

func (s *Server) postWarn(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req warnRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	action := model.ModerationAction{
		ID:           newID(),
		TargetUserID: &req.TargetUserID,
		ActionType:   "warn",
		Reason:       req.Reason,
		CreatedBy:    c.UserID,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
		IsFake:       req.IsFake,
	}
	if err := s.store.InsertModerationAction(r.Context(), action); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "actionId": action.ID})
}

type banRequest struct {
	TargetUserID string `json:"targetUserId"`
	Reason       string `json:"reason"`
	IsPermanent  bool   `json:"isPermanent"`
	Duration     string `json:"duration"`
	IsFake       bool   `json:"isFake"`
}

// resolveBanExpiry maps the duration enum to an expiry and applies the
// trial-admin limits: no permanent bans, nothing past 24 hours.
func resolveBanExpiry(c caller, isPermanent bool, duration string, now time.Time) (*time.Time, string, int) {
	if isPermanent {
		if c.isTrial() {
			return nil, "Trial admins cannot issue permanent bans", http.StatusForbidden
		}
		return nil, "", 0
	}
	length, ok := banDurations[duration]
	if !ok {
		return nil, "Invalid ban duration", http.StatusBadRequest
	}
	if c.isTrial() && length > 24*time.Hour {
		return nil, "Trial admins cannot issue bans longer than 24 hours", http.StatusForbidden
	}
	expires := now.Add(length)
	return &expires, "", 0
}

func (s *Server) postBan(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req banRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	now := time.Now().UTC()
	expiresAt, msg, status := resolveBanExpiry(c, req.IsPermanent, req.Duration, now)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	actionType := "temp_ban"
	if req.IsPermanent {
		actionType = "perm_ban"
	}
	action := model.ModerationAction{
		ID:           newID(),
		TargetUserID: &req.TargetUserID,
		ActionType:   actionType,
		Reason:       req.Reason,
		ExpiresAt:    expiresAt,
		CreatedBy:    c.UserID,
		CreatedAt:    now,
		IsActive:     true,
		IsFake:       req.IsFake,
	}
	if err := s.store.InsertModerationAction(r.Context(), action); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{"success": true, "actionId": action.ID}
	if expiresAt != nil {
		resp["expiresAt"] = formatTime(*expiresAt)
	}
	writeJSON(w, http.StatusOK, resp)
}

type unbanRequest struct {
	TargetUserID string `json:"targetUserId"`
	Reason       string `json:"reason"`
}

func (s *Server) postUnban(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req unbanRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	lifted, err := s.store.DeactivateBans(r.Context(), req.TargetUserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Reason != "" {
		record := model.ModerationAction{
			ID:           newID(),
			TargetUserID: &req.TargetUserID,
			ActionType:   "unban",
			Reason:       req.Reason,
			CreatedBy:    c.UserID,
			CreatedAt:    time.Now().UTC(),
			IsActive:     false,
		}
		if err := s.store.InsertModerationAction(r.Context(), record); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "liftedBans": lifted})
}

type ipBanRequest struct {
	TargetIP    string `json:"targetIp"`
	Reason      string `json:"reason"`
	IsPermanent bool   `json:"isPermanent"`
	Duration    string `json:"duration"`
}

func (s *Server) postIPBan(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req ipBanRequest
	if err := decodeBody(body, &req); err != nil || req.TargetIP == "" {
		writeError(w, http.StatusBadRequest, "Missing targetIp")
		return
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if !req.IsPermanent {
		length, ok := banDurations[req.Duration]
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid ban duration")
			return
		}
		expires := now.Add(length)
		expiresAt = &expires
	}

	action := model.ModerationAction{
		ID:         newID(),
		TargetIP:   &req.TargetIP,
		ActionType: "ip_ban",
		Reason:     req.Reason,
		ExpiresAt:  expiresAt,
		CreatedBy:  c.UserID,
		CreatedAt:  now,
		IsActive:   true,
	}
	if err := s.store.InsertModerationAction(r.Context(), action); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "actionId": action.ID})
}

type removeWarningRequest struct {
	WarningID string `json:"warningId"`
	Reason    string `json:"reason"`
}

func (s *Server) postRemoveWarning(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req removeWarningRequest
	if err := decodeBody(body, &req); err != nil || req.WarningID == "" {
		writeError(w, http.StatusBadRequest, "Missing warningId")
		return
	}

	removed, err := s.store.DeactivateWarning(r.Context(), req.WarningID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusBadRequest, "Warning not found")
		return
	}

	record := model.ModerationAction{
		ID:         newID(),
		ActionType: "warning_removed",
		Reason:     req.Reason,
		CreatedBy:  c.UserID,
		CreatedAt:  time.Now().UTC(),
		IsActive:   false,
	}
	if err := s.store.InsertModerationAction(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type bulkWarnRequest struct {
	TargetUserIDs []string `json:"targetUserIds"`
	Reason        string   `json:"reason"`
}

func (s *Server) postBulkWarn(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req bulkWarnRequest
	if err := decodeBody(body, &req); err != nil || len(req.TargetUserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing targetUserIds")
		return
	}

	now := time.Now().UTC()
	actions := make([]model.ModerationAction, 0, len(req.TargetUserIDs))
	for _, targetID := range req.TargetUserIDs {
		target := targetID
		actions = append(actions, model.ModerationAction{
			ID:           newID(),
			TargetUserID: &target,
			ActionType:   "warn",
			Reason:       req.Reason,
			CreatedBy:    c.UserID,
			CreatedAt:    now,
			IsActive:     true,
		})
	}
	count, err := s.store.InsertModerationActions(r.Context(), actions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "count": count})
}

type bulkBanRequest struct {
	TargetUserIDs []string `json:"targetUserIds"`
	Reason        string   `json:"reason"`
	IsPermanent   bool     `json:"isPermanent"`
	Duration      string   `json:"duration"`
}

func (s *Server) postBulkBan(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req bulkBanRequest
	if err := decodeBody(body, &req); err != nil || len(req.TargetUserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing targetUserIds")
		return
	}

	now := time.Now().UTC()
	expiresAt, msg, status := resolveBanExpiry(c, req.IsPermanent, req.Duration, now)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	actionType := "temp_ban"
	if req.IsPermanent {
		actionType = "perm_ban"
	}
	actions := make([]model.ModerationAction, 0, len(req.TargetUserIDs))
	for _, targetID := range req.TargetUserIDs {
		target := targetID
		actions = append(actions, model.ModerationAction{
			ID:           newID(),
			TargetUserID: &target,
			ActionType:   actionType,
			Reason:       req.Reason,
			ExpiresAt:    expiresAt,
			CreatedBy:    c.UserID,
			CreatedAt:    now,
			IsActive:     true,
		})
	}
	count, err := s.store.InsertModerationActions(r.Context(), actions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "count": count})
}

func (s *Server) postClearAllBans(w http.ResponseWriter, r *http.Request, _ caller, _ []byte) {
	cleared, err := s.store.ClearAllBans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "cleared": cleared})
}

func (s *Server) postClearAllWarnings(w http.ResponseWriter, r *http.Request, _ caller, _ []byte) {
	cleared, err := s.store.ClearAllWarnings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "cleared": cleared})
}

// VIP

type vipRequest struct {
	TargetUserID string `json:"targetUserId"`
	Reason       string `json:"reason"`
}

func (s *Server) postGrantVIP(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req vipRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	vip := model.VIP{
		UserID:    req.TargetUserID,
		GrantedBy: c.UserID,
		Reason:    req.Reason,
		GrantedAt: time.Now().UTC(),
	}
	if err := s.store.GrantVIP(r.Context(), vip); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "User is already VIP")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postRevokeVIP(w http.ResponseWriter, r *http.Request, _ caller, body []byte) {
	var req vipRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	revoked, err := s.store.RevokeVIP(r.Context(), req.TargetUserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !revoked {
		writeError(w, http.StatusBadRequest, "User is not VIP")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type bulkVIPRequest struct {
	TargetUserIDs []string `json:"targetUserIds"`
	Reason        string   `json:"reason"`
}

func (s *Server) postBulkVIP(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req bulkVIPRequest
	if err := decodeBody(body, &req); err != nil || len(req.TargetUserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing targetUserIds")
		return
	}

	now := time.Now().UTC()
	vips := make([]model.VIP, 0, len(req.TargetUserIDs))
	for _, targetID := range req.TargetUserIDs {
		vips = append(vips, model.VIP{
			UserID:    targetID,
			GrantedBy: c.UserID,
			Reason:    req.Reason,
			GrantedAt: now,
		})
	}
	granted, err := s.store.GrantVIPs(r.Context(), vips)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "granted": granted})
}

// Site lock

type lockSiteRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) postLockSite(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req lockSiteRequest
	if err := decodeBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()
	lock := model.SiteLock{
		ID:       "global",
		IsLocked: true,
		LockedAt: &now,
		LockedBy: &c.UserID,
	}
	if req.Reason != "" {
		lock.LockReason = &req.Reason
	}
	if err := s.store.SetSiteLock(r.Context(), lock); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postUnlockSite(w http.ResponseWriter, r *http.Request, _ caller, _ []byte) {
	if err := s.store.SetSiteLock(r.Context(), model.SiteLock{ID: "global", IsLocked: false}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// NAVI broadcasts

type broadcastRequest struct {
	Message  string `json:"message"`
	Priority string `json:"priority"`
	Target   string `json:"target"`
}

func normalizePriority(priority string) (string, bool) {
	switch priority {
	case "":
		return "info", true
	case "info", "warning", "critical":
		return priority, true
	default:
		return "", false
	}
}

func normalizeTarget(target string) (string, bool) {
	switch target {
	case "":
		return "all", true
	case "all", "vips", "admins":
		return target, true
	default:
		return "", false
	}
}

func (s *Server) sendBroadcast(w http.ResponseWriter, r *http.Request, c caller, body []byte, messageType string) {
	var req broadcastRequest
	if err := decodeBody(body, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Missing message")
		return
	}
	priority, ok := normalizePriority(req.Priority)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid priority")
		return
	}
	target, ok := normalizeTarget(req.Target)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid target")
		return
	}

	now := time.Now().UTC()
	broadcast := model.NaviMessage{
		ID:        newID(),
		Message:   req.Message,
		Priority:  priority,
		Target:    target,
		CreatedBy: c.UserID,
		CreatedAt: now,
	}
	if err := s.store.InsertNaviMessage(r.Context(), broadcast); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recipients, err := s.store.ListRecipients(r.Context(), target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	delivered := s.fanOut(r.Context(), broadcast.ID, req.Message, messageType, priority, recipients)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"broadcastId": broadcast.ID,
		"deliveredTo": delivered,
	})
}

// fanOut writes one inbox row per recipient. Inserts are keyed by
// (broadcast_id, recipient_id), so a retried broadcast never double-delivers;
// a failed insert is logged and skipped rather than failing the whole send.
func (s *Server) fanOut(ctx context.Context, broadcastID, message, messageType, priority string, recipients []string) int {
	delivered := 0
	now := time.Now().UTC()
	for _, recipientID := range recipients {
		inserted, err := s.store.InsertInboxMessage(ctx, model.InboxMessage{
			ID:          newID(),
			BroadcastID: broadcastID,
			RecipientID: recipientID,
			Message:     message,
			MessageType: messageType,
			Priority:    priority,
			CreatedAt:   now,
		})
		if err != nil {
			log.Printf("fan-out to %s failed: %v", recipientID, err)
			continue
		}
		if inserted {
			delivered++
		}
	}
	return delivered
}

func (s *Server) postNaviMessage(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	s.sendBroadcast(w, r, c, body, "navi_broadcast")
}

func (s *Server) postBroadcast(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	s.sendBroadcast(w, r, c, body, "broadcast")
}

type naviSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) postSetNaviSetting(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req naviSettingRequest
	if err := decodeBody(body, &req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "Missing key")
		return
	}

	setting := model.NaviSetting{
		Key:       req.Key,
		Value:     req.Value,
		UpdatedBy: c.UserID,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.SetNaviSetting(r.Context(), setting); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postResetNaviDefaults(w http.ResponseWriter, r *http.Request, _ caller, _ []byte) {
	cleared, err := s.store.ResetNaviSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "cleared": cleared})
}

// Roles

type roleRequest struct {
	TargetUserID string `json:"targetUserId"`
}

func (s *Server) postOp(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}
	if err := s.store.SetRole(r.Context(), req.TargetUserID, "admin", c.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postDeop(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	role, err := s.store.GetRole(r.Context(), req.TargetUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User has no elevated role")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// A creator can never be demoted; a full admin only by the creator.
	if role.Role == "creator" {
		writeError(w, http.StatusForbidden, "Creators cannot be demoted")
		return
	}
	if role.Role == "admin" && !c.isCreator() {
		writeError(w, http.StatusForbidden, "Only the creator can demote admins")
		return
	}

	if _, err := s.store.RemoveRole(r.Context(), req.TargetUserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postSetTrialAdmin(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}
	if err := s.store.SetRole(r.Context(), req.TargetUserID, "trial_admin", c.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postRevokeTrial(w http.ResponseWriter, r *http.Request, _ caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	role, err := s.store.GetRole(r.Context(), req.TargetUserID)
	if err != nil || role.Role != "trial_admin" {
		writeError(w, http.StatusBadRequest, "User is not a trial admin")
		return
	}
	if _, err := s.store.RemoveRole(r.Context(), req.TargetUserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postPromoteTrial(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	role, err := s.store.GetRole(r.Context(), req.TargetUserID)
	if err != nil || role.Role != "trial_admin" {
		writeError(w, http.StatusBadRequest, "User is not a trial admin")
		return
	}
	if err := s.store.SetRole(r.Context(), req.TargetUserID, "admin", c.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postRevokeAllTrialAdmins(w http.ResponseWriter, r *http.Request, _ caller, _ []byte) {
	revoked, err := s.store.RevokeAllTrialAdmins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "revoked": revoked})
}

// PIN lifecycle

type pinRequest struct {
	Pin string `json:"pin"`
}

func (s *Server) postSetPin(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req pinRequest
	if err := decodeBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !pinPattern.MatchString(req.Pin) {
		writeError(w, http.StatusBadRequest, "PIN must be 4-6 digits")
		return
	}

	hash, err := crypto.HashPin(req.Pin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pin := model.AdminPin{
		UserID:    c.UserID,
		PinHash:   hash,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertAdminPin(r.Context(), pin); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postVerifyPin(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req pinRequest
	if err := decodeBody(body, &req); err != nil || req.Pin == "" {
		writeError(w, http.StatusBadRequest, "Missing pin")
		return
	}

	pin, err := s.store.GetAdminPin(r.Context(), c.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "No PIN set")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now().UTC()
	if pin.LockedUntil != nil && pin.LockedUntil.After(now) {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":       "PIN locked",
			"locked":      true,
			"lockedUntil": formatTime(*pin.LockedUntil),
		})
		return
	}

	if err := crypto.CheckPin(pin.PinHash, req.Pin); err != nil {
		attempts := pin.FailedAttempts + 1
		if attempts >= s.cfg.PinMaxAttempts {
			lockedUntil := now.Add(s.cfg.PinLockoutWindow)
			if err := s.store.RecordPinFailure(r.Context(), c.UserID, attempts, &lockedUntil); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusForbidden, map[string]interface{}{
				"error":       "PIN locked",
				"locked":      true,
				"lockedUntil": formatTime(lockedUntil),
			})
			return
		}
		if err := s.store.RecordPinFailure(r.Context(), c.UserID, attempts, nil); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error":        "Invalid PIN",
			"attemptsLeft": s.cfg.PinMaxAttempts - attempts,
		})
		return
	}

	if err := s.store.ResetPinFailures(r.Context(), c.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "valid": true})
}

func (s *Server) postRemovePin(w http.ResponseWriter, r *http.Request, c caller, _ []byte) {
	removed, err := s.store.DeleteAdminPin(r.Context(), c.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusBadRequest, "No PIN set")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postForceResetPin(w http.ResponseWriter, r *http.Request, _ caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}
	if _, err := s.store.DeleteAdminPin(r.Context(), req.TargetUserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) postDeleteAllPins(w http.ResponseWriter, r *http.Request, _ caller, _ []byte) {
	deleted, err := s.store.DeleteAllAdminPins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": deleted})
}

// Notes

type addNoteRequest struct {
	TargetUserID string `json:"targetUserId"`
	Note         string `json:"note"`
}

func (s *Server) postAddNote(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req addNoteRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" || strings.TrimSpace(req.Note) == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId or note")
		return
	}

	note := model.AdminNote{
		ID:           newID(),
		TargetUserID: req.TargetUserID,
		Note:         req.Note,
		CreatedBy:    c.UserID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertAdminNote(r.Context(), note); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "noteId": note.ID})
}

// Account operations

func (s *Server) postResetPassword(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	token, err := crypto.NewResetToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	now := time.Now().UTC()
	reset := model.PasswordReset{
		ID:        newID(),
		UserID:    req.TargetUserID,
		TokenHash: crypto.HashToken(token),
		CreatedBy: c.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
	}
	if err := s.store.CreatePasswordReset(r.Context(), reset); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"resetToken": token,
		"expiresAt":  formatTime(reset.ExpiresAt),
	})
}

func (s *Server) postForceLogout(w http.ResponseWriter, r *http.Request, _ caller, body []byte) {
	var req roleRequest
	if err := decodeBody(body, &req); err != nil || req.TargetUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing targetUserId")
		return
	}

	revoked, err := s.store.RevokeSessionsByUser(r.Context(), req.TargetUserID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "revokedSessions": revoked})
}

// Test emergencies

var threatLevels = []string{"low", "guarded", "elevated", "severe"}

func (s *Server) postStartTestEmergency(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	now := time.Now().UTC()
	latest, err := s.store.LatestTestEmergency(r.Context(), c.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err == nil {
		nextAvailable := latest.CreatedAt.Add(s.cfg.EmergencyCooldown)
		if now.Before(nextAvailable) {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":         "Test emergency on cooldown",
				"nextAvailable": formatTime(nextAvailable),
			})
			return
		}
	}

	// Fabricated drill metrics, never real telemetry.
	emergency := model.TestEmergency{
		ID:          newID(),
		CreatedBy:   c.UserID,
		CreatedAt:   now,
		IsActive:    true,
		OxygenLevel: 40 + rand.Intn(60),
		PowerLevel:  30 + rand.Intn(70),
		ThreatLevel: threatLevels[rand.Intn(len(threatLevels))],
	}
	if err := s.store.InsertTestEmergency(r.Context(), emergency); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	admins, err := s.store.ListRecipients(r.Context(), "admins")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	notified := s.fanOut(r.Context(), emergency.ID, "Test emergency drill started. Metrics are simulated.", "emergency_drill", "critical", admins)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"emergencyId": emergency.ID,
		"oxygenLevel": emergency.OxygenLevel,
		"powerLevel":  emergency.PowerLevel,
		"threatLevel": emergency.ThreatLevel,
		"notified":    notified,
	})
}

type endEmergencyRequest struct {
	EmergencyID string `json:"emergencyId"`
}

func (s *Server) postEndTestEmergency(w http.ResponseWriter, r *http.Request, c caller, body []byte) {
	var req endEmergencyRequest
	if err := decodeBody(body, &req); err != nil || req.EmergencyID == "" {
		writeError(w, http.StatusBadRequest, "Missing emergencyId")
		return
	}

	now := time.Now().UTC()
	ended, err := s.store.EndTestEmergency(r.Context(), req.EmergencyID, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ended {
		writeError(w, http.StatusBadRequest, "No active test emergency")
		return
	}

	admins, err := s.store.ListRecipients(r.Context(), "admins")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The active-emergency guard above already rejects reruns, so the end
	// notification gets its own broadcast id rather than reusing the drill's.
	notified := s.fanOut(r.Context(), newID(), "Test emergency drill ended.", "emergency_drill", "info", admins)

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "notified": notified})
}
