package http

import (
	"net/http"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
)

// capability is the single pre-dispatch authorization level of an action.
// Finer rules (deop target guards, trial ban-duration limits) stay in the
// handlers because they depend on request fields.
type capability int

const (
	capAny     capability = iota // any elevated role
	capFull                      // trial admins blocked
	capCreator                   // creator only
)

type getAction struct {
	cap     capability
	handler func(w http.ResponseWriter, r *http.Request, c caller)
}

type postAction struct {
	cap     capability
	handler func(w http.ResponseWriter, r *http.Request, c caller, body []byte)
}

func (s *Server) registerActions() {
	s.getActions = map[string]getAction{
		"users":             {capAny, s.getUsers},
		"logs":              {capAny, s.getLogs},
		"vips":              {capAny, s.getVIPs},
		"site_lock_status":  {capAny, s.getSiteLockStatus},
		"navi_messages":     {capAny, s.getNaviMessages},
		"navi_settings":     {capAny, s.getNaviSettings},
		"monitoring_events": {capAny, s.getMonitoringEvents},
		"check_pin_status":  {capAny, s.getPinStatus},
		"get_notes":         {capAny, s.getNotes},
		"admin_roster":      {capAny, s.getAdminRoster},
		"access_logs":       {capAny, s.getAccessLogs},
	}

	s.postActions = map[string]postAction{
		"warn":           {capAny, s.postWarn},
		"ban":            {capAny, s.postBan},
		"unban":          {capAny, s.postUnban},
		"ip_ban":         {capFull, s.postIPBan},
		"remove_warning": {capAny, s.postRemoveWarning},
		"bulk_warn":      {capAny, s.postBulkWarn},
		"bulk_ban":       {capAny, s.postBulkBan},

		"grant_vip":  {capFull, s.postGrantVIP},
		"revoke_vip": {capFull, s.postRevokeVIP},
		"bulk_vip":   {capFull, s.postBulkVIP},

		"lock_site":   {capFull, s.postLockSite},
		"unlock_site": {capFull, s.postUnlockSite},

		"navi_message":        {capFull, s.postNaviMessage},
		"broadcast":           {capFull, s.postBroadcast},
		"set_navi_setting":    {capFull, s.postSetNaviSetting},
		"reset_navi_defaults": {capCreator, s.postResetNaviDefaults},

		"op":                      {capFull, s.postOp},
		"deop":                    {capAny, s.postDeop},
		"set_trial_admin":         {capFull, s.postSetTrialAdmin},
		"revoke_trial":            {capFull, s.postRevokeTrial},
		"promote_trial":           {capFull, s.postPromoteTrial},
		"revoke_all_trial_admins": {capCreator, s.postRevokeAllTrialAdmins},

		"set_pin":         {capAny, s.postSetPin},
		"verify_pin":      {capAny, s.postVerifyPin},
		"remove_pin":      {capAny, s.postRemovePin},
		"force_reset_pin": {capCreator, s.postForceResetPin},
		"delete_all_pins": {capCreator, s.postDeleteAllPins},

		"add_note":       {capAny, s.postAddNote},
		"reset_password": {capFull, s.postResetPassword},
		"force_logout":   {capFull, s.postForceLogout},

		"start_test_emergency": {capFull, s.postStartTestEmergency},
		"end_test_emergency":   {capAny, s.postEndTestEmergency},

		"clear_all_bans":     {capCreator, s.postClearAllBans},
		"clear_all_warnings": {capCreator, s.postClearAllWarnings},
	}
}

func (s *Server) authorize(w http.ResponseWriter, c caller, action string, level capability) bool {
	switch level {
	case capFull:
		if c.isTrial() {
			writeError(w, http.StatusForbidden, "Trial admins cannot perform: "+action)
			return false
		}
	case capCreator:
		if !c.isCreator() {
			writeError(w, http.StatusForbidden, "Creator access required")
			return false
		}
	}
	return true
}

func accessLogEntry(adminID, action, method, ip string) model.AccessLogEntry {
	return model.AccessLogEntry{
		ID:        newID(),
		AdminID:   adminID,
		Action:    action,
		Method:    method,
		IPAddress: ip,
		CreatedAt: time.Now().UTC(),
	}
}
