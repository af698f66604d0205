package model

import "time"

// AppSetting represents a key-value pair for global application configuration.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys read by the anti-cheat configuration.
const (
	SettingAntiCheatActive     = "anticheat.is_active"
	SettingAntiCheatFreeze     = "anticheat.freeze_seconds"
	SettingAntiCheatAlertText  = "anticheat.alert_text"
	SettingAntiCheatSound      = "anticheat.enable_sound"
	SettingAntiCheatMaxFreeze  = "anticheat.max_freeze_seconds"
	DefaultAntiCheatAlertText  = "Anda terdeteksi meninggalkan halaman ujian!"
	DefaultAntiCheatFreezeSecs = 15
)

// AntiCheatConfig controls the focus-loss monitor of every new session.
type AntiCheatConfig struct {
	IsActive              bool   `json:"is_active"`
	FreezeDurationSeconds int    `json:"freeze_duration_seconds"`
	AlertText             string `json:"alert_text"`
	EnableSound           bool   `json:"enable_sound"`
	// MaxFreezeSeconds caps a single penalty. Zero leaves the backoff uncapped.
	MaxFreezeSeconds int `json:"max_freeze_seconds"`
}

// DisabledAntiCheat is used whenever the configuration is missing or unreadable.
func DisabledAntiCheat() AntiCheatConfig {
	return AntiCheatConfig{AlertText: DefaultAntiCheatAlertText}
}

// UpdateAntiCheatRequest is the admin payload for changing the anti-cheat settings.
type UpdateAntiCheatRequest struct {
	IsActive              bool   `json:"is_active"`
	FreezeDurationSeconds int    `json:"freeze_duration_seconds" binding:"min=0,max=3600"`
	AlertText             string `json:"alert_text" binding:"max=255"`
	EnableSound           bool   `json:"enable_sound"`
	MaxFreezeSeconds      int    `json:"max_freeze_seconds" binding:"min=0"`
}
