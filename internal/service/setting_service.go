package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
)

const antiCheatCacheTTL = time.Minute

var antiCheatKeys = []string{
	model.SettingAntiCheatActive,
	model.SettingAntiCheatFreeze,
	model.SettingAntiCheatAlertText,
	model.SettingAntiCheatSound,
	model.SettingAntiCheatMaxFreeze,
}

// settingStore is the slice of SettingRepository the service needs.
type settingStore interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	UpsertMany(ctx context.Context, values map[string]string) error
}

type SettingService struct {
	settingRepo settingStore
	rdb         redis.Cmdable
	log         zerolog.Logger
}

func NewSettingService(settingRepo settingStore, rdb redis.Cmdable, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

// AntiCheatConfig resolves the anti-cheat settings for a new session. A
// missing or unreadable configuration disables the monitor instead of failing.
func (s *SettingService) AntiCheatConfig(ctx context.Context) model.AntiCheatConfig {
	key := config.CacheKey.AntiCheatConfigKey()
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var cfg model.AntiCheatConfig
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return cfg
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Anti-cheat cache read failed")
	}

	values, err := s.settingRepo.GetMany(ctx, antiCheatKeys)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read anti-cheat settings, monitor disabled")
		return model.DisabledAntiCheat()
	}
	cfg, err := parseAntiCheat(values)
	if err != nil {
		s.log.Error().Err(err).Msg("Invalid anti-cheat settings, monitor disabled")
		return model.DisabledAntiCheat()
	}

	if data, err := json.Marshal(cfg); err == nil {
		if err := s.rdb.Set(ctx, key, data, antiCheatCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Anti-cheat cache write failed")
		}
	}
	return cfg
}

func parseAntiCheat(values map[string]string) (model.AntiCheatConfig, error) {
	active, ok := values[model.SettingAntiCheatActive]
	if !ok {
		return model.AntiCheatConfig{}, errors.New("anti-cheat settings not configured")
	}

	cfg := model.AntiCheatConfig{
		FreezeDurationSeconds: model.DefaultAntiCheatFreezeSecs,
		AlertText:             model.DefaultAntiCheatAlertText,
	}

	var err error
	if cfg.IsActive, err = strconv.ParseBool(strings.TrimSpace(active)); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", model.SettingAntiCheatActive, err)
	}
	if v, ok := values[model.SettingAntiCheatFreeze]; ok {
		if cfg.FreezeDurationSeconds, err = strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", model.SettingAntiCheatFreeze, err)
		}
		if cfg.FreezeDurationSeconds < 0 {
			return cfg, fmt.Errorf("parse %s: negative duration", model.SettingAntiCheatFreeze)
		}
	}
	if v, ok := values[model.SettingAntiCheatMaxFreeze]; ok && strings.TrimSpace(v) != "" {
		if cfg.MaxFreezeSeconds, err = strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", model.SettingAntiCheatMaxFreeze, err)
		}
	}
	if v, ok := values[model.SettingAntiCheatSound]; ok {
		if cfg.EnableSound, err = strconv.ParseBool(strings.TrimSpace(v)); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", model.SettingAntiCheatSound, err)
		}
	}
	if v := values[model.SettingAntiCheatAlertText]; v != "" {
		cfg.AlertText = v
	}
	return cfg, nil
}

// UpdateAntiCheat stores new settings. Sessions already running keep the
// configuration they were started with.
func (s *SettingService) UpdateAntiCheat(ctx context.Context, req model.UpdateAntiCheatRequest) (model.AntiCheatConfig, error) {
	alert := req.AlertText
	if alert == "" {
		alert = model.DefaultAntiCheatAlertText
	}
	values := map[string]string{
		model.SettingAntiCheatActive:    strconv.FormatBool(req.IsActive),
		model.SettingAntiCheatFreeze:    strconv.Itoa(req.FreezeDurationSeconds),
		model.SettingAntiCheatAlertText: alert,
		model.SettingAntiCheatSound:     strconv.FormatBool(req.EnableSound),
		model.SettingAntiCheatMaxFreeze: strconv.Itoa(req.MaxFreezeSeconds),
	}
	if err := s.settingRepo.UpsertMany(ctx, values); err != nil {
		s.log.Error().Err(err).Msg("failed to update anti-cheat settings")
		return model.AntiCheatConfig{}, err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.AntiCheatConfigKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Anti-cheat cache invalidation failed")
	}

	return model.AntiCheatConfig{
		IsActive:              req.IsActive,
		FreezeDurationSeconds: req.FreezeDurationSeconds,
		AlertText:             alert,
		EnableSound:           req.EnableSound,
		MaxFreezeSeconds:      req.MaxFreezeSeconds,
	}, nil
}
