package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/rs/zerolog/log"
)

const tunablesCacheKey = "tunables"

var ErrInvalidValue = errors.New("invalid setting value")

// Service is the read-through settings store. Redis caching is optional.
type Service struct {
	store  db.Querier
	cache  Cache
	prefix string
	ttl    time.Duration
}

type ServiceOption func(*Service)

func WithCache(cache Cache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.ttl = ttl
	}
}

func NewService(store db.Querier, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		prefix: "settings",
		ttl:    time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Provider = (*Service)(nil)

func (s *Service) cacheKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Get returns the stored value or def when the key is unset or unreadable.
func (s *Service) Get(ctx context.Context, key, def string) string {
	if s.cache != nil {
		value, err := s.cache.Get(ctx, s.cacheKey(key))
		if err == nil {
			return value
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("settings cache read failed")
		}
	}

	setting, err := s.store.GetSetting(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrRecordNotFound) {
			log.Error().Err(err).Str("key", key).Msg("failed to read setting")
		}
		return def
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cacheKey(key), setting.Value, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("settings cache write failed")
		}
	}
	return setting.Value
}

func (s *Service) GetInt(ctx context.Context, key string, def int64) int64 {
	value, err := strconv.ParseInt(s.Get(ctx, key, strconv.FormatInt(def, 10)), 10, 64)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("setting is not an integer, using default")
		return def
	}
	return value
}

func (s *Service) GetFloat(ctx context.Context, key string, def float64) float64 {
	value, err := strconv.ParseFloat(s.Get(ctx, key, strconv.FormatFloat(def, 'f', -1, 64)), 64)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("setting is not a number, using default")
		return def
	}
	return value
}

// Set validates value against settingType and the key's definition, stores it and drops the
// cached copies.
func (s *Service) Set(ctx context.Context, key, value string, settingType db.SettingType) (db.Setting, error) {
	if err := validateValue(key, value, settingType); err != nil {
		return db.Setting{}, err
	}

	setting, err := s.store.UpsertSetting(ctx, db.UpsertSettingParams{
		Key:   key,
		Value: value,
		Type:  settingType,
	})
	if err != nil {
		return db.Setting{}, fmt.Errorf("failed to save setting %s: %w", key, err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, s.cacheKey(key), s.cacheKey(tunablesCacheKey)); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("settings cache invalidation failed")
		}
	}
	return setting, nil
}

func (s *Service) List(ctx context.Context) ([]db.Setting, error) {
	return s.store.ListSettings(ctx)
}

// Tunables reads every setting in one query so a single operation never mixes old and new values.
func (s *Service) Tunables(ctx context.Context) (Tunables, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cacheKey(tunablesCacheKey)); err == nil {
			var t Tunables
			if err := json.Unmarshal([]byte(cached), &t); err == nil {
				return t, nil
			}
		}
	}

	rows, err := s.store.ListSettings(ctx)
	if err != nil {
		return Tunables{}, fmt.Errorf("failed to list settings: %w", err)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	t := DefaultTunables()
	readInt(values, KeyWaitingTimeoutMinutes, &t.WaitingTimeoutMinutes)
	readInt(values, KeyWaitingFeePerMinute, &t.WaitingFeePerMinute)
	readInt(values, KeyWaitingFreeMinutes, &t.WaitingFreeMinutes)
	readFloat(values, KeySearchRadiusKm, &t.SearchRadiusKm)
	readInt(values, KeyCourierLocationFreshnessMinutes, &t.CourierLocationFreshnessMinutes)
	readFloat(values, KeyCommissionRatePlatform, &t.CommissionRatePlatform)
	readFloat(values, KeyCommissionRatePharmacy, &t.CommissionRatePharmacy)
	readFloat(values, KeyCommissionRateCourier, &t.CommissionRateCourier)
	readInt(values, KeyPaymentPendingTimeoutMinutes, &t.PaymentPendingTimeoutMinutes)

	if s.cache != nil {
		if raw, err := json.Marshal(t); err == nil {
			if err := s.cache.Set(ctx, s.cacheKey(tunablesCacheKey), string(raw), s.ttl); err != nil {
				log.Warn().Err(err).Msg("settings cache write failed")
			}
		}
	}
	return t, nil
}

func readInt(values map[string]string, key string, dst *int64) {
	raw, ok := values[key]
	if !ok {
		return
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("setting is not an integer, using default")
		return
	}
	if err := Definitions[key].CheckRange(float64(v)); err != nil {
		log.Warn().Err(err).Str("key", key).Str("value", raw).Msg("setting out of range, using default")
		return
	}
	*dst = v
}

func readFloat(values map[string]string, key string, dst *float64) {
	raw, ok := values[key]
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("setting is not a number, using default")
		return
	}
	if err := Definitions[key].CheckRange(v); err != nil {
		log.Warn().Err(err).Str("key", key).Str("value", raw).Msg("setting out of range, using default")
		return
	}
	*dst = v
}

func validateValue(key, value string, settingType db.SettingType) error {
	def, known := Definitions[key]
	if known && def.Type != settingType {
		return fmt.Errorf("%w: %s must be of type %s, got %s", ErrInvalidValue, key, def.Type, settingType)
	}

	var (
		err    error
		number float64
	)
	switch settingType {
	case db.SettingTypeString:
	case db.SettingTypeInt:
		var n int64
		n, err = strconv.ParseInt(value, 10, 64)
		number = float64(n)
	case db.SettingTypeFloat:
		number, err = strconv.ParseFloat(value, 64)
	case db.SettingTypeBool:
		_, err = strconv.ParseBool(value)
	case db.SettingTypeJSON:
		if !json.Valid([]byte(value)) {
			err = errors.New("invalid json")
		}
	default:
		return fmt.Errorf("%w: unknown setting type %q", ErrInvalidValue, settingType)
	}
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid %s: %v", ErrInvalidValue, value, settingType, err)
	}

	if known {
		if err := def.CheckRange(number); err != nil {
			return fmt.Errorf("%w: %s %s", ErrInvalidValue, key, err)
		}
	}
	return nil
}
