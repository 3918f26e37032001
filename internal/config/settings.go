// Package config holds the persisted user settings and the process
// environment configuration.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/analyzer"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Settings are the user-tunable options stored in the settings table.
type Settings struct {
	// Sensitivity is the analyzer distance threshold. Lower is less sensitive.
	Sensitivity float64 `json:"sensitivity" validate:"gte=0.05,lte=0.5"`
	// TriggerTime is how many seconds a hand must stay near before alerting.
	TriggerTime float64 `json:"trigger_time" validate:"gte=1,lte=10"`
	// CooldownTime is the pause in seconds after an alert.
	CooldownTime float64 `json:"cooldown_time" validate:"gte=5,lte=30"`

	SoundEnabled       bool `json:"sound_enabled"`
	PopupEnabled       bool `json:"popup_enabled"`
	FullscreenAlert    bool `json:"fullscreen_alert"`
	AutoStartDetection bool `json:"auto_start_detection"`

	// FrameSkip analyzes every Nth captured frame.
	FrameSkip int `json:"frame_skip" validate:"gte=1,lte=5"`
	// Language is a locale code; empty means detect from the system.
	Language string `json:"language" validate:"omitempty,oneof=ko en ja zh es ru"`
}

// Default returns the settings used when nothing is stored.
func Default() Settings {
	return Settings{
		Sensitivity:        0.15,
		TriggerTime:        3.0,
		CooldownTime:       10.0,
		SoundEnabled:       true,
		PopupEnabled:       true,
		FullscreenAlert:    true,
		AutoStartDetection: false,
		FrameSkip:          2,
		Language:           "",
	}
}

// Thresholds converts the detection settings for the analyzer.
func (s Settings) Thresholds() analyzer.Thresholds {
	return analyzer.Thresholds{
		DistanceThreshold: s.Sensitivity,
		TriggerTime:       seconds(s.TriggerTime),
		CooldownTime:      seconds(s.CooldownTime),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so API clients see the keys they sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Keys of the settings table.
const (
	KeySensitivity        = "sensitivity"
	KeyTriggerTime        = "trigger_time"
	KeyCooldownTime       = "cooldown_time"
	KeySoundEnabled       = "sound_enabled"
	KeyPopupEnabled       = "popup_enabled"
	KeyFullscreenAlert    = "fullscreen_alert"
	KeyAutoStartDetection = "auto_start_detection"
	KeyFrameSkip          = "frame_skip"
	KeyLanguage           = "language"
)

// field maps one Settings field to its stored string form.
type field struct {
	key  string
	name string // struct field name, for partial validation
	get  func(*Settings) string
	set  func(*Settings, string) error
}

var fields = []field{
	floatField(KeySensitivity, "Sensitivity", func(s *Settings) *float64 { return &s.Sensitivity }),
	floatField(KeyTriggerTime, "TriggerTime", func(s *Settings) *float64 { return &s.TriggerTime }),
	floatField(KeyCooldownTime, "CooldownTime", func(s *Settings) *float64 { return &s.CooldownTime }),
	boolField(KeySoundEnabled, "SoundEnabled", func(s *Settings) *bool { return &s.SoundEnabled }),
	boolField(KeyPopupEnabled, "PopupEnabled", func(s *Settings) *bool { return &s.PopupEnabled }),
	boolField(KeyFullscreenAlert, "FullscreenAlert", func(s *Settings) *bool { return &s.FullscreenAlert }),
	boolField(KeyAutoStartDetection, "AutoStartDetection", func(s *Settings) *bool { return &s.AutoStartDetection }),
	{
		key:  KeyFrameSkip,
		name: "FrameSkip",
		get:  func(s *Settings) string { return strconv.Itoa(s.FrameSkip) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			s.FrameSkip = n
			return nil
		},
	},
	{
		key:  KeyLanguage,
		name: "Language",
		get:  func(s *Settings) string { return s.Language },
		set: func(s *Settings, v string) error {
			s.Language = v
			return nil
		},
	},
}

func floatField(key, name string, ptr func(*Settings) *float64) field {
	return field{
		key:  key,
		name: name,
		get:  func(s *Settings) string { return strconv.FormatFloat(*ptr(s), 'f', -1, 64) },
		set: func(s *Settings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*ptr(s) = f
			return nil
		},
	}
}

func boolField(key, name string, ptr func(*Settings) *bool) field {
	return field{
		key:  key,
		name: name,
		get:  func(s *Settings) string { return strconv.FormatBool(*ptr(s)) },
		set: func(s *Settings, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*ptr(s) = b
			return nil
		},
	}
}

// ToMap returns the settings in their stored form.
func (s Settings) ToMap() map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.key] = f.get(&s)
	}
	return m
}

// KeyValueStore is the persistence the settings need.
type KeyValueStore interface {
	All() (map[string]string, error)
	SetMany(values map[string]string) error
}

// Load reads stored settings over the defaults. Unknown keys are ignored;
// values that do not parse or fall out of range are logged and replaced by
// their default.
func Load(kv KeyValueStore, log logrus.FieldLogger) (Settings, error) {
	s := Default()
	stored, err := kv.All()
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}

	defaults := Default()
	for _, f := range fields {
		v, ok := stored[f.key]
		if !ok {
			continue
		}
		if err := f.set(&s, v); err != nil {
			log.WithFields(logrus.Fields{"key": f.key, "value": v}).WithError(err).Warn("ignoring unparsable setting")
			continue
		}
		if err := validate.StructPartial(s, f.name); err != nil {
			log.WithFields(logrus.Fields{"key": f.key, "value": v}).Warn("ignoring out-of-range setting")
			_ = f.set(&s, f.get(&defaults))
		}
	}

	return s, nil
}

// Save validates s and writes every key.
func Save(kv KeyValueStore, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := kv.SetMany(s.ToMap()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
