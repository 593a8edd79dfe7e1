// Package config loads the hand rig and simulation settings from YAML or
// JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/vrhand/internal/core/controller"
	"github.com/zeusync/vrhand/internal/core/grab"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/rig"
)

// Config is the whole configuration surface.
type Config struct {
	Rig RigConfig `json:"rig" yaml:"rig"`
	Sim SimConfig `json:"sim" yaml:"sim"`
}

// RigConfig configures both hands.
type RigConfig struct {
	Hand       HandConfig       `json:"hand" yaml:"hand"`
	Controller ControllerConfig `json:"controller" yaml:"controller"`
}

type HandConfig struct {
	Mass                     float64 `json:"mass" yaml:"mass"`
	RootBone                 string  `json:"root_bone" yaml:"root_bone"`
	PalmSocket               string  `json:"palm_socket" yaml:"palm_socket"`
	ActiveProfile            string  `json:"active_profile" yaml:"active_profile"`
	InactiveProfile          string  `json:"inactive_profile" yaml:"inactive_profile"`
	SleepThresholdMultiplier float64 `json:"sleep_threshold_multiplier" yaml:"sleep_threshold_multiplier"`
	AutoSleepSensitivity     bool    `json:"auto_sleep_sensitivity" yaml:"auto_sleep_sensitivity"`
}

type ControllerConfig struct {
	AttachmentTime           Duration `json:"attachment_time" yaml:"attachment_time"`
	NoCollisionTime          Duration `json:"no_collision_time" yaml:"no_collision_time"`
	GrabProfile              string   `json:"grab_profile" yaml:"grab_profile"`
	GrabRadius               float64  `json:"grab_radius" yaml:"grab_radius"`
	TrackingCheckInterval    Duration `json:"tracking_check_interval" yaml:"tracking_check_interval"`
	TrackingMaxAttempts      int      `json:"tracking_max_attempts" yaml:"tracking_max_attempts"`
	TeleportPhysicsResetWait Duration `json:"teleport_physics_reset_wait" yaml:"teleport_physics_reset_wait"`
	MinTrackedDistanceSq     float64  `json:"min_tracked_distance_sq" yaml:"min_tracked_distance_sq"`
	StartState               string   `json:"start_state" yaml:"start_state"`
	Deadzone                 float64  `json:"deadzone" yaml:"deadzone"`
}

// SimConfig drives the headless simulator.
type SimConfig struct {
	TickRate    int    `json:"tick_rate" yaml:"tick_rate"`
	Ticks       int    `json:"ticks" yaml:"ticks"`
	InspectAddr string `json:"inspect_addr" yaml:"inspect_addr"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Rig: RigConfig{
			Hand: HandConfig{
				Mass:                 10,
				RootBone:             "hand_r",
				PalmSocket:           "palm_socket",
				ActiveProfile:        physics.ProfilePhysicsActor,
				InactiveProfile:      physics.ProfileNoCollision,
				AutoSleepSensitivity: true,
			},
			Controller: ControllerConfig{
				AttachmentTime:           Duration(grab.DefaultAttachmentTime),
				NoCollisionTime:          Duration(grab.DefaultNoCollisionTime),
				GrabProfile:              physics.ProfileGrabSphere,
				GrabRadius:               rig.DefaultGrabRadius,
				TrackingCheckInterval:    Duration(rig.DefaultTrackingCheckInterval),
				TrackingMaxAttempts:      rig.DefaultTrackingMaxAttempts,
				TeleportPhysicsResetWait: Duration(rig.DefaultTeleportPhysicsResetWait),
				MinTrackedDistanceSq:     rig.DefaultMinTrackedDistanceSq,
				StartState:               controller.StateIdle,
				Deadzone:                 controller.DefaultDeadzone,
			},
		},
		Sim: SimConfig{
			TickRate: 90,
			Ticks:    270,
			LogLevel: "info",
		},
	}
}

// LoadJSON loads config from JSON reader on top of Default.
func LoadJSON(r io.Reader) (*Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// LoadYAML loads config from YAML reader on top of Default.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return c, c.Validate()
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason)
}

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	h, ctl := c.Rig.Hand, c.Rig.Controller
	switch {
	case h.Mass <= 0:
		return invalid("rig.hand.mass", "must be positive")
	case h.RootBone == "":
		return invalid("rig.hand.root_bone", "must be set")
	case h.ActiveProfile == "":
		return invalid("rig.hand.active_profile", "must be set")
	case h.InactiveProfile == "":
		return invalid("rig.hand.inactive_profile", "must be set")
	case h.SleepThresholdMultiplier < 0:
		return invalid("rig.hand.sleep_threshold_multiplier", "must not be negative")
	case ctl.AttachmentTime <= 0:
		return invalid("rig.controller.attachment_time", "must be positive")
	case ctl.NoCollisionTime <= 0:
		return invalid("rig.controller.no_collision_time", "must be positive")
	case ctl.GrabProfile == "":
		return invalid("rig.controller.grab_profile", "must be set")
	case ctl.GrabRadius <= 0:
		return invalid("rig.controller.grab_radius", "must be positive")
	case ctl.TrackingCheckInterval <= 0:
		return invalid("rig.controller.tracking_check_interval", "must be positive")
	case ctl.TrackingMaxAttempts <= 0:
		return invalid("rig.controller.tracking_max_attempts", "must be positive")
	case ctl.TeleportPhysicsResetWait <= 0:
		return invalid("rig.controller.teleport_physics_reset_wait", "must be positive")
	case ctl.MinTrackedDistanceSq < 0:
		return invalid("rig.controller.min_tracked_distance_sq", "must not be negative")
	case ctl.Deadzone < 0 || ctl.Deadzone >= 1:
		return invalid("rig.controller.deadzone", "must be in [0, 1)")
	case !controller.NewDefaultRegistry().Has(ctl.StartState):
		return invalid("rig.controller.start_state", fmt.Sprintf("unknown state %q", ctl.StartState))
	case c.Sim.TickRate <= 0:
		return invalid("sim.tick_rate", "must be positive")
	case c.Sim.Ticks < 0:
		return invalid("sim.ticks", "must not be negative")
	}
	return nil
}

// TickInterval is the fixed simulation step.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.TickRate)
}

// HandSettings converts the hand section for hand name.
func (c *Config) HandSettings(name string) rig.HandSettings {
	h := c.Rig.Hand
	return rig.HandSettings{
		Name:                     name,
		Mass:                     h.Mass,
		RootBone:                 h.RootBone,
		PalmSocket:               h.PalmSocket,
		ActiveProfile:            h.ActiveProfile,
		InactiveProfile:          h.InactiveProfile,
		SleepThresholdMultiplier: h.SleepThresholdMultiplier,
		AutoSleepSensitivity:     h.AutoSleepSensitivity,
	}
}

// ControllerSettings converts the controller section.
func (c *Config) ControllerSettings() rig.Settings {
	ctl := c.Rig.Controller
	s := rig.DefaultSettings()
	s.AttachmentTime = ctl.AttachmentTime.Std()
	s.NoCollisionTime = ctl.NoCollisionTime.Std()
	s.GrabProfile = ctl.GrabProfile
	s.GrabRadius = ctl.GrabRadius
	s.TrackingCheckInterval = ctl.TrackingCheckInterval.Std()
	s.TrackingMaxAttempts = ctl.TrackingMaxAttempts
	s.TeleportPhysicsResetWait = ctl.TeleportPhysicsResetWait.Std()
	s.MinTrackedDistanceSq = ctl.MinTrackedDistanceSq
	s.Deadzone = ctl.Deadzone
	return s
}
