package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// ServerConfig - local WebSocket/HTTP control server settings
type ServerConfig struct {
	Port           string   `json:"port"`
	WebFilesDir    string   `json:"web_files_dir"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// MQTTConfig - MQTT bridge and Home Assistant discovery settings
type MQTTConfig struct {
	Enabled            bool   `json:"enabled"`
	Broker             string `json:"broker"` // tcp://IP:PORT
	Username           string `json:"username"`
	Password           string `json:"password"`
	ClientID           string `json:"client_id"`
	TopicPrefix        string `json:"topic_prefix"`
	HADiscoveryEnabled bool   `json:"ha_discovery_enabled"`
	HADiscoveryPrefix  string `json:"ha_discovery_prefix"`
}

// HookConfig - keyboard hook and health monitor settings
type HookConfig struct {
	HealthCheckInterval string  `json:"health_check_interval"`
	DispatchRateLimit   float64 `json:"dispatch_rate_limit"`
	DispatchRateBurst   int     `json:"dispatch_rate_burst"`
}

// AdaptersConfig - the designated switch pair and operation timing
type AdaptersConfig struct {
	AdapterA         string `json:"adapter_a"`
	AdapterB         string `json:"adapter_b"`
	SettleDelay      string `json:"settle_delay"`
	OperationTimeout string `json:"operation_timeout"`
}

// HotkeyConfig is one configured hotkey entry as persisted. Modifier and
// key names are resolved to virtual-key codes when the hook list is built.
type HotkeyConfig struct {
	ID        string   `json:"id"`
	Action    string   `json:"action"` // enableAll | disableAll | switchAdapters | runScript
	Script    string   `json:"script,omitempty"`
	Modifiers []string `json:"modifiers"`
	Key       string   `json:"key"`
	Enabled   bool     `json:"enabled"`
}

// Config - the aggregate application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	MQTT     MQTTConfig     `json:"mqtt"`
	Hook     HookConfig     `json:"hook"`
	Adapters AdaptersConfig `json:"adapters"`
	Hotkeys  []HotkeyConfig `json:"hotkeys"`

	// File system settings
	ScriptsDir    string `json:"scripts_dir"`
	SchedulesFile string `json:"schedules_file"`

	Notifications *bool `json:"notifications"`
}

// Load reads the file, parses the JSON and applies validation/defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.setDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	cfg := &Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	cfg.sanitize()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) sanitize() {
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	c.Server.WebFilesDir = strings.TrimSpace(c.Server.WebFilesDir)
	c.ScriptsDir = strings.TrimSpace(c.ScriptsDir)
	c.SchedulesFile = strings.TrimSpace(c.SchedulesFile)
	c.Adapters.AdapterA = strings.TrimSpace(c.Adapters.AdapterA)
	c.Adapters.AdapterB = strings.TrimSpace(c.Adapters.AdapterB)
}

func (c *Config) setDefaults() {
	// Server Defaults
	if c.Server.Port == "" {
		c.Server.Port = "8686"
	}
	if c.Server.WebFilesDir == "" {
		c.Server.WebFilesDir = "./web"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:8686"}
	}

	// Hook Defaults
	if c.Hook.HealthCheckInterval == "" {
		c.Hook.HealthCheckInterval = "30s"
	}
	if c.Hook.DispatchRateLimit <= 0 {
		c.Hook.DispatchRateLimit = 5.0
	}
	if c.Hook.DispatchRateBurst <= 0 {
		c.Hook.DispatchRateBurst = 3
	}

	// Adapter Defaults
	if c.Adapters.SettleDelay == "" {
		c.Adapters.SettleDelay = "3s"
	}
	if c.Adapters.OperationTimeout == "" {
		c.Adapters.OperationTimeout = "30s"
	}

	// Default hotkeys only when the file carries none at all.
	if len(c.Hotkeys) == 0 {
		c.Hotkeys = []HotkeyConfig{
			{ID: "enable-all", Action: "enableAll", Modifiers: []string{"ctrl", "alt"}, Key: "e", Enabled: true},
			{ID: "disable-all", Action: "disableAll", Modifiers: []string{"ctrl", "alt"}, Key: "d", Enabled: true},
			{ID: "switch", Action: "switchAdapters", Modifiers: []string{"ctrl", "alt"}, Key: "s", Enabled: true},
		}
	}

	// File Defaults
	if c.ScriptsDir == "" {
		c.ScriptsDir = "scripts"
	}
	if c.SchedulesFile == "" {
		c.SchedulesFile = "schedules.json"
	}

	if c.Notifications == nil {
		enabled := true
		c.Notifications = &enabled
	}

	// MQTT Defaults
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "netadapter-agent"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "netadapter"
	}
	if c.MQTT.HADiscoveryPrefix == "" {
		c.MQTT.HADiscoveryPrefix = "homeassistant"
	}
}

var validActions = map[string]bool{
	"enableAll":      true,
	"disableAll":     true,
	"switchAdapters": true,
	"runScript":      true,
}

func (c *Config) validate() error {
	for _, name := range []struct{ field, value string }{
		{"health_check_interval", c.Hook.HealthCheckInterval},
		{"settle_delay", c.Adapters.SettleDelay},
		{"operation_timeout", c.Adapters.OperationTimeout},
	} {
		if _, err := time.ParseDuration(name.value); err != nil {
			return fmt.Errorf("config error: '%s' is not a valid duration: %w", name.field, err)
		}
	}

	for _, hk := range c.Hotkeys {
		if hk.Action != "" && !validActions[hk.Action] {
			return fmt.Errorf("config error: hotkey '%s' has unknown action '%s'", hk.ID, hk.Action)
		}
		if hk.Action == "runScript" && hk.Script == "" {
			return fmt.Errorf("config error: hotkey '%s' runs a script but names none", hk.ID)
		}
	}

	// Duplicate combos are legal: matching resolves them by list order,
	// first entry wins. Warn so the ambiguity is at least visible.
	seen := map[string]string{}
	for _, hk := range c.Hotkeys {
		if !hk.Enabled {
			continue
		}
		combo := comboKey(hk)
		if prev, dup := seen[combo]; dup {
			log.Printf("Warning: hotkeys '%s' and '%s' share combination %s; only '%s' will fire", prev, hk.ID, combo, prev)
			continue
		}
		seen[combo] = hk.ID
	}

	return nil
}

// NotificationsEnabled reports whether desktop notifications are on.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications != nil && *c.Notifications
}

// comboKey normalizes a hotkey combination for duplicate detection.
func comboKey(hk HotkeyConfig) string {
	mods := make([]string, 0, len(hk.Modifiers))
	for _, m := range hk.Modifiers {
		mods = append(mods, strings.ToLower(strings.TrimSpace(m)))
	}
	sort.Strings(mods)
	return strings.Join(mods, "+") + "+" + strings.ToLower(strings.TrimSpace(hk.Key))
}
