// Package config loads connection profiles and merges them with
// command-line overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultProfile is used when no --profile is given.
const DefaultProfile = "qualification"

// Error is a configuration problem detected before any network or store activity.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "config: " + e.Msg + ": " + e.Err.Error()
	}
	return "config: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Profile is a named bundle of defaults as written in the profiles file.
type Profile struct {
	URL                string       `json:"url" yaml:"url"`
	Action             string       `json:"action" yaml:"action"`
	Template           string       `json:"template" yaml:"template"`
	CaseDB             string       `json:"casedb" yaml:"casedb"`
	Journal            string       `json:"journal,omitempty" yaml:"journal,omitempty"`
	Timeout            string       `json:"timeout,omitempty" yaml:"timeout,omitempty"`           // Go duration, default 30s
	LockTimeout        string       `json:"lock_timeout,omitempty" yaml:"lock_timeout,omitempty"` // Go duration, 0 = wait forever
	InsecureSkipVerify *bool        `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
	Notify             NotifyConfig `json:"notify" yaml:"notify"`
}

// NotifyConfig selects the failure notification sinks. Only the sinks listed
// are used: without a mail block no failure mail is sent, and there is no
// implicit relay or recipient list.
type NotifyConfig struct {
	Subject  string          `json:"subject,omitempty" yaml:"subject,omitempty"`
	Mail     *MailConfig     `json:"mail,omitempty" yaml:"mail,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty" yaml:"slack,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty"`
}

// MailConfig holds SMTP relay settings.
type MailConfig struct {
	Server     string   `json:"server" yaml:"server"`
	Port       int      `json:"port" yaml:"port"`
	Sender     string   `json:"sender" yaml:"sender"`
	Recipients []string `json:"recipients" yaml:"recipients"`
	CC         []string `json:"cc,omitempty" yaml:"cc,omitempty"`
}

// SlackConfig holds the incoming webhook URL.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token  string `json:"token" yaml:"token"`
	ChatID int64  `json:"chat_id" yaml:"chat_id"`
}

// Profiles maps profile names to their settings.
type Profiles map[string]Profile

// LoadProfiles reads a profiles file. The format follows the extension:
// .yaml/.yml is YAML, anything else is JSON with comments allowed.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("read profiles %s", path), Err: err}
	}

	var profiles Profiles
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &profiles)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), &profiles)
	}
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("parse profiles %s", path), Err: err}
	}
	return profiles, nil
}

// Get returns the named profile.
func (p Profiles) Get(name string) (Profile, error) {
	prof, ok := p[name]
	if !ok {
		return Profile{}, &Error{Msg: fmt.Sprintf("profile %q is not defined (available: %s)", name, strings.Join(p.Names(), ", "))}
	}
	return prof, nil
}

// Names returns the profile names, sorted.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultProfilesPath returns $REMEDY_PROFILES, or profiles.json in the
// user configuration directory.
func DefaultProfilesPath() string {
	if p := os.Getenv("REMEDY_PROFILES"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "profiles.json"
	}
	return filepath.Join(dir, "remedyctl", "profiles.json")
}
