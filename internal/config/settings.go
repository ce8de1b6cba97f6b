package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a request when neither flag nor profile sets one.
const DefaultTimeout = 30 * time.Second

// Settings is the effective configuration of one invocation.
type Settings struct {
	Profile            string
	URL                string
	Action             string
	Template           string
	CaseDB             string
	Journal            string
	Timeout            time.Duration
	LockTimeout        time.Duration
	InsecureSkipVerify bool
	Notify             NotifyConfig
}

// Overrides holds the values given explicitly on the command line.
// A nil field was not set and falls back to the profile.
type Overrides struct {
	URL                *string
	Action             *string
	Template           *string
	CaseDB             *string
	Journal            *string
	Timeout            *time.Duration
	LockTimeout        *time.Duration
	InsecureSkipVerify *bool
}

// Merge fills every field not set in o from prof.
func Merge(name string, prof Profile, o Overrides) (Settings, error) {
	s := Settings{
		Profile:            name,
		URL:                pick(o.URL, prof.URL),
		Action:             pick(o.Action, prof.Action),
		Template:           pick(o.Template, prof.Template),
		CaseDB:             pick(o.CaseDB, prof.CaseDB),
		Journal:            pick(o.Journal, prof.Journal),
		Timeout:            DefaultTimeout,
		InsecureSkipVerify: prof.InsecureSkipVerify != nil && *prof.InsecureSkipVerify,
		Notify:             prof.Notify.clone(),
	}

	var problems []string
	if o.Timeout != nil {
		s.Timeout = *o.Timeout
	} else if prof.Timeout != "" {
		d, err := time.ParseDuration(prof.Timeout)
		if err != nil {
			problems = append(problems, fmt.Sprintf("timeout %q: %v", prof.Timeout, err))
		}
		s.Timeout = d
	}
	if o.LockTimeout != nil {
		s.LockTimeout = *o.LockTimeout
	} else if prof.LockTimeout != "" {
		d, err := time.ParseDuration(prof.LockTimeout)
		if err != nil {
			problems = append(problems, fmt.Sprintf("lock_timeout %q: %v", prof.LockTimeout, err))
		}
		s.LockTimeout = d
	}
	if o.InsecureSkipVerify != nil {
		s.InsecureSkipVerify = *o.InsecureSkipVerify
	}

	if len(problems) > 0 {
		return Settings{}, validationError(problems)
	}
	return s, nil
}

func pick(flag *string, fallback string) string {
	if flag != nil {
		return *flag
	}
	return fallback
}

// ValidateStore checks the settings every command needs.
func (s Settings) ValidateStore() error {
	var problems []string
	if s.CaseDB == "" {
		problems = append(problems, "casedb is required")
	}
	if s.LockTimeout < 0 {
		problems = append(problems, "lock_timeout must not be negative")
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}

// ValidateCreate checks the settings needed to create a ticket.
func (s Settings) ValidateCreate() error {
	var problems []string
	if s.URL == "" {
		problems = append(problems, "url is required")
	}
	if s.Action == "" {
		problems = append(problems, "action is required")
	}
	if s.Template == "" {
		problems = append(problems, "template is required")
	}
	if s.CaseDB == "" {
		problems = append(problems, "casedb is required")
	}
	if s.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if s.LockTimeout < 0 {
		problems = append(problems, "lock_timeout must not be negative")
	}
	if m := s.Notify.Mail; m != nil && len(m.Recipients) > 0 && m.Sender == "" {
		problems = append(problems, "notify.mail.sender is required when recipients are set")
	}
	if len(problems) > 0 {
		return validationError(problems)
	}
	return nil
}

func validationError(problems []string) *Error {
	return &Error{Msg: "validation failed:\n  - " + strings.Join(problems, "\n  - ")}
}

func (n NotifyConfig) clone() NotifyConfig {
	out := NotifyConfig{Subject: n.Subject}
	if n.Mail != nil {
		m := *n.Mail
		m.Recipients = append([]string(nil), n.Mail.Recipients...)
		m.CC = append([]string(nil), n.Mail.CC...)
		out.Mail = &m
	}
	if n.Slack != nil {
		sl := *n.Slack
		out.Slack = &sl
	}
	if n.Telegram != nil {
		tg := *n.Telegram
		out.Telegram = &tg
	}
	return out
}
