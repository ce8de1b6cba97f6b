package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads variables from path without overriding ones already set.
// An empty path loads ./.env when it exists.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &Error{Msg: fmt.Sprintf("load env file %s", path), Err: err}
	}
	return nil
}

// ApplyEnv overlays notification secrets taken from the environment.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv("REMEDY_SMTP_SERVER"); v != "" {
		if s.Notify.Mail == nil {
			s.Notify.Mail = &MailConfig{}
		}
		s.Notify.Mail.Server = v
	}
	if v := os.Getenv("REMEDY_SLACK_WEBHOOK_URL"); v != "" {
		s.Notify.Slack = &SlackConfig{WebhookURL: v}
	}
	if v := os.Getenv("REMEDY_TELEGRAM_TOKEN"); v != "" {
		if s.Notify.Telegram == nil {
			s.Notify.Telegram = &TelegramConfig{}
		}
		s.Notify.Telegram.Token = v
	}
	if v := os.Getenv("REMEDY_TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &Error{Msg: "REMEDY_TELEGRAM_CHAT_ID", Err: fmt.Errorf("invalid integer %q", v)}
		}
		if s.Notify.Telegram == nil {
			s.Notify.Telegram = &TelegramConfig{}
		}
		s.Notify.Telegram.ChatID = id
	}
	return nil
}
