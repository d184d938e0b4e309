package internal

import (
	"errors"
	"fmt"
	"standupbot/domain/standup"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	SlackAPIToken            string        `env:"SLACK_API_TOKEN" validate:"required"`
	StandupChannels          string        `env:"STANDUP_CHANNELS" validate:"required"`
	BotName                  string        `env:"BOT_NAME" validate:"required"`
	AdminUsers               string        `env:"ADMIN_USERS"`
	QuestionsFile            string        `env:"QUESTIONS_FILE"`
	RecapURL                 string        `env:"RECAP_URL" validate:"omitempty,url"`
	BadgerFilepath           string        `env:"BADGER_FILEPATH" validate:"required"`
	BlugeFilepath            string        `env:"BLUGE_FILEPATH" validate:"required"`
	LogLevel                 string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	BufferSize               int           `env:"BUFFER_SIZE,default=100" validate:"min=1"`
	SinkTimeout              time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	SendTimeout              time.Duration `env:"SEND_TIMEOUT,default=5s" validate:"gt=0"`
	RetryBackoff             time.Duration `env:"RETRY_BACKOFF,default=1s" validate:"gte=0"`
	FarewellTimeout          time.Duration `env:"FAREWELL_TIMEOUT,default=5s" validate:"gt=0"`
	RestartInterval          time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	DirectoryRefreshInterval time.Duration `env:"DIRECTORY_REFRESH_INTERVAL,default=10m" validate:"gte=0"`
	MetricInterval           time.Duration `env:"METRIC_INTERVAL,default=0s" validate:"gte=0"`
	DebugPort                int           `env:"DEBUG_PORT,default=0" validate:"gte=0,lte=65535"`
}

var validate = validator.New()

// FromEnviron reads the configuration from the environment.
// The error reports a value that cannot be parsed, the problems list every
// missing or invalid setting at once.
func FromEnviron() (Config, []string, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, nil, err
	}
	return config, config.Validate(), nil
}

// Validate returns one readable line per invalid setting.
func (c Config) Validate() []string {
	var problems []string
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return []string{err.Error()}
		}
		for _, fe := range fieldErrors {
			problems = append(problems, describe(fe))
		}
	}
	if c.StandupChannels != "" && len(c.Channels()) == 0 {
		problems = append(problems, "STANDUP_CHANNELS lists no channel")
	}
	return problems
}

// Channels returns the configured channel names without '#', duplicates removed.
func (c Config) Channels() []string {
	return lo.Uniq(splitList(c.StandupChannels, "#"))
}

// Admins returns the member ids listed in ADMIN_USERS.
func (c Config) Admins() []standup.MemberID {
	return lo.Map(splitList(c.AdminUsers, "@"), func(id string, _ int) standup.MemberID {
		return standup.MemberID(id)
	})
}

func splitList(raw, prefix string) []string {
	items := lo.Map(strings.Split(raw, ","), func(item string, _ int) string {
		return strings.TrimPrefix(strings.TrimSpace(item), prefix)
	})
	return lo.Compact(items)
}

var envNames = map[string]string{
	"SlackAPIToken":            "SLACK_API_TOKEN",
	"StandupChannels":          "STANDUP_CHANNELS",
	"BotName":                  "BOT_NAME",
	"RecapURL":                 "RECAP_URL",
	"BadgerFilepath":           "BADGER_FILEPATH",
	"BlugeFilepath":            "BLUGE_FILEPATH",
	"LogLevel":                 "LOG_LEVEL",
	"BufferSize":               "BUFFER_SIZE",
	"SinkTimeout":              "SINK_TIMEOUT",
	"SendTimeout":              "SEND_TIMEOUT",
	"RetryBackoff":             "RETRY_BACKOFF",
	"FarewellTimeout":          "FAREWELL_TIMEOUT",
	"RestartInterval":          "RESTART_INTERVAL",
	"DirectoryRefreshInterval": "DIRECTORY_REFRESH_INTERVAL",
	"MetricInterval":           "METRIC_INTERVAL",
	"DebugPort":                "DEBUG_PORT",
}

func describe(fe validator.FieldError) string {
	name := lo.ValueOr(envNames, fe.Field(), fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %v", name, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %v", name, fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s=%s), got %v", name, fe.Tag(), fe.Param(), fe.Value())
	}
}
