// Package conf holds the application configuration. Values come from an
// optional YAML file (kratos config source) and are overridden by the
// deployment's environment variables.
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
)

// Bootstrap is the root configuration object.
type Bootstrap struct {
	Bot     *Bot     `json:"bot"`
	Data    *Data    `json:"data"`
	Posting *Posting `json:"posting"`
}

// Bot configures the chat platform surface.
type Bot struct {
	Token              string  `json:"token"`
	ChannelID          int64   `json:"channel_id"`
	SudoUsers          []int64 `json:"sudo_users"`
	ImagesDir          string  `json:"images_dir"`
	PollTimeoutSeconds int     `json:"poll_timeout_seconds"`
}

// Operator is the user id that receives operational alerts.
func (b *Bot) Operator() int64 {
	if len(b.SudoUsers) == 0 {
		return 0
	}
	return b.SudoUsers[0]
}

// IsSudo reports whether id belongs to the configured sudo users.
func (b *Bot) IsSudo(id int64) bool {
	for _, u := range b.SudoUsers {
		if u == id {
			return true
		}
	}
	return false
}

// Data configures storage backends.
type Data struct {
	Database Database `json:"database"`
	Redis    Redis    `json:"redis"`
}

// Database configures the postgres connection.
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
	Pool   Pool   `json:"pool"`
}

// Pool configures the pgx connection pool.
type Pool struct {
	MaxOpenConns    int32 `json:"max_open_conns"`
	MinIdleConns    int32 `json:"min_idle_conns"`
	MaxConnLifetime int64 `json:"max_conn_lifetime"`  // minutes
	MaxConnIdleTime int64 `json:"max_conn_idle_time"` // minutes
}

// Redis configures the cache connection.
type Redis struct {
	Addr                string `json:"addr"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

// Posting configures the posting pipeline and scheduler.
type Posting struct {
	RateMinMinutes      int    `json:"rate_min_minutes"`
	RateMaxMinutes      int    `json:"rate_max_minutes"`
	CompilationPoolSize int    `json:"compilation_pool_size"`
	CheckpointAt        string `json:"checkpoint_at"` // "HH:MM", local time
	ColorQuality        int    `json:"color_quality"` // dominant color sampling stride
}

// Load reads the configuration file at path (skipped when absent), applies
// environment overrides and validates the result.
func Load(path string) (*Bootstrap, error) {
	bc := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			c := config.New(config.WithSource(file.NewSource(path)))
			defer c.Close()

			if err := c.Load(); err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
			if err := c.Scan(bc); err != nil {
				return nil, fmt.Errorf("failed to scan config: %w", err)
			}
		}
	}

	if err := applyEnv(bc); err != nil {
		return nil, err
	}
	if err := validate(bc); err != nil {
		return nil, err
	}
	return bc, nil
}

func defaults() *Bootstrap {
	return &Bootstrap{
		Bot: &Bot{
			ImagesDir:          "/usr/share/autoposter_images",
			PollTimeoutSeconds: 10,
		},
		Data: &Data{
			Database: Database{Driver: "postgres"},
			Redis:    Redis{Addr: "localhost:6379"},
		},
		Posting: &Posting{
			CompilationPoolSize: 10,
			CheckpointAt:        "12:30",
			ColorQuality:        6,
		},
	}
}

// applyEnv maps the deployment's environment variables onto the config.
func applyEnv(bc *Bootstrap) error {
	if v := os.Getenv("TG_TOKEN"); v != "" {
		bc.Bot.Token = v
	}
	if v := os.Getenv("CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CHANNEL_ID %q: %w", v, err)
		}
		bc.Bot.ChannelID = id
	}
	if v := os.Getenv("SUDO_USERS"); v != "" {
		users, err := parseSudoUsers(v)
		if err != nil {
			return err
		}
		bc.Bot.SudoUsers = users
	}
	if v := os.Getenv("IMAGES_PATH"); v != "" {
		bc.Bot.ImagesDir = v
	}
	if v := os.Getenv("DATABASE_CONN"); v != "" {
		bc.Data.Database.Source = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		bc.Data.Redis.Addr = v
	}
	if v := os.Getenv("POSTING_RATE_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POSTING_RATE_MIN %q: %w", v, err)
		}
		bc.Posting.RateMinMinutes = n
	}
	if v := os.Getenv("POSTING_RATE_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POSTING_RATE_MAX %q: %w", v, err)
		}
		bc.Posting.RateMaxMinutes = n
	}
	if v := os.Getenv("COMPILATION_NUM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid COMPILATION_NUM %q: %w", v, err)
		}
		bc.Posting.CompilationPoolSize = n
	}
	return nil
}

// parseSudoUsers parses a semicolon-separated id list, e.g. "123;456".
func parseSudoUsers(s string) ([]int64, error) {
	parts := strings.Split(s, ";")
	users := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SUDO_USERS entry %q: %w", p, err)
		}
		users = append(users, id)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("SUDO_USERS contains no ids")
	}
	return users, nil
}

func validate(bc *Bootstrap) error {
	if bc.Bot.Token == "" {
		return fmt.Errorf("bot token is required (TG_TOKEN)")
	}
	if bc.Bot.ChannelID == 0 {
		return fmt.Errorf("channel id is required (CHANNEL_ID)")
	}
	if len(bc.Bot.SudoUsers) == 0 {
		return fmt.Errorf("at least one sudo user is required (SUDO_USERS)")
	}
	if bc.Data.Database.Source == "" {
		return fmt.Errorf("database connection string is required (DATABASE_CONN)")
	}
	if bc.Posting.RateMinMinutes <= 0 || bc.Posting.RateMaxMinutes < bc.Posting.RateMinMinutes {
		return fmt.Errorf("posting rate range %d..%d is invalid",
			bc.Posting.RateMinMinutes, bc.Posting.RateMaxMinutes)
	}
	if bc.Posting.CompilationPoolSize < 2 {
		return fmt.Errorf("compilation pool size must be at least 2")
	}
	if _, err := ParseClock(bc.Posting.CheckpointAt); err != nil {
		return err
	}
	return nil
}

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}
