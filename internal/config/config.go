package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/ladder"
	"github.com/AdamBeresnev/padel-league/internal/swiss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string
	BaseURL    string

	AllowedOrigins []string
	AdminEmails    []string

	SessionLifetime time.Duration
	SweepInterval   time.Duration
	ScoreRateLimit  float64
	ScoreRateBurst  int

	League Policy
}

// Policy is the league rulebook. It can be overridden by the YAML file named in POLICY_FILE.
type Policy struct {
	Ladder ladder.Policy `yaml:"ladder"`
	Swiss  SwissPolicy   `yaml:"swiss"`
}

type SwissPolicy struct {
	Fallback    swiss.Policy  `yaml:"fallback"`
	RoundLength time.Duration `yaml:"round_length"`
	ByeScore    string        `yaml:"bye_score"`

	// Scheduled matches are warned this long before the round deadline. Zero disables it.
	DeadlineWarningLead time.Duration `yaml:"deadline_warning_lead"`
}

func DefaultPolicy() Policy {
	return Policy{
		Ladder: ladder.DefaultPolicy(),
		Swiss: SwissPolicy{
			Fallback:            swiss.PolicyClosest,
			RoundLength:         7 * 24 * time.Hour,
			ByeScore:            "6-0, 6-0",
			DeadlineWarningLead: 48 * time.Hour,
		},
	}
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:          getEnv("DB_PATH", "padel_league.db"),
		ServerPort:      getEnv("SERVER_PORT", "3000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:3000"),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "*")),
		AdminEmails:     splitList(getEnv("ADMIN_EMAILS", "")),
		SessionLifetime: 24 * time.Hour,
		SweepInterval:   time.Hour,
		ScoreRateLimit:  1,
		ScoreRateBurst:  5,
	}

	var err error
	if cfg.SessionLifetime, err = getDuration("SESSION_LIFETIME", cfg.SessionLifetime); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	if v := os.Getenv("SCORE_RATE_LIMIT"); v != "" {
		if cfg.ScoreRateLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid SCORE_RATE_LIMIT: %w", err)
		}
	}

	cfg.League, err = LoadPolicy(os.Getenv("POLICY_FILE"))
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("PAIRING_FALLBACK"); v != "" {
		if cfg.League.Swiss.Fallback, err = swiss.ParsePolicy(v); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("sweep_interval", cfg.SweepInterval).
		Int("challenge_band", cfg.League.Ladder.ChallengeBand).
		Str("pairing_fallback", string(cfg.League.Swiss.Fallback)).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadPolicy overlays the YAML file at path on the default policy. An empty
// path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("failed to unmarshal policy file: %w", err)
	}

	if _, err := swiss.ParsePolicy(string(policy.Swiss.Fallback)); err != nil {
		return Policy{}, err
	}
	if policy.Swiss.RoundLength <= 0 {
		return Policy{}, fmt.Errorf("swiss round_length must be positive")
	}
	if policy.Swiss.DeadlineWarningLead < 0 {
		return Policy{}, fmt.Errorf("swiss deadline_warning_lead must not be negative")
	}
	if err := policy.Ladder.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid ladder policy: %w", err)
	}
	return policy, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
