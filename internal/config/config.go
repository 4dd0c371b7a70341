package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Services ServicesConfig `mapstructure:"services"`
	Humanize HumanizeConfig `mapstructure:"humanize"`
}

// ColorConfig defines the color settings for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug"`
	Info  string `mapstructure:"info"`
	Warn  string `mapstructure:"warn"`
	Error string `mapstructure:"error"`
	Fatal string `mapstructure:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level"`
	Format      string      `mapstructure:"format"`
	AddSource   bool        `mapstructure:"add_source"`
	ServiceName string      `mapstructure:"service_name"`
	LogFile     string      `mapstructure:"log_file"`
	MaxSize     int         `mapstructure:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups"`
	MaxAge      int         `mapstructure:"max_age"`
	Compress    bool        `mapstructure:"compress"`
	Colors      ColorConfig `mapstructure:"colors"`
}

// PostgresConfig holds settings for the tab-state and result store.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// BrowserConfig holds settings for the driven browser.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors"`
	Args            []string `mapstructure:"args"`
	UserDataDir     string   `mapstructure:"user_data_dir"`

	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	StableDOMTimeout  time.Duration `mapstructure:"stable_dom_timeout"`
	StableChecks      int           `mapstructure:"stable_checks"`
	StablePadding     time.Duration `mapstructure:"stable_padding"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
	UploadTimeout     time.Duration `mapstructure:"upload_timeout"`

	// ChangeThreshold is the interactive-fingerprint churn ratio above which
	// the page is considered changed.
	ChangeThreshold float64 `mapstructure:"change_threshold"`
}

// EngineConfig bounds the per-page resolution loop.
type EngineConfig struct {
	MaxIterations          int           `mapstructure:"max_iterations"`
	MaxAttemptsPerQuestion int           `mapstructure:"max_attempts_per_question"`
	MaxPages               int           `mapstructure:"max_pages"`
	SubmitWaitTimeout      time.Duration `mapstructure:"submit_wait_timeout"`
	RecoveryPasses         int           `mapstructure:"recovery_passes"`
	DebounceWindow         time.Duration `mapstructure:"debounce_window"`
}

// ResolverConfig tunes the answer-resolution layers.
type ResolverConfig struct {
	// SalaryKeywords are the label substrings that trigger the last-attempt
	// salary heuristic. Locale variants go here rather than in code.
	SalaryKeywords []string `mapstructure:"salary_keywords"`
	DefaultSalary  float64  `mapstructure:"default_salary"`

	ConsentPhrases []string `mapstructure:"consent_phrases"`

	FallbackSkills []string `mapstructure:"fallback_skills"`
	UploadsRoot    string   `mapstructure:"uploads_root"`

	// Thresholds in [0,100].
	RadioThreshold         float64 `mapstructure:"radio_threshold"`
	RadioRequiredThreshold float64 `mapstructure:"radio_required_threshold"`
	DropdownThreshold      float64 `mapstructure:"dropdown_threshold"`
	CheckboxBaseThreshold  float64 `mapstructure:"checkbox_base_threshold"`
	EmbeddingMinScore      float64 `mapstructure:"embedding_min_score"`
}

// ServiceEndpoint is one external collaborator address.
type ServiceEndpoint struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServicesConfig wires the external service clients.
type ServicesConfig struct {
	LLM            ServiceEndpoint `mapstructure:"llm"`
	NearestAddress ServiceEndpoint `mapstructure:"nearest_address"`
	BestResume     ServiceEndpoint `mapstructure:"best_resume"`
	Verification   ServiceEndpoint `mapstructure:"verification"`
	JobData        ServiceEndpoint `mapstructure:"job_data"`

	// EmbedWorkerAddr is the persistent embedding worker port address.
	EmbedWorkerAddr    string        `mapstructure:"embed_worker_addr"`
	EmbedTimeout       time.Duration `mapstructure:"embed_timeout"`
	SingleFlightTTL    time.Duration `mapstructure:"single_flight_ttl"`
	ProfilePath        string        `mapstructure:"profile_path"`
	VerificationMaxAge time.Duration `mapstructure:"verification_max_age"`
}

// HumanizeConfig tunes the synthetic input cadence.
type HumanizeConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	KeyHoldMeanMs    float64 `mapstructure:"key_hold_mean_ms"`
	InterKeyMeanMs   float64 `mapstructure:"inter_key_mean_ms"`
	InterKeyJitterMs float64 `mapstructure:"inter_key_jitter_ms"`
	PauseMeanMs      float64 `mapstructure:"pause_mean_ms"`
}

// SetDefaults installs defaults so the app can run with a minimal config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "applypilot")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 45*time.Second)
	v.SetDefault("browser.stable_dom_timeout", 20*time.Second)
	v.SetDefault("browser.stable_checks", 3)
	v.SetDefault("browser.stable_padding", 250*time.Millisecond)
	v.SetDefault("browser.action_timeout", 10*time.Second)
	v.SetDefault("browser.upload_timeout", 60*time.Second)
	v.SetDefault("browser.change_threshold", 0.15)

	v.SetDefault("engine.max_iterations", 5)
	v.SetDefault("engine.max_attempts_per_question", 3)
	v.SetDefault("engine.max_pages", 12)
	v.SetDefault("engine.submit_wait_timeout", 30*time.Second)
	v.SetDefault("engine.recovery_passes", 2)
	v.SetDefault("engine.debounce_window", time.Second)

	v.SetDefault("resolver.salary_keywords", []string{"salary", "compensation", "pay expectation"})
	v.SetDefault("resolver.default_salary", 80000.0)
	v.SetDefault("resolver.consent_phrases", []string{"i agree", "i consent", "acknowledge", "confirm"})
	v.SetDefault("resolver.fallback_skills", []string{"Communication", "Teamwork", "Problem Solving"})
	v.SetDefault("resolver.uploads_root", "uploads")
	v.SetDefault("resolver.radio_threshold", 65.0)
	v.SetDefault("resolver.radio_required_threshold", 50.0)
	v.SetDefault("resolver.dropdown_threshold", 65.0)
	v.SetDefault("resolver.checkbox_base_threshold", 60.0)
	v.SetDefault("resolver.embedding_min_score", 0.78)

	v.SetDefault("services.llm.timeout", 90*time.Second)
	v.SetDefault("services.nearest_address.timeout", 20*time.Second)
	v.SetDefault("services.best_resume.timeout", 30*time.Second)
	v.SetDefault("services.verification.timeout", 20*time.Second)
	v.SetDefault("services.job_data.timeout", 20*time.Second)
	v.SetDefault("services.embed_timeout", 10*time.Second)
	v.SetDefault("services.single_flight_ttl", 30*time.Second)
	v.SetDefault("services.profile_path", "profile.json")
	v.SetDefault("services.verification_max_age", 5*time.Minute)

	v.SetDefault("humanize.enabled", true)
	v.SetDefault("humanize.key_hold_mean_ms", 55.0)
	v.SetDefault("humanize.inter_key_mean_ms", 90.0)
	v.SetDefault("humanize.inter_key_jitter_ms", 35.0)
	v.SetDefault("humanize.pause_mean_ms", 350.0)
}

// Load unmarshals the viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxIterations <= 0 {
		return fmt.Errorf("engine.max_iterations must be positive, got %d", c.Engine.MaxIterations)
	}
	if c.Engine.MaxAttemptsPerQuestion <= 0 {
		return fmt.Errorf("engine.max_attempts_per_question must be positive, got %d", c.Engine.MaxAttemptsPerQuestion)
	}
	if c.Browser.ChangeThreshold <= 0 || c.Browser.ChangeThreshold > 1 {
		return fmt.Errorf("browser.change_threshold must be in (0,1], got %f", c.Browser.ChangeThreshold)
	}
	for name, th := range map[string]float64{
		"resolver.radio_threshold":    c.Resolver.RadioThreshold,
		"resolver.dropdown_threshold": c.Resolver.DropdownThreshold,
	} {
		if th < 0 || th > 100 {
			return fmt.Errorf("%s must be in [0,100], got %f", name, th)
		}
	}
	return nil
}
