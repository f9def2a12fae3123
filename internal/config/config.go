// The application's root configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/xkilldash9x/uistate/internal/humanoid"
)

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" json:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" json:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" json:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal" yaml:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level" yaml:"level"`
	Format      string      `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// PostgresConfig holds settings for the database connection. An empty URL
// disables run persistence.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// EngineConfig holds settings for the step retry and adaptation loop.
type EngineConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the pacing delay after a repaired target is applied.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// StepSettle is the pause between consecutive plan steps.
	StepSettle time.Duration `mapstructure:"step_settle"`
	// SectionSettle is the pause after navigating to a parent section.
	SectionSettle time.Duration `mapstructure:"section_settle"`
	// WorkerConcurrency bounds how many batch tasks run at once.
	WorkerConcurrency  int           `mapstructure:"worker_concurrency"`
	DefaultTaskTimeout time.Duration `mapstructure:"default_task_timeout"`
}

// BrowserConfig holds settings for the browser session. SlowMoMillis is a plain
// integer so the SLOW_MO environment variable keeps its millisecond meaning.
type BrowserConfig struct {
	Headless          bool            `mapstructure:"headless"`
	IgnoreTLSErrors   bool            `mapstructure:"ignore_tls_errors"`
	StoragePath       string          `mapstructure:"storage_path"`
	SlowMoMillis      int             `mapstructure:"slow_mo"`
	Args              []string        `mapstructure:"args"`
	Viewport          map[string]int  `mapstructure:"viewport"`
	SettleDelay       time.Duration   `mapstructure:"settle_delay"`
	ClickTimeout      time.Duration   `mapstructure:"click_timeout"`
	NavigationTimeout time.Duration   `mapstructure:"navigation_timeout"`
	ElementTimeout    time.Duration   `mapstructure:"element_timeout"`
	WaitForLogin      bool            `mapstructure:"wait_for_login"`
	Humanoid          humanoid.Config `mapstructure:"humanoid"`
}

// CaptureConfig holds output locations for screenshots, datasets and debug dumps.
type CaptureConfig struct {
	ScreenshotDir string `mapstructure:"screenshot_dir"`
	DatasetDir    string `mapstructure:"dataset_dir"`
	DebugDir      string `mapstructure:"debug_dir"`
	// ModalElements adds a cropped screenshot of an open dialog after each
	// captured step.
	ModalElements bool `mapstructure:"modal_elements"`
}

// AgentConfig holds settings for the planning and repair oracles.
type AgentConfig struct {
	LLM LLMConfig `mapstructure:"llm"`
}

// LLMProvider defines the supported LLM providers. All of them speak the
// OpenAI chat completions protocol.
type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderOpenAI LLMProvider = "openai"
	// ProviderOllama is for connecting to a local, self-hosted LLM instance.
	ProviderOllama LLMProvider = "ollama"
)

// LLMConfig holds settings for the language model behind both oracles.
type LLMConfig struct {
	Provider          LLMProvider   `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	Endpoint          string        `mapstructure:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout"`
	PlanTemperature   float32       `mapstructure:"plan_temperature"`
	RepairTemperature float32       `mapstructure:"repair_temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
}

// SetDefaults registers every default and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "uistate")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("engine.max_retries", 2)
	v.SetDefault("engine.retry_delay", 500*time.Millisecond)
	v.SetDefault("engine.step_settle", time.Second)
	v.SetDefault("engine.section_settle", time.Second)
	v.SetDefault("engine.worker_concurrency", 1)
	v.SetDefault("engine.default_task_timeout", 15*time.Minute)

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.storage_path", "browser_storage")
	v.SetDefault("browser.slow_mo", 100)
	v.SetDefault("browser.viewport", map[string]int{"width": 1920, "height": 1080})
	v.SetDefault("browser.settle_delay", 500*time.Millisecond)
	v.SetDefault("browser.click_timeout", 5*time.Second)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.element_timeout", 5*time.Second)
	v.SetDefault("browser.wait_for_login", true)
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.typing_delay", 50*time.Millisecond)
	v.SetDefault("browser.humanoid.typing_jitter", 25*time.Millisecond)
	v.SetDefault("browser.humanoid.pause_variance", 0.25)

	v.SetDefault("capture.screenshot_dir", "screenshots")
	v.SetDefault("capture.dataset_dir", "dataset")
	v.SetDefault("capture.debug_dir", "debug_html")
	v.SetDefault("capture.modal_elements", false)

	v.SetDefault("agent.llm.provider", string(ProviderGroq))
	v.SetDefault("agent.llm.model", "llama-3.1-8b-instant")
	v.SetDefault("agent.llm.endpoint", "https://api.groq.com/openai/v1")
	v.SetDefault("agent.llm.api_timeout", 60*time.Second)
	v.SetDefault("agent.llm.plan_temperature", 0.0)
	v.SetDefault("agent.llm.repair_temperature", 0.2)

	v.SetEnvPrefix("UISTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variable names the tool has always honoured.
	_ = v.BindEnv("agent.llm.api_key", "UISTATE_AGENT_LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("agent.llm.model", "UISTATE_AGENT_LLM_MODEL", "GROQ_MODEL")
	_ = v.BindEnv("agent.llm.repair_temperature", "UISTATE_AGENT_LLM_REPAIR_TEMPERATURE", "GROQ_TEMPERATURE")
	_ = v.BindEnv("browser.headless", "UISTATE_BROWSER_HEADLESS", "HEADLESS")
	_ = v.BindEnv("browser.slow_mo", "UISTATE_BROWSER_SLOW_MO", "SLOW_MO")
	_ = v.BindEnv("browser.storage_path", "UISTATE_BROWSER_STORAGE_PATH", "BROWSER_STORAGE_PATH")
	_ = v.BindEnv("postgres.url", "UISTATE_POSTGRES_URL", "DATABASE_URL")
}

// Validate checks the fields the runtime cannot work without.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.MaxRetries < 0 {
		errs = append(errs, errors.New("engine.max_retries must not be negative"))
	}
	if c.Engine.RetryDelay < 0 {
		errs = append(errs, errors.New("engine.retry_delay must not be negative"))
	}
	if c.Engine.WorkerConcurrency < 1 {
		errs = append(errs, errors.New("engine.worker_concurrency must be at least 1"))
	}
	if c.Browser.ClickTimeout <= 0 {
		errs = append(errs, errors.New("browser.click_timeout must be positive"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("browser.navigation_timeout must be positive"))
	}
	if c.Capture.ScreenshotDir == "" || c.Capture.DatasetDir == "" {
		errs = append(errs, errors.New("capture.screenshot_dir and capture.dataset_dir are required"))
	}
	switch c.Agent.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("agent.llm.provider %q is not supported", c.Agent.LLM.Provider))
	}
	if c.Agent.LLM.Model == "" {
		errs = append(errs, errors.New("agent.llm.model is a required configuration field"))
	}
	return errors.Join(errs...)
}

// Load initializes the configuration singleton from Viper.
func Load(v *viper.Viper) error {
	once.Do(func() {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config: %w", err)
			return
		}
		instance = &cfg
	})
	return loadErr
}

// Set replaces the global configuration. Used by tests and embedding callers.
func Set(cfg *Config) {
	once.Do(func() {})
	instance = cfg
}

// Get returns the loaded configuration instance.
func Get() *Config {
	if instance == nil {
		panic("Configuration not initialized. Call config.Load() in the root command.")
	}
	return instance
}
