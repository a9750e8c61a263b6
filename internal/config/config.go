package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. COZE_SCRAPER_TIMEOUT.
const EnvPrefix = "COZE"

// AppConfig holds the complete application configuration
type AppConfig struct {
	Scraper    ScraperConfig    `yaml:"scraper" envconfig:"SCRAPER"`
	IO         IOConfig         `yaml:"io" envconfig:"IO"`
	Extraction ExtractionConfig `yaml:"extraction" ignored:"true"`
	Export     ExportConfig     `yaml:"export" envconfig:"EXPORT"`
	Proxies    ProxyConfig      `yaml:"proxies" envconfig:"PROXIES"`
	Browser    BrowserConfig    `yaml:"browser" envconfig:"BROWSER"`
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
}

// ScraperConfig holds the page acquisition configuration
type ScraperConfig struct {
	Source     string        `yaml:"source" envconfig:"SOURCE" validate:"oneof=browser http file"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"gte=0"`
	RetryDelay time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"gte=0"`
	UserAgents []string      `yaml:"user_agents,omitempty" envconfig:"USER_AGENTS"`
}

// IOConfig holds the input/output configuration. OutputFile is a bare file
// name; OutputDir picks the directory.
type IOConfig struct {
	InputFile    string   `yaml:"input_file" envconfig:"INPUT_FILE"`
	OutputDir    string   `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	OutputFile   string   `yaml:"output_file" envconfig:"OUTPUT_FILE" validate:"required,excludesall=/\\"`
	OutputFormat string   `yaml:"output_format" envconfig:"OUTPUT_FORMAT" validate:"oneof=csv json"`
	Headers      []string `yaml:"headers,omitempty" envconfig:"HEADERS" validate:"len=7,dive,required"`
}

// ExtractionConfig is the matcher table. Markup changes upstream should only
// ever need edits here.
type ExtractionConfig struct {
	Card   string                  `yaml:"card" validate:"required"`
	Fields map[string]FieldMatcher `yaml:"fields" validate:"dive"`
}

// FieldMatcher locates one field inside a card. Selector takes precedence
// over XPath. Next moves from the located element to its next element
// sibling, and Within then narrows to the first descendant matching that CSS
// selector. Regex is applied to the resolved value, or to the card's HTML when
// neither Selector nor XPath is set; the first capture group is kept if the
// pattern has one.
type FieldMatcher struct {
	Selector string `yaml:"selector,omitempty" validate:"required_without_all=XPath Regex"`
	XPath    string `yaml:"xpath,omitempty" validate:"required_without_all=Selector Regex"`
	Next     bool   `yaml:"next,omitempty"`
	Within   string `yaml:"within,omitempty"`
	Attr     string `yaml:"attr,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Regex    string `yaml:"regex,omitempty"`
	Type     string `yaml:"type,omitempty" validate:"omitempty,oneof=text int"`
}

// ExportConfig holds the trigger configuration
type ExportConfig struct {
	URLPattern string `yaml:"url_pattern" envconfig:"URL_PATTERN" validate:"required"`
	Force      bool   `yaml:"force" envconfig:"FORCE"`
}

// ProxyConfig holds the proxy configuration
type ProxyConfig struct {
	Enabled bool     `yaml:"enabled" envconfig:"ENABLED"`
	Rotate  bool     `yaml:"rotate" envconfig:"ROTATE"`
	List    []string `yaml:"list" envconfig:"LIST"`
	Auth    struct {
		Username string `yaml:"username" envconfig:"USERNAME"`
		Password string `yaml:"password" envconfig:"PASSWORD"`
	} `yaml:"auth" envconfig:"AUTH"`
}

// BrowserConfig holds the browser configuration for JavaScript rendering
type BrowserConfig struct {
	Headless      bool          `yaml:"headless" envconfig:"HEADLESS"`
	UserAgent     string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	WaitSelector  string        `yaml:"wait_selector" envconfig:"WAIT_SELECTOR"`
	WaitTime      time.Duration `yaml:"wait_time" envconfig:"WAIT_TIME" validate:"gte=0"`
	Screenshot    bool          `yaml:"screenshot" envconfig:"SCREENSHOT"`
	ScreenshotDir string        `yaml:"screenshot_dir" envconfig:"SCREENSHOT_DIR"`
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR" validate:"required"`
}

// LoggingConfig holds the logger configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// Load loads the configuration from a YAML file on top of the defaults, then
// applies environment overrides. An empty filename skips the file.
func Load(filename string) (*AppConfig, error) {
	config := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", filename, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filename, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	// Set default user agents if none provided
	if len(config.Scraper.UserAgents) == 0 {
		config.Scraper.UserAgents = DefaultUserAgents
	}
	if config.Browser.UserAgent == "" {
		config.Browser.UserAgent = config.Scraper.UserAgents[0]
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration against its struct constraints
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default creates the default configuration
func Default() *AppConfig {
	return &AppConfig{
		Scraper: ScraperConfig{
			Source:     SourceBrowser,
			Timeout:    60 * time.Second,
			MaxRetries: 0,
			RetryDelay: 2 * time.Second,
			UserAgents: DefaultUserAgents,
		},
		IO: IOConfig{
			OutputDir:    ".",
			OutputFile:   DefaultOutputFile,
			OutputFormat: FormatCSV,
			Headers:      append([]string(nil), DefaultHeaders...),
		},
		Extraction: ExtractionConfig{
			Card:   DefaultCardSelector,
			Fields: DefaultFields(),
		},
		Export: ExportConfig{
			URLPattern: DefaultURLPattern,
		},
		Proxies: ProxyConfig{
			Enabled: false,
			Rotate:  true,
			List:    []string{},
		},
		Browser: BrowserConfig{
			Headless:      true,
			UserAgent:     DefaultUserAgents[0],
			WaitSelector:  DefaultCardSelector,
			WaitTime:      2 * time.Second,
			Screenshot:    false,
			ScreenshotDir: "screenshots",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
