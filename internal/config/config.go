package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. ":8080")
 * @property {string} mode - Application mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" writes to stderr
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address for metrics
 * @property {string} job - Job label used when pushing
 */
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

/**
 * Defaults for connections to sapcontrol
 * @property {string} username - Default user for basic authentication
 * @property {string} password - Default password, prefer SAPCTL_SAPCONTROL_PASSWORD
 * @property {bool} fallback - Fall back to HTTP on port 5NN13 when HTTPS fails
 * @property {time.Duration} timeout - Transport timeout of a single remote call
 * @property {time.Duration} poll_interval - Interval of status polls
 * @property {string} ca_file - Additional CA bundle for HTTPS verification
 * @property {string} fqdn - Overrides the detected FQDN of the local host
 * @property {string} sapcontrol_path - Executable used if "which sapcontrol" finds nothing
 */
type SAPControlConfig struct {
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Fallback       bool          `mapstructure:"fallback"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	CAFile         string        `mapstructure:"ca_file"`
	FQDN           string        `mapstructure:"fqdn"`
	SAPControlPath string        `mapstructure:"sapcontrol_path"`
}

/**
 * Convergence run history
 * @property {string} path - SQLite database file, empty disables the history, "default" uses ~/.sapctl-keeper/history.db
 */
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

var ErrConfigNotFound = errors.New("config file not found")

type AppConfig struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	SAPControl SAPControlConfig `mapstructure:"sapcontrol"`
	History    HistoryConfig    `mapstructure:"history"`
}

const (
	DefaultSAPControlPath = "/usr/sap/hostctrl/exe/sapcontrol"
	DefaultServerAddress  = "127.0.0.1:8997"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", DefaultServerAddress)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.path", "console")
	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("metrics.job", "sapctl-keeper")
	v.SetDefault("sapcontrol.username", "")
	v.SetDefault("sapcontrol.password", "")
	v.SetDefault("sapcontrol.ca_file", "")
	v.SetDefault("sapcontrol.fqdn", "")
	v.SetDefault("history.path", "")
	v.SetDefault("sapcontrol.fallback", true)
	v.SetDefault("sapcontrol.timeout", 300*time.Second)
	v.SetDefault("sapcontrol.poll_interval", time.Second)
	v.SetDefault("sapcontrol.sapcontrol_path", DefaultSAPControlPath)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SAPCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

/**
 * Load application configuration from YAML file
 * @param {string} path - Explicit config file, empty searches the default locations
 * @returns {*AppConfig} Loaded configuration, defaults applied
 * @returns {error} ErrConfigNotFound if an explicit file is missing, parse errors otherwise
 * @description
 * - Searches sapctl-keeper.yaml in ".", "/etc/sapctl-keeper" and "$HOME/.sapctl-keeper"
 * - A missing file in the default locations is not an error
 * - Environment variables SAPCTL_<SECTION>_<KEY> override file values
 */
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sapctl-keeper")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sapctl-keeper")
		v.AddConfigPath("$HOME/.sapctl-keeper")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case path == "" && errors.As(err, &notFound):
		case errors.Is(err, fs.ErrNotExist), errors.As(err, &notFound):
			return nil, errors.Join(ErrConfigNotFound, err)
		default:
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return collectConfig(&cfg), nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.SAPControl.PollInterval <= 0 {
		cfg.SAPControl.PollInterval = time.Second
	}
	if cfg.SAPControl.Timeout <= 0 {
		cfg.SAPControl.Timeout = 300 * time.Second
	}
	if cfg.SAPControl.SAPControlPath == "" {
		cfg.SAPControl.SAPControlPath = DefaultSAPControlPath
	}
	return cfg
}

// ReloadConfig re-reads the configuration into Config.
func ReloadConfig(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}

func init() {
	cfg, err := LoadConfig("")
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
