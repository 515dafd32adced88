package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Template store backends
	StoreMemory = "memory"
	StoreRedis  = "redis"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultTemplateKey = "formfill:templates"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "FORMFILL"
)

// Config holds all configuration for the form fill server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory string
	MaxFileSize  int64 // Maximum PDF file size in bytes
	Flatten      bool  // Freeze forms after filling unless a request says otherwise

	// Template persistence
	TemplateStore string // "memory" or "redis"
	RedisURL      string
	TemplateKey   string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio,
		Host:          DefaultHost,
		Port:          DefaultPort,
		PDFDirectory:  currentDir,
		MaxFileSize:   DefaultMaxFileSize,
		TemplateStore: StoreMemory,
		TemplateKey:   DefaultTemplateKey,
		Version:       "1.0.0",
		ServerName:    "formfill-mcp",
		LogLevel:      DefaultLogLevel,
	}
}

// ErrVersionRequested is returned by LoadFromFlags when --version is present.
var ErrVersionRequested = errors.New("version requested")

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("flatten", cfg.Flatten)
	viper.SetDefault("templatestore", cfg.TemplateStore)
	viper.SetDefault("redisurl", cfg.RedisURL)
	viper.SetDefault("templatekey", cfg.TemplateKey)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP (SSE) server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF forms; all paths are confined to it")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Bool("flatten", cfg.Flatten, "Flatten forms after filling by default")
	pflag.String("templatestore", cfg.TemplateStore, "Template store backend: 'memory' or 'redis'")
	pflag.String("redisurl", cfg.RedisURL, "Redis URL for the redis template store (redis://host:port/db)")
	pflag.String("templatekey", cfg.TemplateKey, "Redis hash holding the templates")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "loglevel", "maxfilesize",
		"flatten", "templatestore", "redisurl", "templatekey",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nFormFill MCP - A Model Context Protocol server for discovering and filling PDF forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms --flatten           "+
			"# stdio mode, flatten filled forms\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                # SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --templatestore=redis --redisurl=redis://localhost:6379/0\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_MODE          Server mode\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_DIR           PDF directory\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_MAXFILESIZE   Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_FLATTEN       Flatten by default\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_TEMPLATESTORE Template store backend\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_REDISURL      Redis URL\n")
		fmt.Fprintf(os.Stderr, "  FORMFILL_TEMPLATEKEY   Redis hash for templates\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Flatten = viper.GetBool("flatten")
	cfg.TemplateStore = viper.GetString("templatestore")
	cfg.RedisURL = viper.GetString("redisurl")
	cfg.TemplateKey = viper.GetString("templatekey")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	switch c.TemplateStore {
	case StoreMemory, "":
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("redis template store requires a redis URL")
		}
	default:
		return fmt.Errorf("invalid template store: %s (must be one of: memory, redis)", c.TemplateStore)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"Flatten: %t, TemplateStore: %s}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize, c.Flatten, c.TemplateStore)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
