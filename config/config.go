// Package config loads forma's configuration using Viper.
//
// Sources, in precedence order: environment variables (FORMA_*), a
// forma.toml in the working directory or under $HOME/.config/forma, then
// built-in defaults. Only the CLI reads configuration; the library
// packages take everything through their constructors.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/forma3d/forma/engine"
	"github.com/forma3d/forma/errors"
)

// Config is the forma CLI configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      LogConfig      `mapstructure:"log"`
	Generate GenerateConfig `mapstructure:"generate"`
}

// EngineConfig locates the rule engine module.
type EngineConfig struct {
	// ModulePath is the path to the rule engine compiled to WebAssembly.
	ModulePath string `mapstructure:"module_path"`
}

// LogConfig controls log output.
type LogConfig struct {
	// JSON switches to machine-readable structured output.
	JSON bool `mapstructure:"json"`
}

// GenerateConfig carries generation defaults the CLI applies when the
// shapes document leaves them out.
type GenerateConfig struct {
	Encoder       string `mapstructure:"encoder"`
	OutputPath    string `mapstructure:"output_path"`
	KeepUntouched bool   `mapstructure:"keep_untouched"`
}

// SetDefaults installs the built-in defaults on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine.module_path", "engine.wasm")
	v.SetDefault("log.json", false)
	v.SetDefault("generate.encoder", engine.EncoderInMemory)
	v.SetDefault("generate.output_path", "")
	v.SetDefault("generate.keep_untouched", false)
}

// Load reads configuration from the standard sources.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("FORMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	v.SetConfigName("forma")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/forma")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	return LoadWithViper(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals configuration from a provided Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}
