package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/target"
)

// EnvPrefix prefixes environment overrides, e.g. WASMBUILD_WASM_MODE.
const EnvPrefix = "WASMBUILD"

type BuildConfig struct {
	EntryPoints []string   `mapstructure:"entry_points"`
	Outfile     string     `mapstructure:"outfile"`
	Outdir      string     `mapstructure:"outdir"`
	Format      string     `mapstructure:"format"`
	Platform    string     `mapstructure:"platform"`
	External    []string   `mapstructure:"external"`
	AssetNames  string     `mapstructure:"asset_names"`
	Metafile    bool       `mapstructure:"metafile"`
	Minify      bool       `mapstructure:"minify"`
	Sourcemap   bool       `mapstructure:"sourcemap"`
	LogLevel    string     `mapstructure:"log_level"`
	Wasm        WasmConfig `mapstructure:"wasm"`
}

// WasmConfig holds plugin configuration.
type WasmConfig struct {
	// Bundling mode for binaries: deferred or embedded.
	Mode string `mapstructure:"mode"`
	// Compilation cache directory. Empty disables the cache.
	CacheDir string `mapstructure:"cache_dir"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"outfile":     "outfile",
	"outdir":      "outdir",
	"format":      "format",
	"platform":    "platform",
	"external":    "external",
	"asset-names": "asset_names",
	"metafile":    "metafile",
	"minify":      "minify",
	"sourcemap":   "sourcemap",
	"log-level":   "log_level",
	"mode":        "wasm.mode",
	"cache-dir":   "wasm.cache_dir",
}

// LoadBuildConfig loads configuration from defaults, the optional config
// file, WASMBUILD_* environment variables and flags, in increasing priority.
// Flags that are absent from the set or were not changed are ignored.
func LoadBuildConfig(configPath string, flags *pflag.FlagSet) (*BuildConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("entry_points", []string{})
	v.SetDefault("outfile", "")
	v.SetDefault("outdir", "")
	v.SetDefault("format", "esm")
	v.SetDefault("platform", "browser")
	v.SetDefault("external", []string{})
	v.SetDefault("asset_names", "assets/[name]-[hash]")
	v.SetDefault("metafile", false)
	v.SetDefault("minify", false)
	v.SetDefault("sourcemap", false)
	v.SetDefault("log_level", "info")

	// Wasm defaults
	v.SetDefault("wasm.mode", "deferred")
	v.SetDefault("wasm.cache_dir", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg BuildConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration is complete and every enum is known.
func (c *BuildConfig) Validate() error {
	if len(c.EntryPoints) == 0 {
		return &ValidationError{Field: "entry_points", Message: "at least one entry point is required"}
	}
	if c.Outfile != "" && c.Outdir != "" {
		return &ValidationError{Field: "outfile", Message: "outfile and outdir are mutually exclusive"}
	}
	if c.Outfile != "" && len(c.EntryPoints) > 1 {
		return &ValidationError{Field: "outfile", Message: "outfile requires a single entry point, use outdir instead"}
	}
	if c.Outfile == "" && c.Outdir == "" {
		return &ValidationError{Field: "outdir", Message: "one of outfile or outdir is required"}
	}

	if _, err := target.ParseFormat(c.Format); err != nil {
		return &ValidationError{Field: "format", Message: err.Error()}
	}
	if _, err := target.ParsePlatform(c.Platform); err != nil {
		return &ValidationError{Field: "platform", Message: err.Error()}
	}
	if _, err := target.ParseMode(c.Wasm.Mode); err != nil {
		return &ValidationError{Field: "wasm.mode", Message: err.Error()}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log_level", Message: fmt.Sprintf("unknown level %q (must be one of: debug, info, warn, error)", c.LogLevel)}
	}

	return nil
}

// OutputFormat returns the parsed output format.
func (c *BuildConfig) OutputFormat() (target.Format, error) {
	return target.ParseFormat(c.Format)
}

// OutputPlatform returns the parsed target platform.
func (c *BuildConfig) OutputPlatform() (target.Platform, error) {
	return target.ParsePlatform(c.Platform)
}

// WasmMode returns the parsed bundling mode.
func (c *BuildConfig) WasmMode() (target.Mode, error) {
	return target.ParseMode(c.Wasm.Mode)
}
