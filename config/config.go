// Package config resolves passwallet options from command-line flags, an
// optional JSON config file and environment variables. Flags set on the
// command line win over the file; environment variables win over both.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fahmaliyi/passwallet/vault"
)

// Options holds the configuration values for the application.
type Options struct {
	// Dir is the data directory holding salt.key and vault.enc.
	Dir string `json:"dir"`

	// SaltPath and VaultPath override the artifact locations inside Dir.
	SaltPath  string `json:"salt_path"`
	VaultPath string `json:"vault_path"`

	// KDF is "pbkdf2" or "argon2id"; it only affects newly created vaults.
	KDF        string `json:"kdf"`
	Iterations uint32 `json:"iterations"`

	LogLevel string `json:"log_level"`

	// UI is "cmd" for the line-oriented loop or "tui" for the browser.
	UI string `json:"ui"`

	ClipboardClear Duration `json:"clipboard_clear"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`
}

// Duration decodes from JSON strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

const (
	envConfig   = "PASSWALLET_CONFIG"
	envDir      = "PASSWALLET_DIR"
	envLogLevel = "PASSWALLET_LOG_LEVEL"
)

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".passwallet"
	}
	return filepath.Join(home, ".passwallet")
}

// Parse builds Options from args (without the program name) and the
// environment.
func Parse(args []string) (*Options, error) {
	opts := &Options{}
	clipClear := time.Duration(0)

	fs := flag.NewFlagSet("passwallet", flag.ContinueOnError)
	fs.StringVar(&opts.Dir, "dir", defaultDir(), "data directory")
	fs.StringVar(&opts.SaltPath, "salt", "", "salt file path (default <dir>/salt.key)")
	fs.StringVar(&opts.VaultPath, "vault", "", "vault file path (default <dir>/vault.enc)")
	fs.StringVar(&opts.KDF, "kdf", "pbkdf2", "key derivation for new vaults: pbkdf2 | argon2id")
	iterations := fs.Uint("iterations", vault.DefaultIterations, "pbkdf2 iterations for new vaults")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "log level")
	fs.StringVar(&opts.UI, "ui", "cmd", "interface: cmd | tui")
	fs.DurationVar(&clipClear, "clipboard-clear", 30*time.Second, "clear copied passwords after")
	fs.StringVar(&opts.Config, "config", "", "path to JSON config file")
	fs.StringVar(&opts.Config, "c", "", "path to JSON config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.Iterations = uint32(*iterations)
	opts.ClipboardClear = Duration{clipClear}

	if configPath := os.Getenv(envConfig); configPath != "" && opts.Config == "" {
		opts.Config = configPath
	}

	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.Config, err)
		}
		fromFile := *opts
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", opts.Config, err)
		}
		// Flags given explicitly win over the file.
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		apply := func(name string, fn func()) {
			if !set[name] {
				fn()
			}
		}
		apply("dir", func() { opts.Dir = fromFile.Dir })
		apply("salt", func() { opts.SaltPath = fromFile.SaltPath })
		apply("vault", func() { opts.VaultPath = fromFile.VaultPath })
		apply("kdf", func() { opts.KDF = fromFile.KDF })
		apply("iterations", func() { opts.Iterations = fromFile.Iterations })
		apply("log-level", func() { opts.LogLevel = fromFile.LogLevel })
		apply("ui", func() { opts.UI = fromFile.UI })
		apply("clipboard-clear", func() { opts.ClipboardClear = fromFile.ClipboardClear })
	}

	if dir := os.Getenv(envDir); dir != "" {
		opts.Dir = dir
	}
	if level := os.Getenv(envLogLevel); level != "" {
		opts.LogLevel = level
	}

	if opts.SaltPath == "" {
		opts.SaltPath = filepath.Join(opts.Dir, "salt.key")
	}
	if opts.VaultPath == "" {
		opts.VaultPath = filepath.Join(opts.Dir, "vault.enc")
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks option values that have a closed set of choices.
func (o *Options) Validate() error {
	var errs []error
	if _, err := o.KDFParams(); err != nil {
		errs = append(errs, err)
	}
	switch o.UI {
	case "cmd", "tui":
	default:
		errs = append(errs, fmt.Errorf("config: unknown ui %q", o.UI))
	}
	if o.ClipboardClear.Duration < 0 {
		errs = append(errs, fmt.Errorf("config: clipboard-clear must not be negative"))
	}
	return errors.Join(errs...)
}

// KDFParams converts the KDF options to the parameters stored in a new
// vault header.
func (o *Options) KDFParams() (*vault.KDFParams, error) {
	var p *vault.KDFParams
	switch o.KDF {
	case "", "pbkdf2":
		p = vault.DefaultKDFParams()
		if o.Iterations != 0 {
			p.Iterations = o.Iterations
		}
	case "argon2id":
		p = vault.Argon2idKDFParams()
	default:
		return nil, fmt.Errorf("config: unknown kdf %q", o.KDF)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return p, nil
}
