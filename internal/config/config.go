// Package config assembles the command-line configuration from a YAML
// file, TTX_* environment variables and flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/zsiec/teletextdec/internal/teletext"
	"github.com/zsiec/teletextdec/internal/vbi"
)

// EnvPrefix prefixes the environment variable of every flag: --output-dir
// is TTX_OUTPUT_DIR.
const EnvPrefix = "TTX_"

// Config is the decoder configuration.
type Config struct {
	// Input is a file path, "-" for standard input, or an srt:// URL.
	Input      string `yaml:"input"`
	StreamKey  string `yaml:"stream_key"`
	PacketSize int    `yaml:"packet_size"`
	// PID forces the teletext PID; 0 finds it from the PMT.
	PID int `yaml:"pid"`

	Page    Page    `yaml:"page"`
	Subpage Subpage `yaml:"subpage"`

	OutputDir string `yaml:"output_dir"`
	ANSI      bool   `yaml:"ansi"`
	MaxFrames int    `yaml:"max_frames"`

	CacheSize int `yaml:"cache_size"`
	PoolSize  int `yaml:"pool_size"`

	StatsInterval time.Duration `yaml:"stats_interval"`
	Debug         bool          `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StreamKey:     "default",
		PacketSize:    188,
		Page:          Page(teletext.DefaultPage),
		Subpage:       Subpage(teletext.DefaultSubpage),
		CacheSize:     vbi.DefaultCacheSize,
		PoolSize:      8,
		StatsInterval: 10 * time.Second,
	}
}

// Page is a teletext page number written in hex, as on screen: "888".
type Page int

func (p *Page) String() string { return strconv.FormatInt(int64(*p), 16) }

// Type implements pflag.Value.
func (p *Page) Type() string { return "page" }

// Set implements pflag.Value.
func (p *Page) Set(s string) error {
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("page %q: not a hex page number", s)
	}
	*p = Page(n)
	return nil
}

// UnmarshalYAML accepts the page as a string or a plain number, both read
// as hex digits.
func (p *Page) UnmarshalYAML(n *yaml.Node) error {
	return p.Set(n.Value)
}

// Subpage is a hex sub-page number, or "any" (-1) for every sub-page.
type Subpage int

func (s *Subpage) String() string {
	if *s < 0 {
		return "any"
	}
	return strconv.FormatInt(int64(*s), 16)
}

// Type implements pflag.Value.
func (s *Subpage) Type() string { return "subpage" }

// Set implements pflag.Value.
func (s *Subpage) Set(v string) error {
	if v == "any" || v == "-1" {
		*s = -1
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.ToLower(v), "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("subpage %q: not a hex sub-page number", v)
	}
	*s = Subpage(n)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Subpage) UnmarshalYAML(n *yaml.Node) error {
	return s.Set(n.Value)
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration for a command line. getenv is usually
// os.Getenv. Usage output goes to usage; ErrHelp is returned for --help.
func Load(name string, args []string, getenv func(string) string, usage io.Writer) (*Config, error) {
	cfg := Default()

	path := configPath(args)
	if path == "" {
		path = getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	fs := NewFlagSet(name, &cfg)
	fs.SetOutput(usage)

	var envErr error
	fs.VisitAll(func(f *flag.Flag) {
		v := getenv(EnvName(f.Name))
		if v == "" || envErr != nil {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			envErr = fmt.Errorf("%s: %w", EnvName(f.Name), err)
		}
	})
	if envErr != nil {
		return nil, envErr
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 && cfg.Input == "" {
		cfg.Input = fs.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrHelp is returned by Load when help was requested.
var ErrHelp = flag.ErrHelp

// EnvName returns the environment variable for a flag name.
func EnvName(flagName string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// NewFlagSet binds the flags to cfg. Current field values become the flag
// defaults.
func NewFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("config", "c", "", "YAML configuration file")
	fs.StringVarP(&cfg.Input, "input", "i", cfg.Input, "transport stream file, - for stdin, or srt://host:port")
	fs.StringVar(&cfg.StreamKey, "stream-key", cfg.StreamKey, "ingest stream key (SRT stream id without live/)")
	fs.IntVar(&cfg.PacketSize, "packet-size", cfg.PacketSize, "transport packet size, 188 or 204")
	fs.IntVar(&cfg.PID, "pid", cfg.PID, "teletext PID, 0 to find it from the PMT")
	fs.VarP(&cfg.Page, "page", "p", "teletext page to render (hex, 100-8ff)")
	fs.VarP(&cfg.Subpage, "subpage", "s", "sub-page to render (hex), or any")
	fs.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "write rendered pages as PNG files here")
	fs.BoolVarP(&cfg.ANSI, "ansi", "a", cfg.ANSI, "print rendered pages to the terminal")
	fs.IntVarP(&cfg.MaxFrames, "max-frames", "n", cfg.MaxFrames, "stop after this many pages, 0 for no limit")
	fs.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "pages held in the decoder cache")
	fs.IntVar(&cfg.PoolSize, "pool-size", cfg.PoolSize, "frame buffers kept for reuse")
	fs.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "log counters this often, 0 to disable")
	fs.BoolVarP(&cfg.Debug, "debug", "d", cfg.Debug, "debug logging")
	return fs
}

// configPath finds --config/-c in args without parsing the other flags.
func configPath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		for _, prefix := range []string{"--config=", "-c="} {
			if strings.HasPrefix(a, prefix) {
				return strings.TrimPrefix(a, prefix)
			}
		}
		if (a == "--config" || a == "-c") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Input == "" {
		errs = append(errs, errors.New("no input given"))
	}
	if c.PacketSize != 188 && c.PacketSize != 204 {
		errs = append(errs, fmt.Errorf("packet size %d: must be 188 or 204", c.PacketSize))
	}
	if c.PID < 0 || c.PID > 0x1FFE {
		errs = append(errs, fmt.Errorf("pid %d out of range", c.PID))
	}
	selected := map[string]int{teletext.PropPage: int(c.Page), teletext.PropSubpage: int(c.Subpage)}
	for _, spec := range teletext.Properties {
		if v := selected[spec.Name]; v < spec.Min || v > spec.Max {
			errs = append(errs, fmt.Errorf("%s %x not in [%x, %x]", spec.Name, v, spec.Min, spec.Max))
		}
	}
	if c.OutputDir == "" && !c.ANSI {
		errs = append(errs, errors.New("no output: set an output directory or ANSI output"))
	}
	if c.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("max frames %d is negative", c.MaxFrames))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("cache size %d: must be positive", c.CacheSize))
	}
	if c.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("pool size %d is negative", c.PoolSize))
	}
	if c.StatsInterval < 0 {
		errs = append(errs, fmt.Errorf("stats interval %s is negative", c.StatsInterval))
	}
	return errors.Join(errs...)
}
