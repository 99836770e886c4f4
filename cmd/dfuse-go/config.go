package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-dfuse/dfu"
)

// fileConfig is the optional YAML configuration file.
//
//	vendor: "0483"
//	product: "df11"
//	interface: 0
//	address: "0x08000000"
//	timeout: 5s
//	poll_limit: 10000
//	log_level: info
type fileConfig struct {
	Vendor    string        `yaml:"vendor"`
	Product   string        `yaml:"product"`
	Interface *int          `yaml:"interface"`
	Address   string        `yaml:"address"`
	Timeout   time.Duration `yaml:"timeout"`
	PollLimit *int          `yaml:"poll_limit"`
	LogLevel  string        `yaml:"log_level"`
}

// flags holds the raw command line.
type flags struct {
	list       bool
	download   string
	address    string
	device     string
	iface      int
	massErase  bool
	configFile string
	timeout    time.Duration
	pollLimit  int
	verbose    bool
	version    bool
}

// Config is the resolved configuration. Flags win over the file.
type Config struct {
	List      bool
	Download  string
	MassErase bool
	Version   bool

	Filter    dfu.Filter
	Address   *uint32
	Interface int
	Timeout   time.Duration
	PollLimit int
	LogLevel  slog.Level
}

func newFlagSet(f *flags, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("dfuse-go", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.BoolVar(&f.list, "l", false, "List available DFU devices")
	fs.StringVar(&f.download, "D", "", "Download firmware from `file` to device")
	fs.StringVar(&f.address, "a", "", "Device `address` in hex for DfuSe devices")
	fs.StringVar(&f.device, "d", "", "DFU device in hex as `vid:pid`")
	fs.IntVar(&f.iface, "i", 0, "USB `interface` to use for downloading")
	fs.BoolVar(&f.massErase, "m", false, "Mass erase the device (alone, or before downloading)")
	fs.StringVar(&f.configFile, "config", "", "Configuration `file` path (YAML)")
	fs.DurationVar(&f.timeout, "timeout", 5*time.Second, "Timeout of each control transfer")
	fs.IntVar(&f.pollLimit, "poll-limit", 10000, "Maximum status polls per request (0 = unlimited)")
	fs.BoolVar(&f.verbose, "v", false, "Print verbose debug statements")
	fs.BoolVar(&f.version, "V", false, "Print the version number")
	return fs
}

// parseConfig parses args and merges the configuration file they name.
func parseConfig(args []string, output io.Writer) (*Config, error) {
	var f flags
	fs := newFlagSet(&f, output)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	var file fileConfig
	if f.configFile != "" {
		loaded, err := loadFileConfig(f.configFile)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	cfg := &Config{
		List:      f.list,
		Download:  f.download,
		MassErase: f.massErase,
		Version:   f.version,
		Interface: f.iface,
		Timeout:   f.timeout,
		PollLimit: f.pollLimit,
		LogLevel:  slog.LevelInfo,
	}

	if !set["i"] && file.Interface != nil {
		cfg.Interface = *file.Interface
	}
	if !set["timeout"] && file.Timeout > 0 {
		cfg.Timeout = file.Timeout
	}
	if !set["poll-limit"] && file.PollLimit != nil {
		cfg.PollLimit = *file.PollLimit
	}
	if cfg.PollLimit < 0 {
		return nil, fmt.Errorf("invalid poll limit %d", cfg.PollLimit)
	}

	if file.LogLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(file.LogLevel)); err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
	}
	if f.verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	if f.device != "" {
		filter, err := parseDevice(f.device)
		if err != nil {
			return nil, err
		}
		cfg.Filter = filter
	} else {
		for _, v := range []struct {
			name string
			raw  string
			dst  *uint16
		}{
			{"vendor", file.Vendor, &cfg.Filter.VendorID},
			{"product", file.Product, &cfg.Filter.ProductID},
		} {
			if v.raw == "" {
				continue
			}
			id, err := parseID(v.raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", v.name, err)
			}
			*v.dst = id
		}
	}

	rawAddr := f.address
	if rawAddr == "" {
		rawAddr = file.Address
	}
	if rawAddr != "" {
		addr, err := parseAddress(rawAddr)
		if err != nil {
			return nil, err
		}
		cfg.Address = &addr
	}

	return cfg, nil
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// parseDevice parses a "vid:pid" filter in hex. Either side may be empty.
func parseDevice(s string) (dfu.Filter, error) {
	vid, pid, ok := strings.Cut(s, ":")
	if !ok {
		return dfu.Filter{}, fmt.Errorf("invalid device %q, expected <vid>:<pid>", s)
	}

	var f dfu.Filter
	var err error
	if vid != "" {
		if f.VendorID, err = parseID(vid); err != nil {
			return dfu.Filter{}, fmt.Errorf("invalid vendor id: %w", err)
		}
	}
	if pid != "" {
		if f.ProductID, err = parseID(pid); err != nil {
			return dfu.Filter{}, fmt.Errorf("invalid product id: %w", err)
		}
	}
	return f, nil
}

func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(trimHex(s), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// parseAddress parses a hex address, with or without the 0x prefix.
func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(trimHex(s), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

func trimHex(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
