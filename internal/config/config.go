// Package config loads dbfdump settings from an INI file.
//
//	[reader]
//	encoding          = gbk
//	skip_deleted      = false
//	resync            = false
//	strict_terminator = false
//
//	[log]
//	level = info
//	file  =
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	godbf "github.com/Ulysses-Xu/go-dbfreader"
)

// Cfg holds the settings read from the [reader] and [log] sections.
type Cfg struct {
	Raw *ini.File

	Encoding         string
	SkipDeleted      bool
	Resync           bool
	StrictTerminator bool

	LogLevel string
	LogFile  string
}

// NewCfg returns the defaults used when no config file is given.
func NewCfg() *Cfg {
	return &Cfg{
		Raw:      ini.Empty(),
		Encoding: godbf.DefaultEncoding,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. A missing file leaves the defaults.
func Load(path string) (*Cfg, error) {
	cfg := NewCfg()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	cfg.Raw = f
	cfg.parseReaderCfg(f.Section("reader"))
	cfg.parseLogCfg(f.Section("log"))
	return cfg, nil
}

func (cfg *Cfg) parseReaderCfg(section *ini.Section) {
	cfg.Encoding = valueAsString(section, "encoding", cfg.Encoding)
	cfg.SkipDeleted = section.Key("skip_deleted").MustBool(cfg.SkipDeleted)
	cfg.Resync = section.Key("resync").MustBool(cfg.Resync)
	cfg.StrictTerminator = section.Key("strict_terminator").MustBool(cfg.StrictTerminator)
}

func (cfg *Cfg) parseLogCfg(section *ini.Section) {
	cfg.LogLevel = valueAsString(section, "level", cfg.LogLevel)
	cfg.LogFile = valueAsString(section, "file", cfg.LogFile)
}

func valueAsString(section *ini.Section, keyName string, defaultValue string) string {
	value := section.Key(keyName).MustString(defaultValue)
	if value == "" {
		return defaultValue
	}
	return value
}

// ReaderConfig converts the settings into a reader configuration.
func (cfg *Cfg) ReaderConfig() *godbf.Config {
	return &godbf.Config{
		Encoding:         cfg.Encoding,
		SkipDeleted:      cfg.SkipDeleted,
		Resync:           cfg.Resync,
		StrictTerminator: cfg.StrictTerminator,
	}
}
