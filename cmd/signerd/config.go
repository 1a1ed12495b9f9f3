/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/johanstenstam/signerd/signer"
)

// Config is the daemon's own configuration, unmarshalled from YAML by
// viper and checked section-by-section with go-playground/validator,
// exactly as the teacher's tdnsd config layer does it.
type Config struct {
	Service struct {
		Name       string `validate:"required"`
		NumWorkers int    `validate:"required"`
	}
	Log struct {
		File string `validate:"required"`
	}
	Signing struct {
		ToolDir      string `validate:"required"`
		ZoneWorkDir  string `validate:"required"`
		ZoneListFile string `validate:"required"`
		SocketPath   string `validate:"required"`
		Notify       string
	}
}

// readZoneListRaw checks that the zone list file exists and parses as
// a plain YAML document. The zone list is kept out of viper.Unmarshal
// (viper does not reliably populate a map[string]StructType) and is
// loaded by the engine itself with yaml.v3; this is only an early check
// at config-parse time.
func readZoneListRaw(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("zone list file %q: %v", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var probe struct {
		Zones []map[string]interface{} `yaml:"zones"`
	}
	return yaml.Unmarshal(data, &probe)
}

// ParseConfig loads the daemon configuration file via viper, validates
// it section by section, and fails fast (Fatalf) on any problem, per
// the teacher's ParseConfig idiom.
func ParseConfig(cfgFile string) (*Config, error) {
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("ParseConfig: error reading config %q: %v", cfgFile, err)
	}

	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		log.Fatalf("ParseConfig: Unmarshal error: %v", err)
	}

	if err := validateConfig(&conf, cfgFile); err != nil {
		log.Fatalf("Config %q is missing required attributes:\n%v", cfgFile, err)
	}

	if err := readZoneListRaw(conf.Signing.ZoneListFile); err != nil {
		log.Fatalf("ParseConfig: zone list: %v", err)
	}

	return &conf, nil
}

func validateConfig(conf *Config, cfgFile string) error {
	validate := validator.New()
	sections := map[string]interface{}{
		"service": conf.Service,
		"log":     conf.Log,
		"signing": conf.Signing,
	}
	for name, data := range sections {
		log.Printf("SIGNERD: validating config section %q", name)
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("section %s: %v", strings.ToUpper(name), err)
		}
	}
	return nil
}

// toEngineConfig adapts the daemon's own Config into the core engine's
// EngineConfig.
func (c *Config) toEngineConfig(cfgFile string) signer.EngineConfig {
	return signer.EngineConfig{
		ToolDir:       c.Signing.ToolDir,
		ZoneWorkDir:   c.Signing.ZoneWorkDir,
		ZoneListFile:  c.Signing.ZoneListFile,
		SocketPath:    c.Signing.SocketPath,
		NumWorkers:    c.Service.NumWorkers,
		NotifyCommand: c.Signing.Notify,
		EngineCfgFile: cfgFile,
	}
}
