// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/perfbench/pkg/logging"
	"github.com/AleutianAI/perfbench/services/perf/engine"
	"github.com/AleutianAI/perfbench/services/perf/fixtures"
	"github.com/AleutianAI/perfbench/services/perf/telemetry"
)

// Config is the perfbench configuration file layout.
type Config struct {
	// Run bounds every benchmark call.
	Run engine.RunConfig `yaml:"run"`

	// Size is the input size handed to strategies.
	Size int `yaml:"size" validate:"gte=1"`

	// Format selects the report format.
	Format string `yaml:"format" validate:"oneof=text yaml"`

	Log       LogConfig        `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Archive   ArchiveConfig    `yaml:"archive"`
}

// LogConfig selects log verbosity and destinations.
type LogConfig struct {
	Level string `yaml:"level" validate:"loglevel"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// ArchiveConfig enables result persistence when Dir is set.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Run:       engine.DefaultRunConfig(),
		Size:      fixtures.DefaultSize,
		Format:    "text",
		Log:       LogConfig{Level: "info"},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	if err := configValidate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		panic(fmt.Sprintf("register loglevel validation: %v", err))
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logging.ParseLevel(fl.Field().String())
	return err == nil
}

// Validate checks the struct tags, including those of the run bounds.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// runOptions converts the run bounds to engine options.
func (c Config) runOptions() []engine.RunOption {
	return []engine.RunOption{engine.WithRunConfig(c.Run)}
}

// shutdownTimeout bounds telemetry flushing at exit.
const shutdownTimeout = 5 * time.Second
