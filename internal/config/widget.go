package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// widgetFile is the TOML shape of a widget overlay. Unset keys leave the
// environment value in place.
//
//	max_files = 3
//	max_capacity = 10
//	file_types = ["image/png", "image/jpeg"]
//	description = "Product photos"
//	input_name = "photos"
//	max_file_size = 10485760
//	max_concurrent = 2
//	max_wait = "10s"
//	operation_timeout = "1m"
type widgetFile struct {
	MaxFiles         *int     `toml:"max_files"`
	MaxCapacity      *int     `toml:"max_capacity"`
	FileTypes        []string `toml:"file_types"`
	Description      *string  `toml:"description"`
	InputName        *string  `toml:"input_name"`
	MaxFileSize      *int64   `toml:"max_file_size"`
	MaxConcurrent    *int     `toml:"max_concurrent"`
	MaxWait          *string  `toml:"max_wait"`
	OperationTimeout *string  `toml:"operation_timeout"`
}

// Overlay reads the TOML file at path and applies every key it sets.
func (w *WidgetConfig) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read widget config: %w", err)
	}

	var raw widgetFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse widget config: %w", err)
	}

	if raw.MaxFiles != nil {
		w.MaxFiles = *raw.MaxFiles
	}
	if raw.MaxCapacity != nil {
		w.MaxCapacity = *raw.MaxCapacity
	}
	if raw.FileTypes != nil {
		types := make([]string, 0, len(raw.FileTypes))
		for _, t := range raw.FileTypes {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		w.FileTypes = types
	}
	if raw.Description != nil {
		w.Description = strings.TrimSpace(*raw.Description)
	}
	if raw.InputName != nil {
		w.InputName = strings.TrimSpace(*raw.InputName)
	}
	if raw.MaxFileSize != nil {
		w.MaxFileSize = *raw.MaxFileSize
	}
	if raw.MaxConcurrent != nil {
		w.MaxConcurrent = *raw.MaxConcurrent
	}
	if raw.MaxWait != nil {
		d, err := time.ParseDuration(*raw.MaxWait)
		if err != nil {
			return fmt.Errorf("widget config max_wait: %w", err)
		}
		w.MaxWait = d
	}
	if raw.OperationTimeout != nil {
		d, err := time.ParseDuration(*raw.OperationTimeout)
		if err != nil {
			return fmt.Errorf("widget config operation_timeout: %w", err)
		}
		w.OperationTimeout = d
	}

	w.File = path
	return nil
}
