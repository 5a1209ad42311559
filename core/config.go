package core

import (
	"fmt"
	"strings"
	"time"
)

type SuggesterConfig struct {
	// MinSimilarity enables the fuzzy header pass when greater than zero.
	MinSimilarity float64 `koanf:"min_similarity" mapstructure:"min_similarity"`
}

type SessionConfig struct {
	PreviewRows int `koanf:"preview_rows" mapstructure:"preview_rows"`
}

type ReportConfig struct {
	MaxErrors int `koanf:"max_errors" mapstructure:"max_errors"`
}

type ProcessingConfig struct {
	// Timeout bounds a single ProcessRows call. Zero means no limit.
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	Suggester   SuggesterConfig  `koanf:"suggester" mapstructure:"suggester"`
	Session     SessionConfig    `koanf:"session" mapstructure:"session"`
	Report      ReportConfig     `koanf:"report" mapstructure:"report"`
	Processing  ProcessingConfig `koanf:"processing" mapstructure:"processing"`
}

const (
	defaultPreviewRows = 5
)

func DefaultConfig() Config {
	return Config{
		ServiceName: "imports",
		Session:     SessionConfig{PreviewRows: defaultPreviewRows},
		Report:      ReportConfig{MaxErrors: defaultReportMaxErrors},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Suggester.MinSimilarity < 0 || c.Suggester.MinSimilarity > 1 {
		return fmt.Errorf("core: suggester.min_similarity must be between 0 and 1")
	}
	if c.Session.PreviewRows < 0 {
		return fmt.Errorf("core: session.preview_rows must not be negative")
	}
	if c.Report.MaxErrors < 0 {
		return fmt.Errorf("core: report.max_errors must not be negative")
	}
	if c.Processing.Timeout < 0 {
		return fmt.Errorf("core: processing.timeout must not be negative")
	}
	return nil
}
