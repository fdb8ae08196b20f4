package config_test

import (
	"testing"

	"github.com/RukuLab/ruku/pkg/cli/config"
)

func TestLogger_Configure(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{
			name:    "Valid level: debug",
			level:   "debug",
			format:  "console",
			wantErr: false,
		},
		{
			name:    "Valid level: DEBUG (case insensitive)",
			level:   "DEBUG",
			format:  "console",
			wantErr: false,
		},
		{
			name:    "Valid level: info",
			level:   "info",
			format:  "console",
			wantErr: false,
		},
		{
			name:    "Valid level: warn",
			level:   "warn",
			format:  "console",
			wantErr: false,
		},
		{
			name:    "Valid level: error",
			level:   "error",
			format:  "console",
			wantErr: false,
		},
		{
			name:    "Valid format: json",
			level:   "info",
			format:  "json",
			wantErr: false,
		},
		{
			name:    "Valid format: JSON (case insensitive)",
			level:   "info",
			format:  "JSON",
			wantErr: false,
		},
		{
			name:    "Invalid level",
			level:   "invalid",
			format:  "console",
			wantErr: true,
		},
		{
			name:    "Invalid level: empty string",
			level:   "",
			format:  "console",
			wantErr: true,
		},
		{
			name:    "Invalid format",
			level:   "info",
			format:  "yaml",
			wantErr: true,
		},
		{
			name:    "Invalid format: empty string",
			level:   "info",
			format:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &config.Logger{
				Level:  tt.level,
				Format: tt.format,
			}

			result, err := logger.Configure()
			if (err != nil) != tt.wantErr {
				t.Errorf("Configure() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && result == nil {
				t.Error("Configure() returned nil logger without error")
			}
		})
	}
}
