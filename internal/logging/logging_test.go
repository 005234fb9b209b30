package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		Desc    string
		Level   string
		Format  string
		Enabled zapcore.Level
		WantErr bool
	}{
		{Desc: "json info", Level: "info", Format: "json", Enabled: zapcore.InfoLevel},
		{Desc: "console debug", Level: "debug", Format: "console", Enabled: zapcore.DebugLevel},
		{Desc: "default format", Level: "warn", Format: "", Enabled: zapcore.WarnLevel},
		{Desc: "bad level", Level: "loud", Format: "json", WantErr: true},
		{Desc: "bad format", Level: "info", Format: "xml", WantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.Desc, func(t *testing.T) {
			logger, err := New(tt.Level, tt.Format)
			if tt.WantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.Enabled))
			if tt.Enabled > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.Enabled-1))
			}
		})
	}
}
