package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantInfo  bool
		wantDebug bool
		wantErr   bool
	}{
		{level: "", wantInfo: true},
		{level: "info", wantInfo: true},
		{level: "INFO", wantInfo: true},
		{level: "debug", wantInfo: true, wantDebug: true},
		{level: "warn"},
		{level: "warning"},
		{level: "error"},
		{level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := NewWithWriter(tt.level, &buf)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown log level")
				return
			}
			require.NoError(t, err)

			log.Info("deployed stage", "stage", 0)
			log.V(1).Info("change set detail")

			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("deployed stage")))
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("change set detail")))
		})
	}
}

func TestNew_ErrorAlwaysLogged(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("error", &buf)
	require.NoError(t, err)

	log.Error(errors.New("boom"), "stage failed", "resource", "Function")
	assert.Contains(t, buf.String(), "stage failed")
	assert.Contains(t, buf.String(), "Function")
	assert.Contains(t, buf.String(), "boom")
}
