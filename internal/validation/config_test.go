package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig_OverlaysDefaults(t *testing.T) {
	cfg, err := DecodeConfig(map[string]any{
		"manager": map[string]any{
			"warning_threshold": "3",
			"validator_timeout": "5s",
			"enabled":           "technical,readability",
		},
		"validators": map[string]any{
			"readability": map[string]any{"check_passive_voice": false, "max_sentence_length": 25},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Manager.WarningThreshold)
	assert.Equal(t, 0, cfg.Manager.ErrorThreshold)
	assert.True(t, cfg.Manager.CriticalFails)
	assert.Equal(t, 5*time.Second, cfg.Manager.ValidatorTimeout)
	assert.Equal(t, []string{"technical", "readability"}, cfg.Manager.Enabled)
	assert.False(t, cfg.Validators.Readability.CheckPassiveVoice)
	assert.Equal(t, 25, cfg.Validators.Readability.MaxSentenceLength)
	assert.Equal(t, 50.0, cfg.Validators.Readability.FleschThreshold)
	assert.True(t, cfg.Validators.Technical.CheckURLs)
}

func TestDecodeConfig_Errors(t *testing.T) {
	_, err := DecodeConfig(map[string]any{"manager": map[string]any{"error_threshold": -1}})
	assert.Error(t, err)

	cfg, err := DecodeConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
