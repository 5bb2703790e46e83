package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdsTier(t *testing.T) {
	tests := []struct {
		words int
		want  Tier
	}{
		{0, TierThin},
		{299, TierThin},
		{300, TierOK},
		{799, TierOK},
		{800, TierStrong},
		{5000, TierStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultThresholds.Tier(tt.words), "words=%d", tt.words)
	}
}

func TestTierAtLeast(t *testing.T) {
	assert.True(t, TierStrong.AtLeast(TierOK))
	assert.True(t, TierOK.AtLeast(TierOK))
	assert.False(t, TierThin.AtLeast(TierOK))
	assert.True(t, TierThin.AtLeast(TierThin))
}
