package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCursor_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	raw, err := EncodeEventCursor(at, "6f1c1f44-8e7b-4c5e-9a55-2b1f7a3c9d10")
	require.NoError(t, err)

	c, err := DecodeEventCursor(raw)
	require.NoError(t, err)
	assert.True(t, at.Equal(c.StartAt))
	assert.Equal(t, "6f1c1f44-8e7b-4c5e-9a55-2b1f7a3c9d10", c.ID)
}

func TestDecodeEventCursor_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "%%%", "e30"} { // e30 is base64("{}")
		_, err := DecodeEventCursor(in)
		assert.Error(t, err, in)
	}
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("6f1c1f44-8e7b-4c5e-9a55-2b1f7a3c9d10"))
	assert.False(t, IsUUID(""))
	assert.False(t, IsUUID("not-a-uuid"))
	assert.False(t, IsUUID("{6f1c1f44-8e7b-4c5e-9a55-2b1f7a3c9d10}"))
}
