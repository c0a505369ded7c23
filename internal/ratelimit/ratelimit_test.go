package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_WithinBurst(t *testing.T) {
	krl := New(1, 3)
	defer krl.Stop()

	assert.True(t, krl.Allow("10.0.0.1"))
	assert.True(t, krl.Allow("10.0.0.1"))
	assert.True(t, krl.Allow("10.0.0.1"))
	assert.False(t, krl.Allow("10.0.0.1"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	krl := New(1, 1)
	defer krl.Stop()

	assert.True(t, krl.Allow("10.0.0.1"))
	assert.False(t, krl.Allow("10.0.0.1"))
	assert.True(t, krl.Allow("10.0.0.2"))
}

func TestWait_RespectsContextCancellation(t *testing.T) {
	krl := New(0.001, 1)
	defer krl.Stop()

	// Drain the single burst token.
	require.True(t, krl.Allow("10.0.0.1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := krl.Wait(ctx, "10.0.0.1")
	assert.Error(t, err)
}

func TestStop_Idempotent(t *testing.T) {
	krl := New(1, 1)

	krl.Stop()
	krl.Stop()
}
