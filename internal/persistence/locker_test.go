package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamLockerWithoutRedisIsNoop(t *testing.T) {
	locker := NewTeamLocker(nil, time.Second)
	release, err := locker.Lock(context.Background(), "team-1")
	require.NoError(t, err)
	assert.NotPanics(t, release)

	var nilLocker *TeamLocker
	release, err = nilLocker.Lock(context.Background(), "team-1")
	require.NoError(t, err)
	assert.NotPanics(t, release)
}
