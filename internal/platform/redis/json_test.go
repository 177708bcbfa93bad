// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/platform/redis"
)

/*
TestJSON_RoundTripAndMiss verifies cache helpers against an in-memory Redis.
*/
func TestJSON_RoundTripAndMiss(t *testing.T) {
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	ctx := context.Background()

	type entry struct {
		Name string `json:"name"`
	}

	var got entry
	assert.ErrorIs(t, redis.GetJSON(ctx, client, "k", &got), redis.ErrMiss)

	require.NoError(t, redis.SetJSON(ctx, client, "k", entry{Name: "essence"}, time.Minute))
	require.NoError(t, redis.GetJSON(ctx, client, "k", &got))
	assert.Equal(t, "essence", got.Name)

	server.FastForward(2 * time.Minute)
	assert.ErrorIs(t, redis.GetJSON(ctx, client, "k", &got), redis.ErrMiss)
}
