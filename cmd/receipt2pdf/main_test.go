package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	u "receipt2pdf/internal/utils"
)

func TestNewRedisClient(t *testing.T) {
	var cfg u.Config
	assert.Nil(t, newRedisClient(cfg))

	mrs, err := miniredis.Run()
	require.NoError(t, err)
	defer mrs.Close()

	cfg.Cache.RedisHost = mrs.Addr()
	rdb := newRedisClient(cfg)
	require.NotNil(t, rdb)
	defer rdb.Close()
	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestStartKeyStoreWithoutDatabase(t *testing.T) {
	var cfg u.Config
	cfg.Auth.ReloadInterval = time.Minute
	stop := make(chan struct{})
	defer close(stop)

	keys := startKeyStore(cfg, stop)
	assert.False(t, keys.Configured())
	assert.True(t, keys.Ready())
	assert.Zero(t, keys.Len())
}

func TestStartServerStopsWhenListenFails(t *testing.T) {
	var cfg u.Config
	cfg.Server.Port = ":99999"
	stop := make(chan struct{})

	startServer(fiber.New(fiber.Config{DisableStartupMessage: true}), cfg, stop)

	_, open := <-stop
	assert.False(t, open)
}
