package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()

	req.NoError(err)
	req.Equal(":8080", cfg.Port)
	req.Equal([]string{"http://localhost:8080"}, cfg.AllowedOrigins)
	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(10, cfg.RateLimit.Burst)
	req.Equal(time.Second, cfg.RateLimit.RefillInterval)
	req.Equal(256, cfg.SendQueueSize)
	req.Equal(60*time.Second, cfg.PongWait)
	req.Equal(DriverBadger, cfg.StoreDriver)
	req.Equal(24*time.Hour, cfg.TokenTTL)
	req.Empty(cfg.CensoredWords)
	req.Equal('*', cfg.CensorRune())
}

func Test_Load_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example ,")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "250ms")
	t.Setenv("CENSORED_WORDS", "badger,snake")
	t.Setenv("CENSOR_CHARACTER", "#")

	cfg, err := Load()

	req.NoError(err)
	req.Equal(":9999", cfg.Port)
	req.Equal([]string{"http://a.example", "https://b.example"}, cfg.AllowedOrigins)
	req.Equal(int64(1024), cfg.MaxMessageSize)
	req.Equal(3, cfg.RateLimit.Burst)
	req.Equal(250*time.Millisecond, cfg.RateLimit.RefillInterval)
	req.Equal([]string{"badger", "snake"}, cfg.CensoredWords)
	req.Equal('#', cfg.CensorRune())
}

func Test_Load_Rejects_Bad_Values(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("unparsable size", func(t *testing.T) {
		t.Setenv("MAX_MESSAGE_SIZE", "big")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load()
		require.ErrorContains(t, err, "mongo")
	})
	t.Run("unknown gin mode", func(t *testing.T) {
		t.Setenv("GIN_MODE", "loud")
		_, err := Load()
		require.ErrorContains(t, err, "GIN_MODE")
	})
	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		_, err := Load()
		require.ErrorContains(t, err, "DATABASE_URL")
	})
}

func Test_Sanitize_Replaces_Non_Positive(t *testing.T) {
	req := require.New(t)

	cfg := Sanitize(Config{MaxMessageSize: -1, SendQueueSize: -5, RateLimit: RateLimit{Burst: -1}})

	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(256, cfg.SendQueueSize)
	req.Equal(10, cfg.RateLimit.Burst)
	req.Equal(Default(), cfg)
}
