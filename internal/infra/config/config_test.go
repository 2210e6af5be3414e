package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("RECORD_STORE", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("RETRY_BACKOFF", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.RecordStore)
	assert.Equal(t, IdempotencyMemory, cfg.IdempotencyBackend)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.UseKafka())
}

func TestFromEnv_ParsesLists(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RETRY_BACKOFF", "2s,10s")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []time.Duration{2 * time.Second, 10 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	assert.True(t, cfg.UseKafka())
}

func TestFromEnv_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mongo without uri", map[string]string{"RECORD_STORE": "mongo", "MONGO_URI": ""}, "MONGO_URI"},
		{"unknown store", map[string]string{"RECORD_STORE": "postgres"}, "RECORD_STORE"},
		{"bad duration", map[string]string{"IDEMP_TTL": "soon"}, "IDEMP_TTL"},
		{"bad backoff", map[string]string{"RETRY_BACKOFF": "1s,x"}, "RETRY_BACKOFF"},
		{"bad port", map[string]string{"SMTP_PORT": "smtp"}, "SMTP_PORT"},
		{"bad bool", map[string]string{"S3_USE_SSL": "maybe"}, "S3_USE_SSL"},
		{"mongo idempotency on memory", map[string]string{"IDEMPOTENCY_BACKEND": "mongo", "RECORD_STORE": "memory"}, "IDEMPOTENCY_BACKEND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
