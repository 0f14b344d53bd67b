package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/IanKulin/route-demo/internal/app"
	"github.com/IanKulin/route-demo/internal/storage/postgres"
)

// parseServeConfig прогоняет аргументы через флаги serve, не запуская сервер.
func parseServeConfig(t *testing.T, args ...string) (app.Config, error) {
	t.Helper()

	var (
		cfg    app.Config
		cfgErr error
	)
	cmd := serveCommand()
	cmd.Action = func(c *cli.Context) error {
		cfg, cfgErr = serveConfig(c)
		return nil
	}
	cliApp := &cli.App{Name: "route-demo", Writer: io.Discard, ErrWriter: io.Discard, Commands: []*cli.Command{cmd}}
	require.NoError(t, cliApp.Run(append([]string{"route-demo", "serve"}, args...)))
	return cfg, cfgErr
}

func TestServeConfig_Defaults(t *testing.T) {
	cfg, err := parseServeConfig(t)
	require.NoError(t, err)

	assert.Equal(t, app.DefaultConfig(), cfg)
}

func TestServeConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("ROUTEDEMO_HTTP_ADDR", ":4000")
	t.Setenv("ROUTEDEMO_METRICS_ADDR", ":4001")

	cfg, err := parseServeConfig(t,
		"--http-addr", ":5000",
		"--seed=false",
		"--grpc-addr", "",
		"--kafka-brokers", "a:9092",
		"--kafka-brokers", "b:9092",
		"--log-format", "json",
	)
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, ":4001", cfg.MetricsAddr)
	assert.Empty(t, cfg.GRPCAddr)
	assert.False(t, cfg.Seed)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestServeConfig_Invalid(t *testing.T) {
	_, err := parseServeConfig(t, "--outbox-driver", "postgres")
	assert.Error(t, err)

	_, err = parseServeConfig(t, "--log-level", "chatty")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	err := newCLI(&out, io.Discard).Run([]string{"route-demo", "version"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "route-demo version=")
}

func TestMigrateCommand_Validation(t *testing.T) {
	t.Setenv("ROUTEDEMO_POSTGRES_DSN", "")

	err := newCLI(io.Discard, io.Discard).Run([]string{"route-demo", "migrate", "--direction", "sideways", "--dsn", "postgres://x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported direction")

	err = newCLI(io.Discard, io.Discard).Run([]string{"route-demo", "migrate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROUTEDEMO_POSTGRES_DSN")
}

func TestEventsCommand_RequiresBrokers(t *testing.T) {
	t.Setenv("ROUTEDEMO_KAFKA_BROKERS", "")

	err := newCLI(io.Discard, io.Discard).Run([]string{"route-demo", "events"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROUTEDEMO_KAFKA_BROKERS")
}

func TestFormatMigrationStatus(t *testing.T) {
	status := postgres.MigrationStatus{Version: 1, Latest: 2}

	assert.Equal(t, "migration status: version=1 latest=2 dirty=false pending=true", formatMigrationStatus("status", status))
	assert.Equal(t, "migrate up ok: version=1 latest=2 dirty=false pending=true", formatMigrationStatus("up", status))
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, splitBrokers([]string{"a:9092, b:9092", " ", "c:9092"}))
	assert.Nil(t, splitBrokers(nil))
}
