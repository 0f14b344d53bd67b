package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/IanKulin/route-demo/internal/app"
	"github.com/IanKulin/route-demo/internal/messaging/kafka"
	"github.com/IanKulin/route-demo/internal/storage/postgres"
	"github.com/IanKulin/route-demo/internal/version"
)

const migrateTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("route-demo завершился с ошибкой")
	}
}

// newCLI описывает команды бинаря.
func newCLI(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "route-demo",
		Usage:     "customers and orders record store",
		Version:   version.GetVersion(),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			eventsCommand(),
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, version.String())
					return err
				},
			},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the web server, metrics and outbox worker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "http-addr", Usage: "web server address"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "metrics and health address, empty disables"},
			&cli.StringFlag{Name: "grpc-addr", Usage: "admin gRPC address, empty disables"},
			&cli.BoolFlag{Name: "seed", Usage: "preload demo customers and orders"},
			&cli.StringFlag{Name: "outbox-driver", Usage: "outbox storage: memory|postgres"},
			&cli.StringFlag{Name: "postgres-dsn", Usage: "PostgreSQL DSN for the postgres outbox"},
			&cli.StringSliceFlag{Name: "kafka-brokers", Usage: "Kafka brokers, log publisher is used when empty"},
			&cli.StringFlag{Name: "log-level", Usage: "logrus level"},
			&cli.StringFlag{Name: "log-format", Usage: "text|json"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := serveConfig(c)
			if err != nil {
				return err
			}
			if err := app.ConfigureLogger(log.StandardLogger(), cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"http_addr":     cfg.HTTPAddr,
				"metrics_addr":  cfg.MetricsAddr,
				"grpc_addr":     cfg.GRPCAddr,
				"outbox_driver": cfg.OutboxDriver,
				"version":       version.GetVersion(),
			}).Info("запускаем route-demo")

			if err := app.Run(c.Context, cfg); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("route-demo остановлен")
			return nil
		},
	}
}

// serveConfig читает ROUTEDEMO_* и применяет явно заданные флаги поверх.
func serveConfig(c *cli.Context) (app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}
	if c.IsSet("http-addr") {
		cfg.HTTPAddr = c.String("http-addr")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("grpc-addr") {
		cfg.GRPCAddr = c.String("grpc-addr")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Bool("seed")
	}
	if c.IsSet("outbox-driver") {
		cfg.OutboxDriver = app.OutboxDriver(c.String("outbox-driver"))
	}
	if c.IsSet("postgres-dsn") {
		cfg.PostgresDSN = c.String("postgres-dsn")
	}
	if c.IsSet("kafka-brokers") {
		cfg.KafkaBrokers = c.StringSlice("kafka-brokers")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or inspect outbox schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "direction", Value: "up", Usage: "migration direction: up|down|status"},
			&cli.IntFlag{Name: "steps", Usage: "number of migrations to apply/rollback (0=all for up, 1 for down)"},
			&cli.StringFlag{Name: "dsn", EnvVars: []string{app.EnvPrefix + "_POSTGRES_DSN"}, Usage: "PostgreSQL DSN"},
		},
		Action: func(c *cli.Context) error {
			direction := strings.ToLower(strings.TrimSpace(c.String("direction")))
			switch direction {
			case "up", "down", "status":
			default:
				return fmt.Errorf("unsupported direction: %s (use up|down|status)", direction)
			}
			dsn := strings.TrimSpace(c.String("dsn"))
			if dsn == "" {
				return fmt.Errorf("%s_POSTGRES_DSN (or --dsn) is required", app.EnvPrefix)
			}

			ctx, cancel := context.WithTimeout(c.Context, migrateTimeout)
			defer cancel()

			store, err := postgres.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open postgres store: %w", err)
			}
			defer store.Close()

			return runMigration(ctx, c.App.Writer, store, direction, c.Int("steps"))
		},
	}
}

func runMigration(ctx context.Context, out io.Writer, store *postgres.Store, direction string, steps int) error {
	switch direction {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	}

	status, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, err = fmt.Fprintln(out, formatMigrationStatus(direction, status))
	return err
}

func formatMigrationStatus(direction string, status postgres.MigrationStatus) string {
	prefix := "migration status"
	if direction != "status" {
		prefix = "migrate " + direction + " ok"
	}
	return fmt.Sprintf("%s: version=%d latest=%d dirty=%t pending=%t",
		prefix, status.Version, status.Latest, status.Dirty, status.Pending())
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "tail record events from Kafka",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "brokers", EnvVars: []string{app.EnvPrefix + "_KAFKA_BROKERS"}, Usage: "Kafka brokers"},
			&cli.StringSliceFlag{Name: "topic", Value: cli.NewStringSlice(kafka.TopicRecordEvents), Usage: "topics to read"},
			&cli.StringFlag{Name: "group", Value: "route-demo-events", Usage: "consumer group id"},
			&cli.BoolFlag{Name: "from-oldest", Usage: "read topics from the beginning"},
		},
		Action: func(c *cli.Context) error {
			brokers := splitBrokers(c.StringSlice("brokers"))
			if len(brokers) == 0 {
				return fmt.Errorf("%s_KAFKA_BROKERS (or --brokers) is required", app.EnvPrefix)
			}

			logger := log.WithField("component", "events")
			consumer, err := kafka.NewConsumer(brokers, c.String("group"), c.StringSlice("topic"),
				c.Bool("from-oldest"), kafka.LogEnvelope(logger), logger)
			if err != nil {
				return err
			}

			consumer.Start(c.Context)
			<-c.Context.Done()
			return consumer.Stop()
		},
	}
}

// splitBrokers принимает и повторяющийся флаг, и список через запятую.
func splitBrokers(values []string) []string {
	var brokers []string
	for _, value := range values {
		for _, broker := range strings.Split(value, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}
	return brokers
}
