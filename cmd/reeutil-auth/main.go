// reeutil-auth serves the ReeUtil login pipeline over HTTP.
//
// Settings come from an optional YAML file, a .env file, and the
// environment; see internal/config. Flags override the listen address and
// the file locations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
	"github.com/MrBl4ck04/ReeUtil-sub000/httpapi"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/config"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/logging"
	"github.com/MrBl4ck04/ReeUtil-sub000/mail"
	"github.com/MrBl4ck04/ReeUtil-sub000/store/memory"
	mongostore "github.com/MrBl4ck04/ReeUtil-sub000/store/mongo"
	mysqlstore "github.com/MrBl4ck04/ReeUtil-sub000/store/mysql"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		envFile     string
		addr        string
		revealCodes bool
		migrate     bool
	)
	flags := pflag.NewFlagSet("reeutil-auth", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", "", "YAML settings file")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file; ignored when missing")
	flags.StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	flags.BoolVar(&revealCodes, "reveal-codes", false, "log one-time codes with the log mailer (development only)")
	flags.BoolVar(&migrate, "migrate", false, "create missing tables or indexes before serving")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	svc, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	if addr != "" {
		svc.HTTPAddr = addr
	}

	logger, err := logging.New(os.Stderr, svc.LogLevel, svc.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := svc.Engine()
	verifier, err := reeutil.NewPasswordVerifier(cfg.Password)
	if err != nil {
		return err
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	store, closer, err := openStore(ctx, svc, verifier, migrate)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	var mailer reeutil.Mailer
	switch svc.Mailer {
	case "amqp":
		pub, err := mail.NewPublisher(svc.AMQP.URL, svc.AMQP.Queue, logger)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		closers = append(closers, pub)
		mailer = pub
	default:
		lm := mail.NewLogMailer(logger)
		lm.RevealCodes = revealCodes
		mailer = lm
	}

	builder := reeutil.New().
		WithConfig(cfg).
		WithPrincipalStore(store).
		WithMailer(mailer).
		WithPasswordVerifier(verifier).
		WithLogger(logger).
		WithLatencyHistograms(true)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(reeutil.NewSlogSink(logger))
	}

	if svc.Redis.Addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{svc.Redis.Addr},
			Password: svc.Redis.Password,
			DB:       svc.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, rdb)
		builder = builder.WithRedis(rdb)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	e := httpapi.New(engine, httpapi.Options{Logger: logger})
	srv := &http.Server{
		Addr:              svc.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", svc.HTTPAddr, "env", svc.Env, "store", svc.Store, "mailer", svc.Mailer)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStore(ctx context.Context, svc config.Service, hasher memory.Hasher, migrate bool) (reeutil.PrincipalStore, io.Closer, error) {
	switch svc.Store {
	case "mongo":
		client, err := mongostore.Connect(ctx, svc.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		closer := closerFunc(func() error { return client.Disconnect(context.Background()) })
		store := mongostore.New(client.Database(svc.Mongo.Database))
		if migrate {
			if err := store.EnsureIndexes(ctx); err != nil {
				_ = closer.Close()
				return nil, nil, err
			}
		}
		return store, closer, nil

	case "mysql":
		db, err := mysqlstore.Open(ctx, mysqlstore.Config{
			User:     svc.MySQL.User,
			Password: svc.MySQL.Password,
			Host:     svc.MySQL.Host,
			Port:     svc.MySQL.Port,
			Name:     svc.MySQL.Name,
		})
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := mysqlstore.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return mysqlstore.New(db), db, nil

	default:
		store := memory.New()
		if svc.SeedFile != "" {
			if err := store.LoadSeedFile(svc.SeedFile, hasher); err != nil {
				return nil, nil, err
			}
		}
		return store, nil, nil
	}
}
