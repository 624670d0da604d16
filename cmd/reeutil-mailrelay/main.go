// reeutil-mailrelay consumes queued one-time codes and sends them over SMTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal/config"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/logging"
	"github.com/MrBl4ck04/ReeUtil-sub000/mail"
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
		configPath string
		envFile    string
		prefetch   int
	)
	flags := pflag.NewFlagSet("reeutil-mailrelay", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", "", "YAML settings file")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file; ignored when missing")
	flags.IntVar(&prefetch, "prefetch", 50, "unacknowledged deliveries per consumer")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	svc, err := config.Read(configPath, envFile)
	if err != nil {
		return err
	}
	if svc.AMQP.URL == "" {
		return errors.New("AMQP_URL is required")
	}
	if svc.SMTP.Host == "" || svc.SMTP.From == "" {
		return errors.New("SMTP_HOST and SMTP_FROM are required")
	}

	logger, err := logging.New(os.Stderr, svc.LogLevel, svc.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     svc.SMTP.Host,
		Port:     svc.SMTP.Port,
		Username: svc.SMTP.Username,
		Password: svc.SMTP.Password,
		From:     svc.SMTP.From,
	})
	relay := mail.NewRelay(mail.RelayConfig{
		URL:      svc.AMQP.URL,
		Queue:    svc.AMQP.Queue,
		Prefetch: prefetch,
		CodeTTL:  svc.Auth.CodeTTL,
	}, sender, logger)

	logger.Info("relay starting", "queue", svc.AMQP.Queue, "smtp", svc.SMTP.Host)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("relay stopped")
	return nil
}
