package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/victornm/quizassign/internal/config"
	"github.com/victornm/quizassign/internal/migrations"
	"github.com/victornm/quizassign/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "quizassign",
		Short:        "Timed quiz assignment and grading service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to the config file (env CONFIG_PATH)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP and gRPC servers",
			RunE: func(*cobra.Command, []string) error {
				c, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				return serve(c)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := loadConfig(configPath)
				if err != nil {
					return err
				}

				dsn := c.Postgres.DSN()
				if dsn == "" {
					return fmt.Errorf("postgres address not set")
				}

				ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
				defer cancel()
				return migrations.Up(ctx, dsn)
			},
		},
	)

	return root
}

func serve(c server.Config) error {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	go s.Start()

	<-shutdown
	log.Println("Shutting down")
	s.Shutdown()
	return nil
}

func loadConfig(p string) (server.Config, error) {
	c := server.DefaultConfig()

	if p == "" {
		return c, fmt.Errorf("config path not set, use --config or CONFIG_PATH")
	}

	if err := config.Load(p, &c, config.WithEnvPrefix("QUIZASSIGN")); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
