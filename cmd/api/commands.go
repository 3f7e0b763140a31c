package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"todoReminder/internal/app"
	"todoReminder/internal/config"
	"todoReminder/internal/logger"
	"todoReminder/internal/migrations"
)

// cli carries the state shared by all subcommands once the root has loaded the config.
type cli struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "todo-reminder",
		Short:         "Todo service that records reminder notifications when they fall due",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is ./config.yml)")
	_ = c.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = c.v.BindEnv("config", "TODO_CONFIG")

	root.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.createAdminCmd(),
		c.configCmd(),
	)
	return root
}

func (c *cli) loadConfig() error {
	cfg, err := config.Load(c.v.GetString("config"))
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.cfg = cfg
	return nil
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scanner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(c.cfg)
	defer a.Shutdown()

	if err := a.Init(ctx); err != nil {
		return err
	}

	if err := a.Run(ctx); err != nil {
		return err
	}
	logger.Info("App: stopped")
	return nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		ValidArgs: []string{string(migrations.Up), string(migrations.Down)},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate(cmd.Context(), c.cfg, migrations.Direction(args[0]))
		},
	}
}

func (c *cli) createAdminCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			a := app.New(c.cfg)
			defer a.Shutdown()
			if err := a.Init(cmd.Context()); err != nil {
				return err
			}

			admin, err := a.Users().CreateAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			logger.Info("App: admin created", zap.Int64("user_id", admin.ID), zap.String("username", admin.Username))
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", admin.Username, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.cfg.Redacted()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}
