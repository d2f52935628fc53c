package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/federation/internal/app"
	"github.com/dropDatabas3/federation/internal/bootstrap"
	"github.com/dropDatabas3/federation/internal/config"
	"github.com/dropDatabas3/federation/internal/http/server"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath = os.Getenv("CONFIG_PATH")
		envFile    = ".env"
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "fedctl",
		Short:         "Servidor y herramientas de administración de la federación",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("env file %s: %w", envFile, err)
			}
			c, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = c
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.App.LogLevel,
				ServiceName: cfg.App.Name,
				Version:     cfg.App.Version,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "ruta al YAML de configuración (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&envFile, "env-file", envFile, "archivo .env opcional")

	cfgFn := func() *config.Config { return cfg }
	root.AddCommand(
		newServeCmd(cfgFn),
		newMigrateCmd(cfgFn),
		newHerokuSetupCmd(cfgFn),
		newServicesCmd(cfgFn),
	)
	return root
}

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := cfg()
			a, err := app.New(ctx, c, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			return server.Run(ctx, server.New(c, a.Handler), config.Dur(c.Server.ShutdownTimeout, 10*time.Second))
		},
	}
}

func newMigrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := app.OpenStore(ctx, cfg())
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.Migrate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied=%v skipped=%v duration=%s\n", res.Applied, res.Skipped, res.Duration)
			return nil
		},
	}
}

func newHerokuSetupCmd(cfg func() *config.Config) *cobra.Command {
	var serviceConfig string
	cmd := &cobra.Command{
		Use:   "heroku-setup",
		Short: "Crea el servicio heroku-addon de SSO por firma si no existe",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			override, err := parseServiceConfig(serviceConfig)
			if err != nil {
				return err
			}
			st, err := app.OpenStore(ctx, cfg())
			if err != nil {
				return err
			}
			defer st.Close()

			svc, created, err := bootstrap.EnsureHerokuService(ctx, st.Services(), override)
			if err != nil {
				return err
			}
			state := "exists"
			if created {
				state = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (id=%s secret_type=%s)\n", state, svc.Name, svc.ID, svc.SSOSecretType)
			return nil
		},
	}
	cmd.Flags().StringVar(&serviceConfig, "service-config", "", "JSON inline o ruta a un archivo JSON/YAML con overrides del servicio")
	return cmd
}

// parseServiceConfig acepta JSON inline o una ruta a archivo (JSON es YAML válido).
func parseServiceConfig(v string) (config.ServiceSeed, error) {
	var seed config.ServiceSeed
	v = strings.TrimSpace(v)
	if v == "" {
		return seed, nil
	}
	raw := []byte(v)
	if !strings.HasPrefix(v, "{") {
		b, err := os.ReadFile(v)
		if err != nil {
			return seed, fmt.Errorf("service-config: %w", err)
		}
		raw = b
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("service-config: %w", err)
	}
	return seed, nil
}

func newServicesCmd(cfg func() *config.Config) *cobra.Command {
	services := &cobra.Command{Use: "services", Short: "Servicios federados"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los servicios configurados",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := app.OpenStore(ctx, cfg())
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.Services().List(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				type row struct {
					Name     string `json:"name"`
					Provider string `json:"provider"`
					Kind     string `json:"kind"`
					Active   bool   `json:"is_active"`
				}
				rows := make([]row, 0, len(list))
				for _, s := range list {
					rows = append(rows, row{s.Name, s.Provider, string(s.Kind), s.IsActive})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPROVIDER\tKIND\tACTIVE")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.Name, s.Provider, s.Kind, s.IsActive)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "salida JSON")
	services.AddCommand(list)
	return services
}
