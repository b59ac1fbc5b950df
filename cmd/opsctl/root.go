package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/alerts/adapters"
	"github.com/akmatori/opsconsole/internal/client"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/handlers"
	"github.com/akmatori/opsconsole/internal/middleware"
	"github.com/akmatori/opsconsole/internal/seed"
	"github.com/akmatori/opsconsole/internal/services"
)

var (
	serverURL string
	token     string
	userID    string
	output    string
	local     bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "opsctl",
	Short:         "opsctl talks to the ops console backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
		switch output {
		case "json", "yaml", "table":
			return nil
		default:
			return fmt.Errorf("unknown output format %q (want json, yaml or table)", output)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&serverURL, "server", envOr("OPSCTL_SERVER", "http://localhost:3000"), "console base URL")
	flags.StringVar(&token, "token", os.Getenv("OPSCTL_TOKEN"), "bearer token")
	flags.StringVar(&userID, "user", os.Getenv("OPSCTL_USER"), "acting user id when the server runs without auth")
	flags.StringVarP(&output, "output", "o", "table", "output format: json, yaml or table")
	flags.BoolVar(&local, "local", false, "serve requests from a freshly seeded in-process console")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newLoginCmd(), newIncidentsCmd(), newRulesCmd(), newGetCmd(), newHealthCmd())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newClient returns the client selected by the global flags
func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	if userID != "" {
		opts = append(opts, client.WithUserID(userID))
	}
	if !local {
		return client.New(serverURL, opts...), nil
	}

	router, err := localRouter()
	if err != nil {
		return nil, err
	}
	return client.NewInProcess(router, opts...), nil
}

// localRouter builds a seeded in-memory console without authentication or latency
func localRouter() (http.Handler, error) {
	backend := database.NewMemoryBackend()
	dataset, err := seed.Load()
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(context.Background(), backend, dataset); err != nil {
		return nil, err
	}
	hub := events.NewHub()
	svc := services.New(services.NewStore(backend), services.Options{
		Catalog:      dataset,
		Publisher:    hub,
		AnalyticsTTL: time.Minute,
	})
	return handlers.NewRouter(handlers.RouterOptions{
		Services: svc,
		Hub:      hub,
		Auth: middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
			JWTSecret:     "opsctl-local",
			Expiry:        time.Hour,
			DefaultUserID: "usr-001",
			SkipPaths:     handlers.AuthSkipPaths,
		}),
		Alerts: alerts.NewRegistry(adapters.NewAlertmanagerAdapter(), adapters.NewGrafanaAdapter()),
	}), nil
}
