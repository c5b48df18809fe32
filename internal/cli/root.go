package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/liteclient/internal/config"
	"github.com/ogulcanaydogan/liteclient/internal/logger"
	"github.com/ogulcanaydogan/liteclient/pkg/alerts"
	"github.com/ogulcanaydogan/liteclient/pkg/auth"
	"github.com/ogulcanaydogan/liteclient/pkg/litellm"
	"github.com/ogulcanaydogan/liteclient/pkg/router"
	"github.com/ogulcanaydogan/liteclient/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "liteclient",
	Short: "liteclient - admin console for LiteLLM customers and budgets",
	Long: `liteclient lets administrators view LiteLLM customers and their spend,
create budgets and assign them to customers. It serves an authenticated HTTP
API and offers the same procedures from the command line.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.liteclient/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app holds the wired components shared by commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Storage
	auth   *auth.Authenticator
	router *router.Router
}

// Close releases the app's resources.
func (a *app) Close() {
	_ = a.logger.Sync()
	a.store.Close()
}

// newApp wires the upstream client, storage, authenticator and router.
func newApp(cfg *config.Config) (*app, error) {
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	client, err := litellm.NewClient(litellm.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	}, litellm.WithLogger(log.Named("litellm")))
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	authn, err := auth.NewAuthenticator(initAdmins(cfg), store,
		auth.WithTTL(cfg.Session.TTL),
		auth.WithLogger(log.Named("auth")),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	opts := []router.Option{
		router.WithAuditStore(store),
		router.WithLogger(log.Named("router")),
	}
	if notifiers := initNotifiers(cfg); len(notifiers) > 0 {
		opts = append(opts, router.WithNotifier(alerts.NewDispatcher(log.Named("alerts"), notifiers...)))
	}

	rt, err := router.New(client, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: log, store: store, auth: authn, router: rt}, nil
}

// initAdmins converts configured admins for the authenticator.
func initAdmins(cfg *config.Config) []auth.Admin {
	var admins []auth.Admin
	for _, a := range cfg.AllAdmins() {
		admins = append(admins, auth.Admin{
			Email:        a.Email,
			Name:         a.Name,
			Password:     a.Password,
			PasswordHash: a.PasswordHash,
		})
	}
	return admins
}

// initNotifiers creates notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// setupApp loads config and wires the app for a command.
func setupApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

// addCredentialFlags registers the admin sign-in flags on cmd.
func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("email", "", "admin email (default: configured admin)")
	cmd.Flags().String("password", "", "admin password (default: admin.password; required when only admin.password_hash is set)")
}

// signIn authenticates the CLI user and returns a context carrying the
// session, plus a function that ends the session.
func (a *app) signIn(cmd *cobra.Command) (context.Context, func(), error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" {
		email = a.cfg.Admin.Email
	}
	if password == "" && email == a.cfg.Admin.Email {
		password = a.cfg.Admin.Password
	}
	if password == "" {
		return nil, nil, fmt.Errorf("sign in as %q: --password is required when no plain admin.password is configured", email)
	}

	ctx := cmd.Context()
	token, session, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return nil, nil, fmt.Errorf("sign in as %q: %w", email, err)
	}

	end := func() {
		if err := a.auth.Logout(context.WithoutCancel(ctx), token); err != nil {
			a.logger.Warn("end cli session", zap.Error(err))
		}
	}
	return auth.WithSession(ctx, session), end, nil
}
