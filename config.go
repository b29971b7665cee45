package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	cleanupDelay  time.Duration
	clientURL     string
	port          int
	prefix        string
	profile       bool
	rulebooks     string
	smtpHost      string
	smtpPass      string
	smtpPort      int
	smtpUser      string
	suggestionsTo string
	tlsCert       string
	tlsKey        string
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.smtpPort < 1 || c.smtpPort > 65535 {
		return fmt.Errorf("invalid smtp port (must be between 1-65535 inclusive): %d", c.smtpPort)
	}
	if c.cleanupDelay <= 0 {
		return fmt.Errorf("invalid cleanup delay (must be positive): %s", c.cleanupDelay)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// mailEnabled reports whether enough SMTP settings exist to relay suggestions.
func (c *Config) mailEnabled() bool {
	return c.smtpHost != "" && c.recipient() != ""
}

func (c *Config) recipient() string {
	if c.suggestionsTo != "" {
		return c.suggestionsTo
	}
	return c.smtpUser
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TABLETALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "tabletally",
		Short:         "Tallies board game scores for everyone around the table and declares a winner.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: TABLETALLY_BIND)")
	fs.DurationVar(&cfg.cleanupDelay, "cleanup-delay", 2*time.Minute, "time a room is kept after its results are produced (env: TABLETALLY_CLEANUP_DELAY)")
	fs.StringVar(&cfg.clientURL, "client-url", "http://localhost:5173", "origin of the web client, used for CORS and room links (env: TABLETALLY_CLIENT_URL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: TABLETALLY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: TABLETALLY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: TABLETALLY_PROFILE)")
	fs.StringVar(&cfg.rulebooks, "rulebooks", "", "directory of rulebook files to serve, disabled if empty (env: TABLETALLY_RULEBOOKS)")
	fs.StringVar(&cfg.smtpHost, "smtp-host", "", "smtp server used to relay suggestions (env: TABLETALLY_SMTP_HOST)")
	fs.StringVar(&cfg.smtpPass, "smtp-pass", "", "smtp password (env: TABLETALLY_SMTP_PASS)")
	fs.IntVar(&cfg.smtpPort, "smtp-port", 587, "smtp port (env: TABLETALLY_SMTP_PORT)")
	fs.StringVar(&cfg.smtpUser, "smtp-user", "", "smtp username (env: TABLETALLY_SMTP_USER)")
	fs.StringVar(&cfg.suggestionsTo, "suggestions-to", "", "address that receives suggestions, defaults to --smtp-user (env: TABLETALLY_SUGGESTIONS_TO)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: TABLETALLY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: TABLETALLY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: TABLETALLY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: TABLETALLY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("tabletally v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
