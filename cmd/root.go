package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jusbot/tjpr-consulta/captcha"
	"github.com/jusbot/tjpr-consulta/config"
	"github.com/jusbot/tjpr-consulta/projudi"
	"github.com/jusbot/tjpr-consulta/query"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	engine  *query.Engine

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tjpr-consulta",
	Short: "Consulta processual automatizada no Projudi do TJPR",
	Long: `tjpr-consulta queries case movement records on the TJPR Projudi
public consultation portal, solving the portal CAPTCHA through OCR with
bounded retries and returning the movements as structured records.`,
	PersistentPreRunE: initializeApp,
}

// SetVersion stores build metadata injected by the linker.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", v, bt)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeApp loads configuration and assembles the query engine.
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging).With().Str("bot", cfg.Bot.Name).Logger()

	portal, err := projudi.NewClient(cfg.Portal.BaseURL, cfg.Portal.Timeout(), logger)
	if err != nil {
		return fmt.Errorf("failed to create portal client: %w", err)
	}

	engine = query.NewEngine(portal, captcha.NewTesseract(logger), logger, query.Options{
		MaxCaptchaAttempts: cfg.Retry.MaxCaptchaAttempts,
		MaxQueryAttempts:   cfg.Retry.MaxQueryAttempts,
	})

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format; color only when allowed and stderr is a terminal.
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
