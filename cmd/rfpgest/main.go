package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0"

// settings are the CLI knobs resolved by viper from flags, RFPGEST_* env
// vars and rfpgest.yaml, in that order of precedence.
type settings struct {
	LogLevel         string        `mapstructure:"log_level"`
	RegexTimeout     time.Duration `mapstructure:"regex_timeout"`
	FallbackCategory string        `mapstructure:"fallback_category"`
	PDFTotext        bool          `mapstructure:"pdf_fallback_pdftotext"`
}

type app struct {
	v   *viper.Viper
	cfg settings
	log *slog.Logger
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rfpgest",
		Short: "Extract requirement structure from RFP documents",
		Long: `rfpgest parses RFP documents (DOCX, HTML, Markdown, PDF, CSV, text)
into heading-scoped sections, mines requirement codes with a configurable
capture pattern, and maps sections onto requirement categories.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.Version = version

	pf := root.PersistentFlags()
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.Duration("regex-timeout", 250*time.Millisecond, "Per-match regex time limit (0 disables)")
	pf.String("fallback-category", "DOCX", "Category for requirements outside any mapped category")
	pf.Bool("pdftotext", false, "Fall back to pdftotext for PDFs the native reader cannot handle")
	pf.String("settings", "", "Settings file (default ./rfpgest.yaml or ~/.config/rfpgest/rfpgest.yaml)")

	a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	a.v.BindPFlag("regex_timeout", pf.Lookup("regex-timeout"))
	a.v.BindPFlag("fallback_category", pf.Lookup("fallback-category"))
	a.v.BindPFlag("pdf_fallback_pdftotext", pf.Lookup("pdftotext"))

	root.AddCommand(
		a.extractCmd(),
		a.treeCmd(),
		a.mapCmd(),
		a.exportCmd(),
		a.validateCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	v.SetEnvPrefix("RFPGEST")
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("settings"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read settings %s: %w", path, err)
		}
	} else {
		v.SetConfigName("rfpgest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "rfpgest"))
		}
		// A missing or unreadable default settings file is not fatal.
		_ = v.ReadInConfig()
	}

	if err := v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", a.cfg.LogLevel)
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func main() {
	if err := newApp().rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
