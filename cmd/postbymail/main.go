package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/brandon/postbymail/internal/attachment"
	"github.com/brandon/postbymail/internal/config"
	"github.com/brandon/postbymail/internal/content"
	"github.com/brandon/postbymail/internal/credential"
	"github.com/brandon/postbymail/internal/imagestore"
	"github.com/brandon/postbymail/internal/ingest"
	"github.com/brandon/postbymail/internal/mailbox"
)

var version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
	mboxPath   string
}

func main() {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "postbymail",
		Short:         "Publish unseen mail from allowed senders as CMS articles",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flags.mboxPath, "mbox", "", "replay an mbox file instead of connecting to IMAP")

	rootCmd.AddCommand(
		newSearchCmd(flags),
		newCheckCmd(flags),
		newServeCmd(flags),
		newCredentialCmd(credential.Set),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the logger from it
func loadConfig(flags *globalFlags) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.mboxPath != "" {
		cfg.MboxPath = flags.mboxPath
	}
	return cfg, newLogger(cfg.LogLevel, os.Stderr), nil
}

// newLogger builds the JSON logger; stdout stays free for status lines
func newLogger(levelName string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func openStore(cfg *config.Config, logger *logrus.Logger) (*content.Database, *content.Store, error) {
	database, err := content.NewDatabase(cfg.DatabasePath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open content database: %w", err)
	}
	return database, content.NewStore(database, logger), nil
}

func runSweep(cmd *cobra.Command, flags *globalFlags) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fileMode, err := cfg.Images.FileModeValue()
	if err != nil {
		return err
	}

	database, store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	fs := afero.NewOsFs()

	source, err := openSource(cfg, fs, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close mailbox")
		}
	}()

	orchestrator := ingest.NewOrchestrator(ingest.Options{
		Source:    source,
		Store:     store,
		Extractor: attachment.NewExtractor(fs, cfg.Images.TempDir, logger),
		Images: imagestore.NewStore(fs, imagestore.Options{
			PublicRoot: cfg.Images.PublicRoot,
			Directory:  cfg.Images.Directory,
			Owner:      cfg.Images.Owner,
			Group:      cfg.Images.Group,
			FileMode:   fileMode,
		}, logger),
		Fs:        fs,
		Reporter:  ingest.NewReporter(cmd.OutOrStdout()),
		AllowList: ingest.NewAllowList(cfg.Publish.AllowedSenders),
		Publish:   cfg.Publish,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("version", version).Info("Starting ingestion run")
	if _, err := orchestrator.Run(ctx); err != nil {
		return err
	}
	return nil
}

// openSource picks the mbox replay source or the IMAP mailbox
func openSource(cfg *config.Config, fs afero.Fs, logger *logrus.Logger) (mailbox.Source, error) {
	if cfg.UsesMbox() {
		source, err := mailbox.OpenMbox(fs, cfg.MboxPath, logger)
		if err != nil {
			return nil, err
		}
		return source, nil
	}

	if cfg.Mailbox.Password == "" {
		password, err := credential.Get(cfg.Mailbox.KeyringKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read mailbox password from keyring: %w", err)
		}
		cfg.Mailbox.Password = password
	}

	return mailbox.NewIMAPClient(&cfg.Mailbox, logger), nil
}
