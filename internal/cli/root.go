// Package cli implements rtsctl, the command-line front end to the tracker. Commands that touch
// patients open the same SQLite (or PostgreSQL) store the lite MCP server uses.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/acl-rts-tracker/internal/config"
	"github.com/acl-rts-tracker/internal/domain"
	"github.com/acl-rts-tracker/internal/logging"
	"github.com/acl-rts-tracker/internal/service"
	"github.com/acl-rts-tracker/internal/store"
)

type rootOptions struct {
	verbose bool
}

// NewRootCmd builds the rtsctl command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "rtsctl",
		Short:   "ACL return-to-sport metrics and phase classification",
		Version: version,
		Long: `rtsctl computes limb symmetry and torque-to-bodyweight metrics, records patient visits
and classifies each patient into a rehabilitation phase.

Data lives in $RTS_DATA_DIR (default ~/.acl-rts-tracker), or in PostgreSQL when
$RTS_DATABASE_URL is a postgres:// URL.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log store activity to stderr")

	// Calculators
	rootCmd.AddCommand(LSICmd())
	rootCmd.AddCommand(TTBWCmd())
	rootCmd.AddCommand(AggregateCmd())

	// Patient records
	rootCmd.AddCommand(PatientCmd(opts))
	rootCmd.AddCommand(AssessCmd(opts))
	rootCmd.AddCommand(StatusCmd(opts))
	rootCmd.AddCommand(SeriesCmd(opts))
	rootCmd.AddCommand(ExportCmd(opts))
	rootCmd.AddCommand(ImportCmd(opts))

	rootCmd.AddCommand(MCPConfigCmd())

	return rootCmd
}

// session is an opened store and the service over it.
type session struct {
	cfg     *config.LiteConfig
	store   store.Store
	service *service.AssessmentService
	logger  *logrus.Logger
}

func openSession(opts *rootOptions) (*session, error) {
	cfg := config.LoadLiteConfig()

	level := "warn"
	if opts.verbose {
		level = cfg.LogLevel
	}
	logger, _, err := logging.NewLogger(domain.LoggingConfig{
		Level:  level,
		Format: "text",
		Output: logging.OutputStderr,
		Redact: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.DatabaseURL, cfg.DatabasePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &session{
		cfg:     cfg,
		store:   st,
		service: service.NewAssessmentService(logger, st, st, service.NewRecordBuilder(cfg.MomentArmM), nil),
		logger:  logger,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// withSession opens a session for the duration of fn.
func withSession(opts *rootOptions, fn func(*session) error) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
