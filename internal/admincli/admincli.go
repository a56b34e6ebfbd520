// Package admincli implements rsvpctl, the command line for guest-list and
// RSVP administration against the configured store.
package admincli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/okian/rsvp/internal/adapters/storage"
	service "github.com/okian/rsvp/internal/app"
	"github.com/okian/rsvp/internal/config"
	"github.com/okian/rsvp/pkg/logger"
	"github.com/spf13/cobra"
)

// ConfirmDeleteAll must be passed to --confirm by destructive commands.
const ConfirmDeleteAll = "DELETE_ALL"

// Sentinel kinds for CLI errors.
var (
	ErrNotConfirmed   = errors.New("missing confirmation, pass --confirm " + ConfirmDeleteAll)
	ErrImportFailures = errors.New("some rows failed to import")
)

// Opener returns a started service. The caller stops it.
type Opener func(ctx context.Context) (*service.Service, error)

// OpenFromConfig loads config the same way the server does and opens its store.
func OpenFromConfig(ctx context.Context) (*service.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Get()

	store, err := storage.Open(ctx, cfg.StorageDriver, cfg.StorageDSN, log.Named("storage"))
	if err != nil {
		return nil, err
	}
	svc := service.New(
		service.WithStore(store),
		service.WithLogger(log.Named("service")),
		service.WithMatchThreshold(cfg.MatchThreshold),
		service.WithImportConcurrency(cfg.ImportConcurrency),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}

type cli struct {
	open    Opener
	asJSON  bool
	confirm string
}

// RootCommand creates the rsvpctl command tree.
func RootCommand(open Opener) *cobra.Command {
	c := &cli{open: open}

	rootCmd := &cobra.Command{
		Use:           "rsvpctl",
		Short:         "Manage the wedding guest list and RSVPs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(c.inviteesCommand(), c.rsvpsCommand())
	return rootCmd
}

// withService opens the service for the duration of fn.
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()
	return fn(ctx, svc)
}

func (c *cli) confirmFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.confirm, "confirm", "", "Must be "+ConfirmDeleteAll)
}

func (c *cli) checkConfirm() error {
	if c.confirm != ConfirmDeleteAll {
		return ErrNotConfirmed
	}
	return nil
}

func (c *cli) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
