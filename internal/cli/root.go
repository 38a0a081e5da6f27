// Package cli implements the blogctl command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server   string
	Token    string
	Database string
	Blobs    string
	Verbose  bool
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// envDefaults seeds flag defaults from BLOG_* variables.
type envDefaults struct {
	Server      string `env:"SERVER" envDefault:"http://localhost:3000"`
	Token       string `env:"TOKEN"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"blog.db"`
	BlobPath    string `env:"BLOB_PATH" envDefault:"blobs.db"`
}

// NewRootCommand creates the root command for blogctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	var defaults envDefaults
	// Only string fields, so parsing cannot fail on malformed values.
	_ = env.ParseWithOptions(&defaults, env.Options{Prefix: "BLOG_"})

	cmd := &cobra.Command{
		Use:   "blogctl",
		Short: "Administer and use the blog",
		Long:  "blogctl manages the blog database directly and talks to a running blog server over its JSON API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", defaults.Server, "blog server base URL (BLOG_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", defaults.Token, "session token for API calls (BLOG_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaults.DatabaseURL, "SQLite path or postgres URL (BLOG_DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.Blobs, "blobs", defaults.BlobPath, "image store file (BLOG_BLOB_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// logger returns a stderr logger that only speaks up in verbose mode.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}
