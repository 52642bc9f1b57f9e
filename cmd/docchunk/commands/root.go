// Package commands implements the docchunk command line.
package commands

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docchunk",
		Short: "Split documents into token-bounded chunks",
		Long: `docchunk parses PDF, DOCX, HTML, CSV, Markdown and text documents
into markdown and splits them into chunks that respect headings and
never break tables, lists or code blocks.

Examples:
  docchunk chunk 'docs/**/*.pdf'
  docchunk chunk --max-tokens 500 report.pdf
  echo '| a | b |' | docchunk classify
  docchunk normalize < extracted.txt`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(NewChunkCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewNormalizeCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
