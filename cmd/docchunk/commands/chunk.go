package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docchunk/internal/config"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/pipeline"
	"github.com/dgallion1/docchunk/internal/store"
)

var (
	chunkMaxTokens  int
	chunkConfigPath string
	chunkStorePath  string
	chunkStrategy   string
)

// chunkRecord is one line of chunk output.
type chunkRecord struct {
	File           string              `json:"file"`
	Position       int                 `json:"position"`
	ContentType    doctree.ContentType `json:"content_type"`
	SectionHeading string              `json:"section_heading"`
	HeadingLevel   int                 `json:"heading_level"`
	TokenCount     int                 `json:"token_count"`
	Content        string              `json:"content"`
}

// NewChunkCmd creates the chunk command.
func NewChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <glob>...",
		Short: "Chunk documents and print JSON lines",
		Long: `Chunk every file matching the given patterns and print one JSON
object per chunk. Patterns support ** for recursive matching.

Examples:
  docchunk chunk report.pdf
  docchunk chunk 'manuals/**/*.{pdf,docx}' --max-tokens 800
  docchunk chunk notes.md --store chunks.db`,
		Args: cobra.MinimumNArgs(1),
		RunE: runChunk,
	}

	cmd.Flags().IntVar(&chunkMaxTokens, "max-tokens", 0, "Token budget per chunk (clamped to 100-8000; default from config)")
	cmd.Flags().StringVar(&chunkConfigPath, "config", "", "YAML config file overlaid on the environment")
	cmd.Flags().StringVar(&chunkStorePath, "store", "", "Also persist chunks to this bolt database")
	cmd.Flags().StringVar(&chunkStrategy, "strategy", "", "Chunking strategy: semantic or lines")

	return cmd
}

func runChunk(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)

	cfg := config.Load()
	if chunkConfigPath != "" {
		var err error
		if cfg, err = config.LoadFile(chunkConfigPath, cfg); err != nil {
			return err
		}
	}
	opts := pipeline.Options{
		Chunker:           cfg.Chunker(chunkMaxTokens),
		Strategy:          cfg.ChunkStrategy,
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
		Logger:            log,
	}
	if chunkStrategy != "" {
		opts.Strategy = chunkStrategy
	}

	files, err := expandGlobs(args)
	if err != nil {
		return err
	}

	var st *store.BoltStore
	if chunkStorePath != "" {
		if st, err = store.OpenBolt(chunkStorePath); err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	var failed []error
	for _, path := range files {
		if err := chunkFile(cmd.Context(), enc, st, path, opts, log); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(failed), len(files), errors.Join(failed...))
	}
	return nil
}

func chunkFile(ctx context.Context, enc *json.Encoder, st *store.BoltStore, path string, opts pipeline.Options, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := pipeline.ChunkDocument(data, path, opts)
	if err != nil {
		return err
	}
	log.Debug("chunked file", "file", path, "chunks", len(doc.Chunks), "pages", doc.Pages)

	for _, c := range doc.Chunks {
		if err := enc.Encode(chunkRecord{
			File:           path,
			Position:       c.Position,
			ContentType:    c.ContentType,
			SectionHeading: c.SectionHeading,
			HeadingLevel:   c.HeadingLevel,
			TokenCount:     c.TokenCount,
			Content:        c.Content,
		}); err != nil {
			return err
		}
	}

	if st == nil {
		return nil
	}
	docID := filepath.ToSlash(path)
	if err := st.DeleteDocument(ctx, docID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("clearing stored chunks: %w", err)
	}
	for _, c := range doc.Chunks {
		if _, err := st.PutChunk(ctx, docID, c); err != nil {
			return fmt.Errorf("storing chunk %d: %w", c.Position, err)
		}
	}
	return nil
}

// expandGlobs resolves each pattern to the regular files it matches, in
// pattern order without duplicates. A pattern matching nothing is an error.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		n := 0
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			n++
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
	}
	return files, nil
}
