// Package discovery implements the File Selection Stage: a deterministic
// walk of the codebase root that applies the Exclusion Engine, counts
// tokens, and enforces the per-file token budget to produce the candidate
// file set every later stage operates on.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmvldz/enginebuilder/internal/exclusion"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
	"github.com/jmvldz/enginebuilder/internal/tokenizer"
)

// WalkerConfig configures one File Selection run.
type WalkerConfig struct {
	// Root is the codebase root directory to walk.
	Root string

	// Exclusions is the compiled Exclusion Engine. Must not be nil; pass
	// exclusion.New(nil) for a no-op engine.
	Exclusions *exclusion.Engine

	// MaxFileTokens drops any file whose token count exceeds this value. A
	// value of 0 disables the budget (every readable file is kept).
	MaxFileTokens int
}

// Walker discovers candidate files in a directory tree in two phases: a
// single synchronous directory walk builds the sorted path list, then
// content is read and tokenized per file. The walk itself
// is not parallelized because ordering must be deterministic per directory
// and the dominant cost is the token counter, which the caller may choose
// to run with its own concurrency.
type Walker struct {
	tokenizer tokenizer.Tokenizer
	logger    *slog.Logger
}

// NewWalker creates a Walker that counts tokens with t.
func NewWalker(t tokenizer.Tokenizer) *Walker {
	return &Walker{
		tokenizer: t,
		logger:    slog.Default().With("component", "file-selection"),
	}
}

// Walk traverses cfg.Root and returns the sorted candidate file list. The
// walk fails only if the root does not exist or is not a directory;
// individual unreadable files are skipped with a warning, matching the
// stage's "unreadable files are skipped" failure mode.
func (w *Walker) Walk(ctx context.Context, cfg WalkerConfig) ([]pipeline.CandidateFile, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path %s: %w", cfg.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	var relPaths []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			w.logger.Warn("walk error, skipping", "path", path, "error", walkErr)
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}

		isDir := d.IsDir()

		if isDir && d.Name() == ".git" {
			return fs.SkipDir
		}

		if isDir {
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			w.logger.Debug("symlink not followed", "path", relPath)
			return nil
		}

		if cfg.Exclusions.IsExcluded(relPath) {
			return nil
		}

		relPaths = append(relPaths, relPath)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking directory %s: %w", root, walkErr)
	}

	sort.Strings(relPaths)

	files := make([]pipeline.CandidateFile, 0, len(relPaths))
	for _, relPath := range relPaths {
		absPath := filepath.Join(root, filepath.FromSlash(relPath))

		if isBin, err := IsBinary(absPath); err == nil && isBin {
			w.logger.Debug("binary file skipped", "path", relPath)
			continue
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			w.logger.Warn("unreadable file skipped", "path", relPath, "error", err)
			continue
		}

		content := string(data)
		tokenCount := w.tokenizer.Count(content)

		if cfg.MaxFileTokens > 0 && tokenCount > cfg.MaxFileTokens {
			w.logger.Debug("file dropped, exceeds max_file_tokens",
				"path", relPath,
				"token_count", tokenCount,
				"max_file_tokens", cfg.MaxFileTokens,
			)
			continue
		}

		info, err := os.Stat(absPath)
		var size int64
		if err == nil {
			size = info.Size()
		}

		files = append(files, pipeline.CandidateFile{
			Path:       relPath,
			TokenCount: tokenCount,
			Size:       size,
			Content:    content,
		})
	}

	w.logger.Info("file selection complete", "candidates", len(files))

	return files, nil
}
