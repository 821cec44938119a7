// Package ingest collects invoice images from a directory for batch extraction.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// File is one invoice image read from disk.
type File struct {
	Path    string
	Data    []byte
	HashHex string
}

type FileResult struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Err          string
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// ScanDirectory walks root, filters by includeExts (or the accepted image types), skips
// hidden entries if requested, and reads every matching file. Files whose content
// hash was already seen are reported as deduplicated and not returned again.
func ScanDirectory(ctx context.Context, root string, includeExts []string, skipHidden bool, logger *slog.Logger) ([]File, []FileResult, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	// Build ext set
	var exts map[string]struct{}
	if len(includeExts) > 0 {
		exts = map[string]struct{}{}
		for _, e := range includeExts {
			if e = NormalizeExt(strings.TrimSpace(e)); e != "" {
				exts[e] = struct{}{}
			}
		}
	}
	matches := func(path string) bool {
		ext := filepath.Ext(path)
		if exts == nil {
			return AllowedExt(ext)
		}
		_, ok := exts[NormalizeExt(ext)]
		return ok
	}

	var (
		files   []File
		results []FileResult
		stats   DirStats
		seen    = map[string]string{}
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		// skip hidden dirs/files if requested
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		// only files
		if d.IsDir() || !matches(path) {
			return nil
		}
		stats.Matched++

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("ingest.read.failed", "path", path, "error", err)
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])

		if first, dup := seen[hash]; dup {
			logger.Info("ingest.duplicate", "path", path, "same_as", first)
			results = append(results, FileResult{Path: path, HashHex: hash, Deduplicated: true})
			stats.Deduplicated++
			return nil
		}
		seen[hash] = path
		files = append(files, File{Path: path, Data: data, HashHex: hash})
		results = append(results, FileResult{Path: path, HashHex: hash})
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return files, results, stats, fmt.Errorf("walk: %w", err)
	}
	logger.Info("ingest.scan.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return files, results, stats, nil
}
