// Package scanner enumerates the files eligible for indexing and watches
// them for changes.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/localseek/localseek/pkg/types"
)

// Lister is the filesystem scanner collaborator: it produces the current
// listing consumed once per scan cycle by the indexer.
type Lister interface {
	ListCurrentFiles(ctx context.Context, roots []string) ([]types.FileStat, error)
}

// Options configure a Scanner.
type Options struct {
	ExcludeDirs []string // Directory names to prune, in addition to the defaults
	MaxFileSize int64    // Bytes; 0 means unlimited
	IncludeExts []string // When non-empty, only these extensions are listed
}

// defaultExcludeDirs are directory names never worth indexing.
var defaultExcludeDirs = []string{
	"node_modules", "__pycache__", ".git", ".svn", ".hg",
	"venv", ".venv", ".cache", ".Trash",
	"build", "dist", "target", "vendor",
}

// defaultSkipExts are extensions with no searchable text.
var defaultSkipExts = []string{
	".tmp", ".bak", ".swp", ".lock",
	".dylib", ".so", ".dll", ".exe", ".o", ".a",
	".mp4", ".avi", ".mov", ".mp3", ".wav", ".flac",
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".ico",
	".zip", ".tar", ".gz", ".rar", ".7z",
	".db", ".sqlite", ".sqlite3",
}

// Scanner walks configured roots and lists candidate files.
type Scanner struct {
	excludeDirs map[string]struct{}
	skipExts    map[string]struct{}
	includeExts map[string]struct{}
	maxFileSize int64
}

// New creates a Scanner with the given options merged over the defaults.
func New(opts Options) *Scanner {
	s := &Scanner{
		excludeDirs: make(map[string]struct{}),
		skipExts:    make(map[string]struct{}),
		maxFileSize: opts.MaxFileSize,
	}
	for _, d := range defaultExcludeDirs {
		s.excludeDirs[d] = struct{}{}
	}
	for _, d := range opts.ExcludeDirs {
		s.excludeDirs[d] = struct{}{}
	}
	for _, e := range defaultSkipExts {
		s.skipExts[strings.ToLower(e)] = struct{}{}
	}
	if len(opts.IncludeExts) > 0 {
		s.includeExts = make(map[string]struct{}, len(opts.IncludeExts))
		for _, e := range opts.IncludeExts {
			s.includeExts[strings.ToLower(e)] = struct{}{}
		}
	}
	return s
}

// ListCurrentFiles walks roots and returns one FileStat per eligible file.
// Overlapping roots are deduplicated; output order is deterministic (sorted
// by path). Unreadable subtrees are skipped, not fatal.
func (s *Scanner) ListCurrentFiles(ctx context.Context, roots []string) ([]types.FileStat, error) {
	seen := make(map[string]struct{})
	var stats []types.FileStat

	for _, root := range roots {
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && s.skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || s.skipFile(d.Name()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			stats = append(stats, types.FileStat{
				Path:      path,
				SizeBytes: info.Size(),
				ModTime:   info.ModTime(),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Path < stats[j].Path })
	return stats, nil
}

func (s *Scanner) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, excluded := s.excludeDirs[name]
	return excluded
}

func (s *Scanner) skipFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	if s.includeExts != nil {
		_, ok := s.includeExts[ext]
		return !ok
	}
	_, skip := s.skipExts[ext]
	return skip
}
