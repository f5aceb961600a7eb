// Package batch parses every SCL source below a directory and reports which
// files contain syntax errors.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/sclview/syntax"
)

var log = commonlog.GetLogger("sclview.batch")

// DefaultExtensions are the file extensions of SCL sources, user defined
// types and data blocks.
var DefaultExtensions = []string{".scl", ".udt", ".db"}

var (
	ErrParserPanic = errors.New("parser panicked")
	ErrNoTree      = errors.New("parser returned no tree")
)

// FileEntry is the outcome of parsing one file. The tree itself is not kept.
type FileEntry struct {
	Path     string
	HasError bool
}

// FileError reports a file that could not be read or parsed. Scanning goes
// on after it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

type Option func(*Scanner)

// WithExtensions replaces the extensions of files to scan. They are
// compared without regard to case.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		s.extensions = slices.Clone(exts)
	}
}

// WithGitignore skips files matched by the .gitignore at the scan root.
func WithGitignore(enabled bool) Option {
	return func(s *Scanner) {
		s.gitignore = enabled
	}
}

// WithSkipHidden skips files and directories whose name starts with a dot.
func WithSkipHidden(enabled bool) Option {
	return func(s *Scanner) {
		s.skipHidden = enabled
	}
}

type Scanner struct {
	parser     syntax.Parser
	extensions []string
	gitignore  bool
	skipHidden bool
}

func New(parser syntax.Parser, opts ...Option) *Scanner {
	s := &Scanner{
		parser:     parser,
		extensions: slices.Clone(DefaultExtensions),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) matches(path string) bool {
	ext := filepath.Ext(path)
	return slices.ContainsFunc(s.extensions, func(want string) bool {
		return strings.EqualFold(ext, want)
	})
}

func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

func (s *Scanner) loadIgnore(root string) *gitignore.GitIgnore {
	if !s.gitignore {
		return nil
	}
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ignore, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		log.Warningf("ignoring %s: %v", path, err)
		return nil
	}
	return ignore
}

// Scan walks root in lexical order and yields one entry per matching file.
// Files are parsed one at a time, when the sequence is pulled. Read and parse
// failures are yielded as *FileError and the walk continues.
//
// ctx is checked between files. A cancelled scan yields ctx.Err() once and
// ends; the file being parsed at that moment is not reported.
func (s *Scanner) Scan(ctx context.Context, root string) iter.Seq2[FileEntry, error] {
	return func(yield func(FileEntry, error) bool) {
		ignore := s.loadIgnore(root)
		stopped := false
		emit := func(entry FileEntry, err error) error {
			if !yield(entry, err) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		}

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err != nil {
				log.Warningf("walk %s: %v", path, err)
				return emit(FileEntry{}, &FileError{Path: path, Err: err})
			}
			if path != root && s.skipHidden && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !s.matches(path) {
				return nil
			}
			if ignore != nil {
				if rel, err := filepath.Rel(root, path); err == nil && ignore.MatchesPath(filepath.ToSlash(rel)) {
					return nil
				}
			}

			hasError, err := s.parseFile(path)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				log.Warningf("%s: %v", path, err)
				return emit(FileEntry{}, &FileError{Path: path, Err: err})
			}
			return emit(FileEntry{Path: path, HasError: hasError}, nil)
		})
		if walkErr != nil && !stopped {
			yield(FileEntry{}, walkErr)
		}
	}
}

func (s *Scanner) parseFile(path string) (hasError bool, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read file: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			hasError = false
			err = fmt.Errorf("%w: %v", ErrParserPanic, r)
		}
	}()
	tree, err := s.parser.Parse(src)
	if err != nil {
		return false, fmt.Errorf("parse: %w", err)
	}
	if syntax.IsNil(tree) || syntax.IsNil(tree.RootNode()) {
		return false, ErrNoTree
	}
	return tree.HasError(), nil
}

// Report is a drained scan.
type Report struct {
	Entries  []FileEntry
	Failures []*FileError
}

// Errored returns the entries whose tree contains syntax errors.
func (r Report) Errored() []FileEntry {
	var out []FileEntry
	for _, e := range r.Entries {
		if e.HasError {
			out = append(out, e)
		}
	}
	return out
}

// Collect drains seq. Per-file failures are gathered in the report; any
// other error ends collection and is returned with what was gathered so far.
func Collect(seq iter.Seq2[FileEntry, error]) (Report, error) {
	var report Report
	for entry, err := range seq {
		if err != nil {
			var fileErr *FileError
			if errors.As(err, &fileErr) {
				report.Failures = append(report.Failures, fileErr)
				continue
			}
			return report, err
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}
