// Package session holds the file a front end is currently showing: its
// source, tree index, error navigator and highlight regions.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"golang.org/x/text/encoding/unicode"

	"github.com/dhamidi/sclview/highlight"
	"github.com/dhamidi/sclview/navigate"
	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
	"github.com/dhamidi/sclview/tree"
)

var log = commonlog.GetLogger("sclview.session")

var (
	ErrNoTree     = errors.New("parser returned no tree")
	ErrSuperseded = errors.New("another file was loaded meanwhile")
)

// File is everything derived from one load. It is never modified after
// Load returns it, except for the navigator cursor, which only moves through
// the Session.
type File struct {
	Path string
	// Source is the raw input handed to the parser. Spans index into it.
	Source []byte
	// Text is Source decoded for display: UTF-8 with invalid sequences
	// replaced and a leading byte order mark removed.
	Text      string
	Tree      syntax.Tree
	Index     *tree.Index
	Regions   []highlight.Region
	Navigator *navigate.Navigator
	// Highlighted is false when no query is configured or resolving its
	// captures failed for this file.
	Highlighted bool
	Generation  uint64
	ModTime     time.Time
	LoadedAt    time.Time
}

type Option func(*Session)

// WithQuery sets the highlight query run after every load.
func WithQuery(q syntax.Query) Option {
	return func(s *Session) {
		s.query = q
	}
}

// Session is safe for concurrent use. Loads are serialized, and readers see
// either the previous file or the new one, never a mix.
type Session struct {
	parser  syntax.Parser
	query   syntax.Query
	mu      sync.Mutex
	current atomic.Pointer[File]
}

func New(parser syntax.Parser, opts ...Option) *Session {
	s := &Session{parser: parser}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the file most recently loaded.
func (s *Session) Current() (*File, bool) {
	f := s.current.Load()
	return f, f != nil
}

// Highlighting reports whether the current file has highlight regions.
func (s *Session) Highlighting() bool {
	f, ok := s.Current()
	return ok && f.Highlighted
}

// Load reads path and replaces the current file with it. On failure the
// current file is left as it was.
func (s *Session) Load(path string) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPath(path, nil)
}

// LoadBytes replaces the current file with src, shown under name.
func (s *Session) LoadBytes(name string, src []byte) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.build(name, src, time.Time{})
	if err != nil {
		return nil, err
	}
	s.current.Store(f)
	return f, nil
}

// reload loads from's path again, unless another file became current.
func (s *Session) reload(from *File) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPath(from.Path, from)
}

func (s *Session) loadPath(path string, expect *File) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	f, err := s.build(path, src, info.ModTime())
	if err != nil {
		return nil, err
	}
	if expect != nil && s.current.Load() != expect {
		return nil, ErrSuperseded
	}
	s.current.Store(f)
	return f, nil
}

// build runs the load pipeline: parse, index, navigator, highlights.
func (s *Session) build(path string, src []byte, modTime time.Time) (*File, error) {
	parsed, err := s.parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if syntax.IsNil(parsed) {
		return nil, fmt.Errorf("parse %s: %w", path, ErrNoTree)
	}
	ix, err := tree.Build(parsed.RootNode())
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}

	f := &File{
		Path:       path,
		Source:     src,
		Text:       decode(src),
		Tree:       parsed,
		Index:      ix,
		Navigator:  navigate.New(ix.Errors()),
		Generation: ix.Generation(),
		ModTime:    modTime,
		LoadedAt:   time.Now(),
	}

	if s.query != nil {
		regions, err := s.resolve(parsed, ix)
		if err != nil {
			log.Warningf("highlighting disabled for %s: %v", path, err)
		} else {
			f.Regions = regions
			f.Highlighted = true
		}
	}
	log.Infof("loaded %s: %d nodes, %d errors", path, ix.Len(), len(ix.Errors()))
	return f, nil
}

func (s *Session) resolve(parsed syntax.Tree, ix *tree.Index) ([]highlight.Region, error) {
	captures, err := s.query.Captures(parsed)
	if err != nil {
		return nil, err
	}
	return highlight.Resolve(ix, captures)
}

func decode(src []byte) string {
	text, err := unicode.UTF8BOM.NewDecoder().Bytes(src)
	if err != nil {
		return string(src)
	}
	return string(text)
}

var bom = []byte("\xEF\xBB\xBF")

// Display returns Source[start:end] decoded the way Text is: invalid
// sequences become U+FFFD and a byte order mark at the start of the file
// is dropped. Renderers paint with it because spans index Source.
func (f *File) Display(start, end int) string {
	if bytes.HasPrefix(f.Source, bom) && start < len(bom) {
		start = min(len(bom), end)
	}
	raw := f.Source[start:end]
	if utf8.Valid(raw) {
		return string(raw)
	}
	text, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(text)
}

func (s *Session) step(move func(*navigate.Navigator) (tree.Ref, bool)) (*tree.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.Current()
	if !ok {
		return nil, false
	}
	ref, ok := move(f.Navigator)
	if !ok {
		return nil, false
	}
	n, err := f.Index.Node(ref)
	if err != nil {
		return nil, false
	}
	return n, true
}

// NextError moves to the next error of the current file, wrapping around
// after the last one.
func (s *Session) NextError() (*tree.Node, bool) {
	return s.step((*navigate.Navigator).Next)
}

// PrevError moves to the previous error, wrapping around before the first.
func (s *Session) PrevError() (*tree.Node, bool) {
	return s.step((*navigate.Navigator).Prev)
}

// CurrentError returns the error the navigator points at.
func (s *Session) CurrentError() (*tree.Node, bool) {
	return s.step((*navigate.Navigator).Current)
}

// ErrorPosition returns the navigator position within the current file's
// errors. index is -1 before the first step.
func (s *Session) ErrorPosition() (index, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.Current()
	if !ok {
		return -1, 0
	}
	return f.Navigator.Position()
}

// Select returns the deepest node of the current file covering pos.
func (s *Session) Select(pos span.Position) (*tree.Node, bool) {
	f, ok := s.Current()
	if !ok {
		return nil, false
	}
	ref, ok := f.Index.NodeAt(pos)
	if !ok {
		return nil, false
	}
	return f.Index.MustNode(ref), true
}
