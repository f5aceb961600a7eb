package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/sclview/navigate"
	"github.com/dhamidi/sclview/query"
	"github.com/dhamidi/sclview/scl"
	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/syntax"
)

const (
	validSource = "FUNCTION_BLOCK \"FB\"\nBEGIN\n  x := 1;\nEND_FUNCTION_BLOCK\n"
	// Three statements, each missing its terminator.
	threeErrors = "FUNCTION_BLOCK \"FB\"\nBEGIN\n  a := 1\n  b := 2\n  c := 3\nEND_FUNCTION_BLOCK\n"
)

type failingQuery struct{}

func (failingQuery) Captures(syntax.Tree) ([]syntax.Capture, error) {
	return nil, errors.New("query broke")
}

func (failingQuery) CaptureNames() []string { return nil }

type failingParser struct{}

func (failingParser) Parse([]byte) (syntax.Tree, error) {
	return nil, errors.New("parser broke")
}

type nilTreeParser struct{}

func (nilTreeParser) Parse([]byte) (syntax.Tree, error) {
	var tree *scl.Tree
	return tree, nil
}

func newSession(t *testing.T) *Session {
	t.Helper()
	q, err := query.Load(scl.HighlightsQuery)
	require.NoError(t, err)
	return New(scl.NewParser(), WithQuery(q))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	s := newSession(t)
	_, ok := s.Current()
	assert.False(t, ok)

	path := writeFile(t, "fb.scl", threeErrors)
	f, err := s.Load(path)
	require.NoError(t, err)

	current, ok := s.Current()
	require.True(t, ok)
	assert.Same(t, f, current)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, []byte(threeErrors), f.Source)
	assert.Equal(t, threeErrors, f.Text)
	assert.Equal(t, f.Index.Generation(), f.Generation)
	assert.False(t, f.ModTime.IsZero())
	assert.True(t, f.Tree.HasError())
	assert.Equal(t, navigate.Active, f.Navigator.State())
	_, total := f.Navigator.Position()
	assert.Equal(t, 3, total)
	assert.True(t, f.Highlighted)
	assert.NotEmpty(t, f.Regions)
	assert.True(t, s.Highlighting())
}

func TestLoadFailureKeepsCurrentFile(t *testing.T) {
	s := newSession(t)
	f, err := s.LoadBytes("a.scl", []byte(validSource))
	require.NoError(t, err)

	_, err = s.Load(filepath.Join(t.TempDir(), "missing.scl"))
	require.ErrorIs(t, err, os.ErrNotExist)

	current, _ := s.Current()
	assert.Same(t, f, current)
}

func TestParserFailureKeepsCurrentFile(t *testing.T) {
	s := New(failingParser{})
	_, err := s.LoadBytes("a.scl", []byte(validSource))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser broke")
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestTypedNilTree(t *testing.T) {
	s := New(nilTreeParser{})
	_, err := s.LoadBytes("a.scl", []byte(validSource))
	assert.ErrorIs(t, err, ErrNoTree)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestHighlightFailureDisablesRegions(t *testing.T) {
	s := New(scl.NewParser(), WithQuery(failingQuery{}))
	f, err := s.LoadBytes("a.scl", []byte(validSource))
	require.NoError(t, err)
	assert.False(t, f.Highlighted)
	assert.Empty(t, f.Regions)
	assert.False(t, s.Highlighting())
}

func TestWithoutQuery(t *testing.T) {
	s := New(scl.NewParser())
	f, err := s.LoadBytes("a.scl", []byte(validSource))
	require.NoError(t, err)
	assert.False(t, f.Highlighted)
}

func TestDecode(t *testing.T) {
	s := New(scl.NewParser())
	src := append([]byte("\xEF\xBB\xBF"), []byte(validSource)...)
	f, err := s.LoadBytes("bom.scl", src)
	require.NoError(t, err)
	assert.Equal(t, validSource, f.Text)
	assert.Equal(t, src, f.Source)
	assert.False(t, f.Tree.HasError())

	f, err = s.LoadBytes("bad.scl", []byte("// caf\xE9\n"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(f.Text, "\uFFFD"), "text %q", f.Text)
}

func TestErrorNavigation(t *testing.T) {
	s := newSession(t)
	_, ok := s.NextError()
	assert.False(t, ok, "no file loaded")

	_, err := s.LoadBytes("a.scl", []byte(threeErrors))
	require.NoError(t, err)

	var rows []int
	for range 4 {
		n, ok := s.NextError()
		require.True(t, ok)
		assert.True(t, n.Missing)
		rows = append(rows, n.Span.Start.Row)
	}
	assert.Equal(t, []int{2, 3, 4, 2}, rows)

	n, ok := s.PrevError()
	require.True(t, ok)
	assert.Equal(t, 4, n.Span.Start.Row)

	n, ok = s.CurrentError()
	require.True(t, ok)
	assert.Equal(t, 4, n.Span.Start.Row)
	index, total := s.ErrorPosition()
	assert.Equal(t, 2, index)
	assert.Equal(t, 3, total)

	// A new load starts over.
	_, err = s.LoadBytes("b.scl", []byte(threeErrors))
	require.NoError(t, err)
	index, _ = s.ErrorPosition()
	assert.Equal(t, -1, index)
	n, ok = s.NextError()
	require.True(t, ok)
	assert.Equal(t, 2, n.Span.Start.Row)
}

func TestErrorNavigationWithoutErrors(t *testing.T) {
	s := newSession(t)
	_, err := s.LoadBytes("a.scl", []byte(validSource))
	require.NoError(t, err)
	_, ok := s.NextError()
	assert.False(t, ok)
	_, ok = s.PrevError()
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	s := newSession(t)
	_, ok := s.Select(span.Position{})
	assert.False(t, ok)

	_, err := s.LoadBytes("a.scl", []byte(validSource))
	require.NoError(t, err)

	n, ok := s.Select(span.Position{Row: 2, Column: 2})
	require.True(t, ok)
	assert.Equal(t, "simple_identifier", n.Kind)

	_, ok = s.Select(span.Position{Row: 40, Column: 0})
	assert.False(t, ok)
}

func TestConcurrentLoads(t *testing.T) {
	s := newSession(t)
	sources := []string{validSource, threeErrors}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				src := sources[(i+j)%len(sources)]
				_, err := s.LoadBytes("f.scl", []byte(src))
				assert.NoError(t, err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				s.NextError()
				if f, ok := s.Current(); ok {
					assert.Equal(t, f.Index.Generation(), f.Generation)
					assert.Equal(t, f.Tree.HasError(), len(f.Index.Errors()) > 0)
				}
			}
		}()
	}
	wg.Wait()
}

func TestWatcher(t *testing.T) {
	s := newSession(t)
	path := writeFile(t, "fb.scl", validSource)
	first, err := s.Load(path)
	require.NoError(t, err)

	var reloads []*File
	w := NewWatcher(s, time.Millisecond, func(f *File, err error) {
		require.NoError(t, err)
		reloads = append(reloads, f)
	})
	assert.False(t, w.Check(), "unchanged file")

	require.NoError(t, os.WriteFile(path, []byte(threeErrors), 0o644))
	later := first.ModTime.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	assert.True(t, w.Check())
	require.Len(t, reloads, 1)
	current, _ := s.Current()
	assert.Same(t, reloads[0], current)
	assert.True(t, current.Tree.HasError())
	assert.NotEqual(t, first.Generation, current.Generation)

	assert.False(t, w.Check(), "reloaded already")
}

func TestWatcherIgnoresInMemoryFiles(t *testing.T) {
	s := newSession(t)
	_, err := s.LoadBytes("a.scl", []byte(validSource))
	require.NoError(t, err)
	assert.False(t, NewWatcher(s, 0, nil).Check())
}

func TestReloadSuperseded(t *testing.T) {
	s := newSession(t)
	first, err := s.Load(writeFile(t, "a.scl", validSource))
	require.NoError(t, err)
	second, err := s.Load(writeFile(t, "b.scl", validSource))
	require.NoError(t, err)

	_, err = s.reload(first)
	assert.ErrorIs(t, err, ErrSuperseded)
	current, _ := s.Current()
	assert.Same(t, second, current)
}

func TestDisplay(t *testing.T) {
	s := New(scl.NewParser())
	src := "\xEF\xBB\xBF// caf\xff\n" + validSource
	f, err := s.LoadBytes("bom.scl", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "// caf\uFFFD\n", f.Display(0, strings.Index(src, "FUNCTION")))
	assert.Equal(t, "", f.Display(0, 2), "inside the byte order mark")
	assert.Equal(t, "FUNCTION_BLOCK", f.Display(strings.Index(src, "FUNCTION"), strings.Index(src, " \"FB\"")))
	assert.Equal(t, f.Text, f.Display(0, len(src)))
}
