// Package ui serves a browser inspector for the current session file and
// for directory scans.
package ui

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/sclview/batch"
	"github.com/dhamidi/sclview/format"
	"github.com/dhamidi/sclview/highlight"
	"github.com/dhamidi/sclview/session"
	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/tree"
)

var log = commonlog.GetLogger("sclview.ui")

//go:embed static templates
var embeddedFS embed.FS

type Server struct {
	session    *session.Session
	jobs       *batch.Jobs
	theme      highlight.Theme
	staticFS   fs.FS
	templateFS fs.FS
	funcMap    template.FuncMap
	mux        *http.ServeMux
}

func NewServer(s *session.Session, jobs *batch.Jobs, theme highlight.Theme) (*Server, error) {
	staticFS := overlayFS("ui/static", mustSub(embeddedFS, "static"))
	templateFS := overlayFS("ui/templates", mustSub(embeddedFS, "templates"))

	srv := &Server{
		session:    s,
		jobs:       jobs,
		theme:      theme,
		staticFS:   staticFS,
		templateFS: templateFS,
		mux:        http.NewServeMux(),
	}
	srv.funcMap = template.FuncMap{
		"indent": func(depth int) template.CSS {
			return template.CSS(fmt.Sprintf("padding-left: %dem", depth))
		},
		"describe": format.Describe,
		"message":  format.ErrorMessage,
		"add": func(a, b int) int { return a + b },
		"pct": func(part, total int) int {
			if total == 0 {
				return 0
			}
			return part * 100 / total
		},
	}

	// Fail early on broken templates; render parses them again per request
	// so edits under ui/templates show up without a restart.
	if _, err := srv.parseTemplates(); err != nil {
		return nil, err
	}

	srv.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	srv.mux.HandleFunc("POST /open", srv.handleOpen)
	srv.mux.HandleFunc("GET /api/file", srv.handleFile)
	srv.mux.HandleFunc("GET /api/highlights", srv.handleHighlights)
	srv.mux.HandleFunc("POST /api/errors/next", srv.handleNextError)
	srv.mux.HandleFunc("POST /api/errors/prev", srv.handlePrevError)
	srv.mux.HandleFunc("GET /api/node", srv.handleNode)
	srv.mux.HandleFunc("POST /scan", srv.handleScan)
	srv.mux.HandleFunc("GET /scans/{id}", srv.handleGetScan)
	srv.mux.HandleFunc("GET /{$}", srv.handleIndex)

	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(s.funcMap).ParseFS(s.templateFS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, err := s.parseTemplates()
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Errorf("render %s: %v", name, err)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("Content-Type") == "application/json"
}

// isForm reports whether r was sent by an HTML form, which expects a
// redirect rather than a JSON body.
func isForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("write json: %v", err)
	}
}

type errorItem struct {
	Node    *tree.Node
	Current bool
}

type indexData struct {
	File     *session.File
	Source   template.HTML
	Outline  []*tree.Node
	Errors   []errorItem
	Selected *tree.Node
	Position int
	Scans    []batch.Job
	Problem  string
}

func (s *Server) indexData(r *http.Request) indexData {
	data := indexData{Scans: s.jobs.List()}
	f, ok := s.session.Current()
	if !ok {
		return data
	}
	data.File = f
	data.Source = renderSource(f, s.theme)
	for n := range f.Index.All() {
		data.Outline = append(data.Outline, n)
	}
	current, _ := s.session.CurrentError()
	for _, ref := range f.Index.Errors() {
		n := f.Index.MustNode(ref)
		data.Errors = append(data.Errors, errorItem{Node: n, Current: n == current})
	}
	data.Position, _ = s.session.ErrorPosition()
	if pos, ok := positionFrom(r); ok {
		data.Selected, _ = s.session.Select(pos)
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", s.indexData(r))
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		req.Path = r.FormValue("path")
	}
	if req.Path == "" {
		http.Error(w, "must provide path", http.StatusBadRequest)
		return
	}

	f, err := s.session.Load(req.Path)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		if wantsJSON(r) {
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		data := s.indexData(r)
		data.Problem = err.Error()
		s.render(w, status, "index.html", data)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, toFileJSON(f))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) currentFile(w http.ResponseWriter) (*session.File, bool) {
	f, ok := s.session.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no file loaded"})
	}
	return f, ok
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	f, ok := s.currentFile(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toFileJSON(f))
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	f, ok := s.currentFile(w)
	if !ok {
		return
	}
	regions := make([]regionJSON, 0, len(f.Regions))
	for _, region := range f.Regions {
		regions = append(regions, regionJSON{Tag: region.Tag, Span: toSpanJSON(region.Span)})
	}
	writeJSON(w, http.StatusOK, highlightsJSON{Enabled: f.Highlighted, Regions: regions})
}

func (s *Server) handleNextError(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, s.session.NextError)
}

func (s *Server) handlePrevError(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, s.session.PrevError)
}

func (s *Server) step(w http.ResponseWriter, r *http.Request, move func() (*tree.Node, bool)) {
	if _, ok := s.currentFile(w); !ok {
		return
	}
	n, ok := move()
	if isForm(r) {
		target := "/"
		if ok {
			target = fmt.Sprintf("/?row=%d&col=%d", n.Span.Start.Row, n.Span.Start.Column)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	index, total := s.session.ErrorPosition()
	writeJSON(w, http.StatusOK, errorStepJSON{Node: s.nodeJSON(n), Index: index, Total: total})
}

func positionFrom(r *http.Request) (span.Position, bool) {
	q := r.URL.Query()
	row, err := strconv.Atoi(q.Get("row"))
	if err != nil || row < 0 {
		return span.Position{}, false
	}
	col, err := strconv.Atoi(q.Get("col"))
	if err != nil || col < 0 {
		return span.Position{}, false
	}
	return span.Position{Row: row, Column: col}, true
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentFile(w); !ok {
		return
	}
	pos, ok := positionFrom(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "row and col must be non-negative integers"})
		return
	}
	n, ok := s.session.Select(pos)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("no node at %s", pos)})
		return
	}
	writeJSON(w, http.StatusOK, s.nodeJSON(n))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		req.Path = r.FormValue("path")
	}
	if req.Path == "" {
		http.Error(w, "must provide path", http.StatusBadRequest)
		return
	}

	id, err := s.jobs.Submit(req.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
		return
	}
	http.Redirect(w, r, "/scans/"+id, http.StatusSeeOther)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, scanJSON(job))
		return
	}
	s.render(w, http.StatusOK, "scan.html", &job)
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// overlayFS serves files from primaryPath on disk when they exist there and
// from secondary otherwise.
type overlayFSType struct {
	primary   fs.FS
	secondary fs.FS
}

func overlayFS(primaryPath string, secondary fs.FS) fs.FS {
	return &overlayFSType{
		primary:   os.DirFS(primaryPath),
		secondary: secondary,
	}
}

func (o *overlayFSType) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	return o.secondary.Open(name)
}

func (o *overlayFSType) ReadDir(name string) ([]fs.DirEntry, error) {
	entries := make(map[string]fs.DirEntry)
	for _, fsys := range []fs.FS{o.secondary, o.primary} {
		if list, err := fs.ReadDir(fsys, name); err == nil {
			for _, e := range list {
				entries[e.Name()] = e
			}
		}
	}

	result := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, e)
	}
	return result, nil
}
