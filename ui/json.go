package ui

import (
	"time"

	"github.com/dhamidi/sclview/batch"
	"github.com/dhamidi/sclview/format"
	"github.com/dhamidi/sclview/session"
	"github.com/dhamidi/sclview/span"
	"github.com/dhamidi/sclview/tree"
)

type positionJSON struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

type spanJSON struct {
	Start positionJSON `json:"start"`
	End   positionJSON `json:"end"`
}

func toSpanJSON(s span.Span) spanJSON {
	return spanJSON{
		Start: positionJSON{Row: s.Start.Row, Column: s.Start.Column},
		End:   positionJSON{Row: s.End.Row, Column: s.End.Column},
	}
}

type nodeJSON struct {
	Kind    string   `json:"kind"`
	Field   string   `json:"field,omitempty"`
	Named   bool     `json:"named"`
	Error   bool     `json:"error,omitempty"`
	Missing bool     `json:"missing,omitempty"`
	Message string   `json:"message,omitempty"`
	Span    spanJSON `json:"span"`
	Depth   int      `json:"depth"`
	// Path lists the kinds from the root down to the node.
	Path []string `json:"path,omitempty"`
}

func (s *Server) nodeJSON(n *tree.Node) nodeJSON {
	out := nodeJSON{
		Kind:    n.Kind,
		Field:   n.Field,
		Named:   n.Named,
		Error:   n.Error,
		Missing: n.Missing,
		Span:    toSpanJSON(n.Span),
		Depth:   n.Depth,
	}
	if n.IsError() {
		out.Message = format.ErrorMessage(n)
	}
	if f, ok := s.session.Current(); ok {
		if path, err := f.Index.Path(n.Ref); err == nil {
			for _, ref := range path {
				out.Path = append(out.Path, f.Index.MustNode(ref).Kind)
			}
		}
	}
	return out
}

type errorJSON struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Span    spanJSON `json:"span"`
}

type fileJSON struct {
	Path         string      `json:"path"`
	Generation   uint64      `json:"generation"`
	Nodes        int         `json:"nodes"`
	HasError     bool        `json:"has_error"`
	Highlighting bool        `json:"highlighting"`
	Errors       []errorJSON `json:"errors"`
	LoadedAt     time.Time   `json:"loaded_at"`
}

func toFileJSON(f *session.File) fileJSON {
	out := fileJSON{
		Path:         f.Path,
		Generation:   f.Generation,
		Nodes:        f.Index.Len(),
		HasError:     f.Tree.HasError(),
		Highlighting: f.Highlighted,
		Errors:       []errorJSON{},
		LoadedAt:     f.LoadedAt,
	}
	for _, ref := range f.Index.Errors() {
		n := f.Index.MustNode(ref)
		out.Errors = append(out.Errors, errorJSON{Kind: n.Kind, Message: format.ErrorMessage(n), Span: toSpanJSON(n.Span)})
	}
	return out
}

type regionJSON struct {
	Tag  string   `json:"tag"`
	Span spanJSON `json:"span"`
}

type highlightsJSON struct {
	Enabled bool         `json:"enabled"`
	Regions []regionJSON `json:"regions"`
}

type errorStepJSON struct {
	Node  nodeJSON `json:"node"`
	Index int      `json:"index"`
	Total int      `json:"total"`
}

type scanEntryJSON struct {
	Path     string `json:"path"`
	HasError bool   `json:"has_error"`
}

type scanResultJSON struct {
	ID        string          `json:"id"`
	Root      string          `json:"root"`
	Status    batch.Status    `json:"status"`
	Files     int             `json:"files"`
	Errored   []scanEntryJSON `json:"errored"`
	Failures  []string        `json:"failures,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
}

func scanJSON(job batch.Job) scanResultJSON {
	out := scanResultJSON{
		ID:        job.ID,
		Root:      job.Root,
		Status:    job.Status,
		Files:     len(job.Entries),
		Errored:   []scanEntryJSON{},
		Failures:  job.Failures,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
	}
	for _, e := range job.Errored() {
		out.Errored = append(out.Errored, scanEntryJSON{Path: e.Path, HasError: e.HasError})
	}
	if !job.EndedAt.IsZero() {
		ended := job.EndedAt
		out.EndedAt = &ended
	}
	return out
}
