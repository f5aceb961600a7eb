package main

import (
	"github.com/tliron/commonlog"

	"github.com/dhamidi/sclview/query"
	"github.com/dhamidi/sclview/scl"
	"github.com/dhamidi/sclview/session"
)

var log = commonlog.GetLogger("sclview")

// newSession builds a session with the configured highlight query. A query
// that does not load leaves highlighting off instead of failing the
// command.
func (g *globals) newSession() *session.Session {
	var opts []session.Option
	if g.cfg.Highlight {
		if q, err := g.loadQuery(); err != nil {
			log.Warningf("highlighting disabled: %v", err)
		} else {
			opts = append(opts, session.WithQuery(q))
		}
	}
	return session.New(scl.NewParser(), opts...)
}

func (g *globals) loadQuery() (*query.Query, error) {
	src, err := g.cfg.HighlightQuery()
	if err != nil {
		return nil, err
	}
	return query.Load(src)
}
