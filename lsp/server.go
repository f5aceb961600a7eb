// Package lsp serves SCL parse errors and document outlines over the
// Language Server Protocol.
package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/sclview/syntax"
)

const lsName = "sclview"

var log = commonlog.GetLogger("sclview.lsp")

type Server struct {
	parser  syntax.Parser
	handler protocol.Handler
	server  *server.Server
	version string

	mu        sync.Mutex
	documents map[protocol.DocumentUri]*Document
}

func NewServer(parser syntax.Parser, version string) *Server {
	ls := &Server{
		parser:    parser,
		version:   version,
		documents: make(map[protocol.DocumentUri]*Document),
	}

	ls.handler = protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		SetTrace:                   ls.setTrace,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentDidSave:        ls.textDocumentDidSave,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// update parses text as the new content of uri and publishes its
// diagnostics.
func (ls *Server) update(ctx *glsp.Context, uri protocol.DocumentUri, version protocol.Integer, text []byte) {
	path, _ := uriToPath(uri)
	doc, err := ls.Update(uri, version, text)
	if err != nil {
		log.Errorf("parse %s: %v", path, err)
		return
	}
	log.Debugf("parsed %s: %d errors", path, len(doc.Index.Errors()))
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: doc.Diagnostics(),
	})
}

// Update parses text and stores it as the content of uri.
func (ls *Server) Update(uri protocol.DocumentUri, version protocol.Integer, text []byte) (*Document, error) {
	doc, err := Parse(ls.parser, uri, text)
	if err != nil {
		return nil, err
	}
	doc.Version = version

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if old, ok := ls.documents[uri]; ok && old.Version > version {
		return old, nil
	}
	ls.documents[uri] = doc
	return doc, nil
}

// Document returns the stored content of uri.
func (ls *Server) Document(uri protocol.DocumentUri) (*Document, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	doc, ok := ls.documents[uri]
	return doc, ok
}

func (ls *Server) forget(uri protocol.DocumentUri) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.documents, uri)
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.update(ctx, params.TextDocument.URI, params.TextDocument.Version, []byte(params.TextDocument.Text))
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.update(ctx, params.TextDocument.URI, params.TextDocument.Version, []byte(textChange.Text))
		}
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.forget(params.TextDocument.URI)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text == nil {
		return nil
	}
	version := protocol.Integer(0)
	if doc, ok := ls.Document(params.TextDocument.URI); ok {
		version = doc.Version
	}
	ls.update(ctx, params.TextDocument.URI, version, []byte(*params.Text))
	return nil
}

func (ls *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := ls.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return doc.Symbols(), nil
}

// uriToPath turns a file URI into a local path, for log messages.
func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
