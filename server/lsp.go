package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/kavya/compiler"
	"github.com/chazu/kavya/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "kavya-lsp"

// LspServer publishes compile diagnostics and offers completion, hover,
// definition, and references for Kavya documents.
type LspServer struct {
	worker *VMWorker
	log    commonlog.Logger

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server wrapping the given VM. The VM must
// have a compiler installed.
func NewLSP(v *vm.VM, version string) *LspServer {
	s := &LspServer{
		worker:  NewVMWorker(v),
		log:     commonlog.GetLogger("kavya.lsp"),
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	defer s.worker.Stop()
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.log.Info("shutting down")
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.setDocument(uri, text)
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDocument(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDocument(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(v *vm.VM) any {
		return v.GlobalNames()
	})
	if err != nil {
		return nil, err
	}

	return complete(text, prefix, result.([]string)), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(text, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	locations := definition(uri, text, word)
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return references(uri, text, word), nil
}

// --- Document analysis ---

// keywordDocs describes each keyword for hover.
var keywordDocs = map[string]string{
	"the":     "`the name = value` declares a variable. `the name` alone starts it as `null`.",
	"is":      "`name is value` assigns, the same as `name = value`.",
	"write":   "`write expr` prints the value followed by a newline.",
	"ask":     "`ask \"prompt\"` prints the prompt and evaluates to the line read, or `null` at end of input.",
	"if":      "`if cond { ... } else { ... }` runs one branch. Only `null` and `false` are falsey.",
	"else":    "Introduces the alternative branch of an `if`.",
	"while":   "`while cond { ... }` repeats the body while the condition is truthy.",
	"for":     "`for (init, cond, step) { ... }` loops; the parentheses are optional and every clause may be empty.",
	"and":     "Logical and. Evaluates the right operand only if the left is truthy.",
	"or":      "Logical or. Evaluates the right operand only if the left is falsey.",
	"true":    "Boolean true.",
	"false":   "Boolean false.",
	"null":    "The absent value.",
	"class":   "Reserved for future use.",
	"purpose": "Reserved for future use.",
	"return":  "Reserved for future use.",
	"super":   "Reserved for future use.",
	"this":    "Reserved for future use.",
}

// declaration is a variable introduced by `the`.
type declaration struct {
	name  compiler.Token
	depth int // brace depth of the declaration
}

// tokens scans text to the end, dropping newlines and lexical errors.
func tokens(text string) []compiler.Token {
	scanner := compiler.NewScanner(text)
	var toks []compiler.Token
	for {
		tok := scanner.NextToken()
		switch tok.Type {
		case compiler.TokenEOF:
			return toks
		case compiler.TokenNewline, compiler.TokenError:
			continue
		}
		toks = append(toks, tok)
	}
}

// declarations returns every `the` declaration in text in source order.
func declarations(text string) []declaration {
	var decls []declaration
	depth := 0
	toks := tokens(text)
	for i, tok := range toks {
		switch tok.Type {
		case compiler.TokenLeftBrace:
			depth++
		case compiler.TokenRightBrace:
			if depth > 0 {
				depth--
			}
		case compiler.TokenThe:
			if i+1 < len(toks) && toks[i+1].Type == compiler.TokenIdentifier {
				decls = append(decls, declaration{name: toks[i+1], depth: depth})
			}
		}
	}
	return decls
}

// complete offers keywords, names declared in the document, and globals
// already defined in the VM that start with prefix.
func complete(text, prefix string, globals []string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	lowerPrefix := strings.ToLower(prefix)

	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if seen[label] || !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		seen[label] = true
		labelCopy, detailCopy, kindCopy := label, detail, kind
		items = append(items, protocol.CompletionItem{
			Label:      labelCopy,
			Kind:       &kindCopy,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	for _, kw := range compiler.Keywords() {
		add(kw, "keyword", protocol.CompletionItemKindKeyword)
	}
	for _, d := range declarations(text) {
		add(d.name.Lexeme, fmt.Sprintf("variable (line %d)", d.name.Line), protocol.CompletionItemKindVariable)
	}
	for _, name := range globals {
		add(name, "global", protocol.CompletionItemKindVariable)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Label < items[j].Label
	})

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func hover(text, word string) *protocol.Hover {
	var value string
	if doc, ok := keywordDocs[word]; ok {
		value = fmt.Sprintf("**%s** (keyword)\n\n%s", word, doc)
	} else {
		var lines []string
		for _, d := range declarations(text) {
			if d.name.Lexeme != word {
				continue
			}
			scope := "global"
			if d.depth > 0 {
				scope = "local"
			}
			lines = append(lines, fmt.Sprintf("- line %d (%s)", d.name.Line, scope))
		}
		if len(lines) == 0 {
			return nil
		}
		value = fmt.Sprintf("**%s**\n\nDeclared at:\n%s", word, strings.Join(lines, "\n"))
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// definition returns the `the` declarations of word.
func definition(uri protocol.DocumentUri, text, word string) []protocol.Location {
	var locations []protocol.Location
	for _, d := range declarations(text) {
		if d.name.Lexeme == word {
			locations = append(locations, tokenLocation(uri, text, d.name))
		}
	}
	return locations
}

// references returns every identifier token spelled word.
func references(uri protocol.DocumentUri, text, word string) []protocol.Location {
	var locations []protocol.Location
	for _, tok := range tokens(text) {
		if tok.Type == compiler.TokenIdentifier && tok.Lexeme == word {
			locations = append(locations, tokenLocation(uri, text, tok))
		}
	}
	return locations
}

// tokenLocation converts a token's byte offset into an LSP range.
func tokenLocation(uri protocol.DocumentUri, text string, tok compiler.Token) protocol.Location {
	lineStart := strings.LastIndexByte(text[:tok.Offset], '\n') + 1
	col := utf8.RuneCountInString(text[lineStart:tok.Offset])
	line := protocol.UInteger(tok.Line - 1)
	return protocol.Location{
		URI: uri,
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: protocol.UInteger(col)},
			End:   protocol.Position{Line: line, Character: protocol.UInteger(col + utf8.RuneCountInString(tok.Lexeme))},
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics, err := s.diagnose(text)
	if err != nil {
		s.log.Errorf("diagnostics for %s: %s", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose compiles text on the VM worker and converts each compile error
// into a diagnostic spanning its line.
func (s *LspServer) diagnose(text string) ([]protocol.Diagnostic, error) {
	compileErr := s.worker.Compile(text)
	if errors.Is(compileErr, ErrWorkerStopped) {
		return nil, compileErr
	}

	diagnostics := []protocol.Diagnostic{}
	if compileErr == nil {
		return diagnostics, nil
	}

	var list compiler.ErrorList
	if !errors.As(compileErr, &list) {
		return nil, compileErr
	}

	lines := strings.Split(text, "\n")
	severity := protocol.DiagnosticSeverityError
	source := lspName
	for _, e := range list {
		line := e.Line - 1
		if line < 0 {
			line = 0
		}
		end := 0
		if line < len(lines) {
			end = utf8.RuneCountInString(lines[line])
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
				End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  diagnosticMessage(e),
		})
	}
	return diagnostics, nil
}

// diagnosticMessage drops the line prefix the CLI prints, since the range
// already carries the line.
func diagnosticMessage(e *compiler.Error) string {
	if e.Where == "" {
		return e.Message
	}
	return strings.TrimSpace(e.Where) + ": " + e.Message
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordRune(line[end]) {
		end++
	}
	return string(line[start:end])
}

// cursorLine returns the cursor's line as runes and the clamped column.
func cursorLine(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(lines[pos.Line])
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
