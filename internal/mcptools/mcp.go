// Package mcptools exposes encoding, decoding and rendering as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mithrel/hashmark/internal/editor"
	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
	"github.com/mithrel/hashmark/pkg/fragment"
)

// Tools holds what the handlers need.
type Tools struct {
	BaseURL string
	Decoder *fragment.Decoder
	Render  *render.Pipeline
	// TerminalStyle is the glamour style for format=terminal.
	TerminalStyle string
	WordWrap      int
}

// NewServer returns an MCP server with every tool registered.
func NewServer(version string, t *Tools) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "hashmark", Version: version}, nil)
	t.Register(srv)
	return srv
}

// ServeStdio runs srv over stdin/stdout until ctx is done or the client leaves.
func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// Register adds the hashmark tools to srv.
func (t *Tools) Register(srv *mcp.Server) {
	srv.AddTool(&mcp.Tool{
		Name:        "hashmark_encode",
		Description: "Encode markdown into a shareable link whose fragment carries the whole document.",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Markdown document"},
		}, []string{"text"}),
	}, handle(t.encode))

	srv.AddTool(&mcp.Tool{
		Name:        "hashmark_decode",
		Description: "Recover the markdown carried by a link, a #fragment or a bare payload.",
		InputSchema: inputSchema(map[string]any{
			"payload": map[string]any{"type": "string", "description": "Link, #fragment or payload"},
		}, []string{"payload"}),
	}, handle(t.decode))

	srv.AddTool(&mcp.Tool{
		Name:        "hashmark_render",
		Description: "Render markdown (or the document in a link) to sanitized HTML or terminal text.",
		InputSchema: inputSchema(map[string]any{
			"payload": map[string]any{"type": "string", "description": "Link, #fragment or payload; wins over text"},
			"text":    map[string]any{"type": "string", "description": "Markdown document"},
			"format":  map[string]any{"type": "string", "enum": []string{"html", "terminal"}, "description": "Output format, default html"},
		}, nil),
	}, handle(t.render))
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// handle adapts a typed endpoint to a tool handler. Failures become tool
// errors so the client sees them as results, not protocol faults.
func handle[Req any](endpoint func(context.Context, *Req) (any, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}
		out, err := endpoint(ctx, &in)
		if err != nil {
			return toolError(err), nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

var errNoDocument = errors.New("payload does not carry a document")

type encodeReq struct {
	Text string `json:"text"`
}

type encodeResp struct {
	Data   string          `json:"data"`
	Method fragment.Method `json:"method"`
	Link   string          `json:"link"`
}

func (t *Tools) encode(_ context.Context, r *encodeReq) (any, error) {
	enc, err := fragment.EncodeRoundTrip(r.Text, t.Decoder)
	if err != nil {
		return nil, err
	}
	if len(enc.Data) > t.Decoder.Limits.MaxPayload {
		return nil, session.ErrLinkTooLong
	}
	return encodeResp{Data: enc.Data, Method: enc.Method, Link: session.Link(t.BaseURL, enc.Data)}, nil
}

type decodeReq struct {
	Payload string `json:"payload"`
}

type decodeResp struct {
	Text   string          `json:"text"`
	Method fragment.Method `json:"method"`
	Title  string          `json:"title,omitempty"`
}

func (t *Tools) decode(_ context.Context, r *decodeReq) (any, error) {
	text, method := t.Decoder.Classify(session.PayloadFrom(r.Payload))
	return decodeResp{Text: text, Method: method, Title: editor.Title(text)}, nil
}

type renderReq struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
	Format  string `json:"format"`
}

type renderResp struct {
	Format     string `json:"format"`
	Output     string `json:"output"`
	Diagrams   int    `json:"diagrams,omitempty"`
	CodeBlocks int    `json:"code_blocks,omitempty"`
}

func (t *Tools) render(_ context.Context, r *renderReq) (any, error) {
	doc := r.Text
	if r.Payload != "" {
		doc = t.Decoder.Decode(session.PayloadFrom(r.Payload))
		if doc == "" {
			return nil, errNoDocument
		}
	}
	switch r.Format {
	case "", "html":
		page, err := t.Render.Render(doc)
		if err != nil {
			return nil, err
		}
		return renderResp{Format: "html", Output: page.HTML, Diagrams: page.Diagrams, CodeBlocks: page.CodeBlocks}, nil
	case "terminal":
		// Clients are not terminals, so there is no background to detect.
		style := t.TerminalStyle
		if style == "" || style == "auto" {
			style = "notty"
		}
		term, err := render.NewTerminal(style, t.WordWrap)
		if err != nil {
			return nil, err
		}
		out, err := term.Render(doc)
		if err != nil {
			return nil, err
		}
		return renderResp{Format: "terminal", Output: out}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", r.Format)
	}
}
