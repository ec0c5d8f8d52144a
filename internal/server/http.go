package server

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mithrel/hashmark/internal/editor"
	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
	"github.com/mithrel/hashmark/pkg/fragment"
)

//go:embed web
var webFS embed.FS

// Options configure a Server.
type Options struct {
	BaseURL   string
	Decoder   *fragment.Decoder
	Render    *render.Pipeline
	Log       *log.Logger
	MaxBody   int64
	CacheSize int
	// Now is the clock used for download names; nil means time.Now.
	Now func() time.Time
}

// Server serves the editor page and the encode, decode and render API.
type Server struct {
	base    string
	dec     *fragment.Decoder
	pipe    *render.Pipeline
	log     *log.Logger
	maxBody int64
	cache   *pageCache
	now     func() time.Time
}

func New(opts Options) *Server {
	s := &Server{
		base:    opts.BaseURL,
		dec:     opts.Decoder,
		pipe:    opts.Render,
		log:     opts.Log,
		maxBody: opts.MaxBody,
		cache:   newPageCache(opts.CacheSize),
		now:     opts.Now,
	}
	if s.dec == nil {
		s.dec = fragment.NewDecoder(s.log)
	}
	if s.pipe == nil {
		s.pipe = render.New(render.Options{Log: s.log})
	}
	if s.maxBody <= 0 {
		s.maxBody = 2 << 20
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Router returns an http.Handler with registered routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.log != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	static, _ := fs.Sub(webFS, "web")
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Get("/static/highlight.css", s.handleHighlightCSS)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(s.limitBody)
		r.Post("/encode", s.handleEncode)
		r.Post("/decode", s.handleDecode)
		r.Post("/render", s.handleRender)
		r.Get("/download", s.handleDownload)
	})
	return r
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

type encodeRequest struct {
	Text string `json:"text"`
}

type encodeResponse struct {
	Data   string          `json:"data"`
	Method fragment.Method `json:"method"`
	Link   string          `json:"link"`
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	enc, err := fragment.EncodeRoundTrip(req.Text, s.dec)
	if err != nil {
		if errors.Is(err, fragment.ErrInputTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(enc.Data) > s.dec.Limits.MaxPayload {
		writeError(w, http.StatusRequestEntityTooLarge, session.ErrLinkTooLong)
		return
	}
	writeJSON(w, http.StatusOK, encodeResponse{Data: enc.Data, Method: enc.Method, Link: session.Link(s.base, enc.Data)})
}

type decodeRequest struct {
	Payload string `json:"payload"`
}

type decodeResponse struct {
	Text   string          `json:"text"`
	Method fragment.Method `json:"method"`
	Valid  bool            `json:"valid"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	text, method := s.dec.Classify(session.PayloadFrom(req.Payload))
	writeJSON(w, http.StatusOK, decodeResponse{Text: text, Method: method, Valid: text != ""})
}

type renderRequest struct {
	// Exactly one of Payload or Text is used; Payload wins.
	Payload string `json:"payload,omitempty"`
	Text    string `json:"text,omitempty"`
}

type renderResponse struct {
	HTML       string          `json:"html"`
	Text       string          `json:"text"`
	Title      string          `json:"title"`
	Method     fragment.Method `json:"method"`
	Diagrams   int             `json:"diagrams"`
	CodeBlocks int             `json:"code_blocks"`
	Valid      bool            `json:"valid"`
	Layout     session.Layout  `json:"layout"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	doc, method := req.Text, fragment.MethodNone
	payload := session.PayloadFrom(req.Payload)
	if req.Payload != "" {
		doc, method = s.dec.Classify(payload)
	}

	// An undecodable payload renders as the empty editor.
	if doc == "" {
		writeJSON(w, http.StatusOK, renderResponse{Method: fragment.MethodNone, Layout: session.LayoutFor(session.Editing)})
		return
	}

	// The ETag covers the request as sent: the response carries the method,
	// which differs between payloads of the same document. Rendered pages
	// depend on the document alone and are cached by its hash.
	etag := `"t-` + ContentHash(doc) + `"`
	if req.Payload != "" {
		etag = `"p-` + ContentHash(payload) + `"`
	}
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	key := ContentHash(doc)
	page, ok := s.cache.get(key)
	if !ok {
		var err error
		page, err = s.pipe.Render(doc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.cache.put(key, page)
	}
	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, renderResponse{
		HTML:       page.HTML,
		Text:       doc,
		Title:      editor.Title(doc),
		Method:     method,
		Diagrams:   page.Diagrams,
		CodeBlocks: page.CodeBlocks,
		Valid:      true,
		Layout:     session.LayoutFor(session.Viewing),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	payload := session.PayloadFrom(r.URL.Query().Get("d"))
	doc := s.dec.Decode(payload)
	if doc == "" {
		writeError(w, http.StatusNotFound, session.ErrNothingToDownload)
		return
	}
	f := session.NewFile(doc, s.now())
	w.Header().Set("Content-Type", f.MIME+"; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	_, _ = w.Write(f.Body)
}

func (s *Server) handleHighlightCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if err := s.pipe.WriteHighlightCSS(w); err != nil && s.log != nil {
		s.log.Printf("server: highlight css: %v", err)
	}
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return false
		}
		writeError(w, http.StatusBadRequest, errors.New("bad json"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
