// Package server serves the live preview of one document: the preview
// shell, vault files, and a websocket that pushes frames and keeps the
// preview and editor on the same page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	slidesync "github.com/alnah/go-slidesync"
	"github.com/alnah/go-slidesync/internal/assets"
	"github.com/alnah/go-slidesync/internal/cursor"
	"github.com/alnah/go-slidesync/internal/pipeline"
	"github.com/alnah/go-slidesync/internal/resolve"
)

// Routes.
const (
	SocketPath = "/ws"
	ThemePath  = "/theme.css"
	HealthPath = "/health"
)

// RoleEditor is the value of the role query parameter that makes a
// websocket client the editor side of the page sync.
const RoleEditor = "editor"

// FileOpener maps a preview path to a file on disk.
type FileOpener interface {
	Open(previewPath string) (string, error)
}

// Server is the HTTP handler of a live preview.
type Server struct {
	router   chi.Router
	doc      *slidesync.Document
	renderer *slidesync.Renderer
	files    FileOpener
	assets   assets.AssetLoader
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[string]*client
	closed  bool

	teardown []func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAssets sets where the preview shell and theme come from. The
// built-in assets are used by default.
func WithAssets(loader assets.AssetLoader) Option {
	return func(s *Server) {
		if loader != nil {
			s.assets = loader
		}
	}
}

// New creates a Server for doc. Frames come from renderer, vault files from
// files.
func New(doc *slidesync.Document, renderer *slidesync.Renderer, files FileOpener, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		doc:      doc,
		renderer: renderer,
		files:    files,
		assets:   assets.NewEmbeddedLoader(),
		log:      pipeline.DiscardLogger(),
		ctx:      ctx,
		cancel:   cancel,
		clients:  make(map[string]*client),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.teardown = append(s.teardown,
		renderer.OnFrame(s.broadcastFrame),
		doc.Sync().Subscribe(cursor.OriginPreview, s.broadcastGoto),
	)
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close disconnects every client and stops listening to the document.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, fn := range s.teardown {
		fn()
	}
	s.cancel()
	for _, c := range clients {
		c.close()
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Get("/", s.handleIndex)
	r.Get(ThemePath, s.handleTheme)
	r.Get(resolve.PreviewPrefix+"*", s.handleFile)
	r.Get(HealthPath, s.handleHealth)
	r.Get(SocketPath, s.handleSocket)

	s.router = r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := assets.RenderPreview(s.assets, assets.PreviewPage{
		Title:    filepath.Base(s.doc.ID()),
		Socket:   SocketPath,
		ThemeCSS: ThemePath,
	})
	if err != nil {
		s.log.WithError(err).Error("rendering preview shell")
		http.Error(w, "preview unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	css, err := s.assets.LoadStyle(assets.ThemeStyle)
	if err != nil {
		if errors.Is(err, assets.ErrStyleNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.WithError(err).Error("loading theme")
		http.Error(w, "theme unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(css))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.files.Open(r.URL.EscapedPath())
	if err != nil {
		s.log.WithError(err).WithField("path", r.URL.Path).Debug("file not served")
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"doc":     s.doc.ID(),
		"pages":   len(s.doc.Pages()),
		"clients": s.Clients(),
	})
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	editor := r.URL.Query().Get("role") == RoleEditor
	c := newClient(id, conn, editor, s.log.WithFields(logrus.Fields{"client": id, "editor": editor}))

	if c.editor {
		c.detach = s.doc.AttachEditor(c)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.close()
		return
	}
	s.clients[c.id] = c
	s.mu.Unlock()
	c.log.Info("client connected")

	go c.writeLoop(s.ctx)
	s.greet(c)
	s.readLoop(c)

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()
	c.log.Info("client disconnected")
}

// greet sends a new preview client the latest frame and page.
func (s *Server) greet(c *client) {
	if c.editor {
		return
	}
	if frame, ok := s.renderer.Frame(); ok {
		c.sendMessage(frameMessage(frame))
	}
	c.sendMessage(Message{Type: TypeGoto, Page: s.doc.Sync().Current().Page})
}

func (s *Server) readLoop(c *client) {
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("read failed")
			}
			return
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *client, msg Message) {
	ctx := s.ctx
	var err error
	switch msg.Type {
	case TypePage:
		_, err = s.doc.ShowPage(ctx, msg.Page)
	case TypeCursor:
		err = s.doc.HandleEditorUpdate(ctx, slidesync.EditorUpdate{Offset: msg.Offset})
	case TypeText:
		err = s.doc.HandleEditorUpdate(ctx, slidesync.EditorUpdate{DocChanged: true, Text: msg.Text})
	default:
		c.log.WithField("type", msg.Type).Debug("unknown message")
		return
	}
	if err != nil {
		c.log.WithError(err).WithField("type", msg.Type).Warn("message rejected")
	}
}

func (s *Server) broadcastFrame(f slidesync.Frame) {
	s.broadcast(false, frameMessage(f))
}

func (s *Server) broadcastGoto(_ context.Context, st cursor.State) {
	s.log.WithFields(logrus.Fields{"page": st.Page, "setBy": st.SetBy}).Debug("page changed")
	s.broadcast(false, Message{Type: TypeGoto, Page: st.Page})
}

func (s *Server) broadcast(editors bool, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).Error("encoding message")
		return
	}
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.editor == editors {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.send(data)
	}
}

func frameMessage(f slidesync.Frame) Message {
	return Message{
		Type:       TypeFrame,
		Markup:     f.Markup,
		Stylesheet: f.Stylesheet,
		Title:      f.Title,
		Seq:        f.Seq,
	}
}

// requestLogger logs each request at debug level.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("request")
		})
	}
}
