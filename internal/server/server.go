// Package server is the local production dashboard: readings, per-production
// progress, and stage actions over plain HTML forms, plus a websocket that
// streams render progress.
package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/LiturgyCast/internal/database"
	"github.com/TobiSchelling/LiturgyCast/internal/pipeline"
	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local dashboard; same-origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the dashboard HTTP server.
type Server struct {
	db       *database.DB
	pipeline *pipeline.Pipeline
	pages    map[string]*template.Template
	router   chi.Router
}

// New creates a dashboard server on top of an existing pipeline.
func New(db *database.DB, p *pipeline.Pipeline) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": database.FormatDateDisplay,
		"today":      database.GetToday,
		"percent": func(ratio float64) int {
			return int(ratio*100 + 0.5)
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page clones the base so it gets its own content/title blocks.
	pageNames := []string{"index.html", "reading.html", "production.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, pipeline: p, pages: pages, router: chi.NewRouter()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.router.Get("/", s.handleIndex)
	s.router.Get("/reading/{date}", s.handleReading)
	s.router.Post("/select", s.handleSelect)
	s.router.Get("/production/{key}", s.handleProduction)
	s.router.Post("/production/{key}/stage/{stage}", s.handleStage)
	s.router.Post("/production/{key}/deactivate", s.handleDeactivate)
	s.router.Post("/production/{key}/reset", s.handleReset)
	s.router.Get("/ws/render/{key}", s.handleRenderWS)
}

// productionView is a status record decorated for display.
type productionView struct {
	*production.ProductionStatus
	Class      production.Class
	Ratio      float64
	DateOnPage string
}

func newProductionView(st *production.ProductionStatus) productionView {
	return productionView{
		ProductionStatus: st,
		Class:            production.Classify(st.Flags, st.Active),
		Ratio:            production.CompletionRatio(st.Flags),
		DateOnPage:       database.FormatDateDisplay(st.Date),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.db.ListActiveOrInProgress()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	views := make([]productionView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, newProductionView(st))
	}

	history, err := s.db.ListReadingHistory(r.URL.Query().Get("color"), 30)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	stats, _ := s.db.GetStats()

	s.render(w, "index.html", map[string]any{
		"Productions": views,
		"History":     history,
		"Stats":       stats,
		"Today":       database.GetToday(),
		"ColorFilter": r.URL.Query().Get("color"),
	})
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	dateStr := chi.URLParam(r, "date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return
	}

	rs, err := s.pipeline.FetchReadings(r.Context(), date)
	if err != nil {
		if err == production.ErrNotFound {
			http.Error(w, "No readings for this date", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "reading.html", map[string]any{
		"ReadingSet": rs,
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.FormValue("date"))
	kind := strings.TrimSpace(r.FormValue("kind"))
	if date == "" || kind == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	st, err := s.pipeline.SelectForWork(date, kind)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/production/"+url.PathEscape(st.Key), http.StatusFound)
}

func (s *Server) handleProduction(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	st, err := s.pipeline.Status(key)
	if err != nil {
		if err == production.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Stage affordances for the detail view: which stages are open now.
	available := map[production.Stage]bool{}
	for _, stage := range production.Stages {
		available[stage] = s.pipeline.Machine.CanEnter(stage, st.Flags) && !st.Flags.Done(stage)
	}

	s.render(w, "production.html", map[string]any{
		"Production": newProductionView(st),
		"Stages":     production.Stages,
		"Available":  available,
		"Error":      r.URL.Query().Get("error"),
	})
}

// handleStage runs one stage for a production. Gating failures come back to
// the production page as a message; they are user errors, not server errors.
func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	stage := production.Stage(chi.URLParam(r, "stage"))

	if !production.IsValidStage(stage) {
		http.Error(w, "Unknown stage", http.StatusBadRequest)
		return
	}

	var err error
	switch stage {
	case production.StageScript:
		_, err = s.pipeline.RunScript(r.Context(), key)
	case production.StageImages:
		_, err = s.pipeline.RunImages(r.Context(), key)
	case production.StageAudio:
		_, err = s.pipeline.RunAudio(r.Context(), key)
	case production.StageOverlay:
		_, err = s.pipeline.ConfigureOverlay(r.Context(), key, overlayFromForm(r))
	case production.StageCaptions:
		_, err = s.pipeline.RunCaptions(r.Context(), key)
	case production.StageVideo:
		_, err = s.pipeline.RunVideo(r.Context(), key)
	case production.StagePublish:
		_, err = s.pipeline.RunPublish(r.Context(), key)
	}

	target := "/production/" + url.PathEscape(key)
	if err != nil {
		if err == production.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		if pipeline.IsPreconditionError(err) {
			http.Redirect(w, r, target+"?error="+url.QueryEscape(err.Error()), http.StatusFound)
			return
		}
		log.Printf("Stage %s failed for %s: %v", stage, key, err)
		http.Redirect(w, r, target+"?error="+url.QueryEscape(err.Error()), http.StatusFound)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// overlayFromForm builds an overlay style from form fields, or nil when the
// form carries none so the configured defaults apply.
func overlayFromForm(r *http.Request) *production.OverlayStyle {
	if strings.TrimSpace(r.FormValue("lines")) == "" {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(r.FormValue("lines"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	style := &production.OverlayStyle{
		Lines:      lines,
		Font:       strings.TrimSpace(r.FormValue("font")),
		Color:      strings.TrimSpace(r.FormValue("color")),
		Visualizer: r.FormValue("visualizer") == "on",
	}
	fmt.Sscanf(r.FormValue("font_size"), "%d", &style.FontSize)
	fmt.Sscanf(r.FormValue("position_y"), "%d", &style.PositionY)
	return style
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.pipeline.Deactivate(key); err != nil {
		if err == production.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.pipeline.Reset(key); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleRenderWS runs the video stage and streams ffmpeg progress lines to
// the browser over a websocket. The final message is "done" or "error: ...".
func (s *Server) handleRenderWS(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	lines := make(chan string, 64)
	done := make(chan error, 1)

	// The render owns Progress for its duration; the dashboard runs one
	// render at a time.
	s.pipeline.Progress = func(line string) {
		select {
		case lines <- line:
		default:
		}
	}
	defer func() { s.pipeline.Progress = nil }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		_, err := s.pipeline.RunVideo(ctx, key)
		done <- err
	}()

	for {
		select {
		case line := <-lines:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				cancel()
				return
			}
		case err := <-done:
			// Drain whatever progress arrived before completion.
			for {
				select {
				case line := <-lines:
					conn.WriteMessage(websocket.TextMessage, []byte(line))
					continue
				default:
				}
				break
			}
			if err != nil {
				conn.WriteMessage(websocket.TextMessage, []byte("error: "+err.Error()))
			} else {
				conn.WriteMessage(websocket.TextMessage, []byte("done"))
			}
			return
		}
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the dashboard on the given port, bound to localhost.
func Serve(db *database.DB, p *pipeline.Pipeline, port int) error {
	srv, err := New(db, p)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Dashboard listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
