package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/personality-predictor/internal/dataset"
	"github.com/TobiSchelling/personality-predictor/internal/metrics"
	"github.com/TobiSchelling/personality-predictor/internal/pipeline"
	"github.com/TobiSchelling/personality-predictor/internal/predict"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the prediction form.
type Server struct {
	cache  *pipeline.Cache
	opts   pipeline.Options
	logger *zap.Logger
	pages  map[string]*template.Template
	router chi.Router
}

// New creates a new Server. The model is trained through cache on the
// first request that needs it.
func New(cache *pipeline.Cache, opts pipeline.Options, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"percent":  formatPercent,
		"count":    formatCount,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so its {{define}} blocks stay separate.
	pageNames := []string{"index.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{cache: cache, opts: opts, logger: logger, pages: pages, router: chi.NewRouter()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", s.handleIndex)
	r.Post("/predict", s.handlePredict)
	r.Get("/predict", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", r.RemoteAddr),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

type fieldView struct {
	Name        string
	Prompt      string
	Value       string
	Error       string
	Categorical bool
	Min         float64
	Max         float64
	Step        float64
	Options     []string
}

type fieldGroup struct {
	Name   string
	Fields []fieldView
}

type modelInfo struct {
	Accuracy  float64
	Algorithm string
	Samples   int
}

type resultView struct {
	Personality string
	Emoji       string
	Description string
	Confidence  float64
	Extrovert   float64
	Introvert   float64
	Insights    string
}

type pageData struct {
	Info      modelInfo
	Groups    []fieldGroup
	Invalid   bool
	Result    *resultView
	ErrorText string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	res := s.cache.Get(r.Context(), s.opts)
	if !res.Ready() {
		s.renderUnavailable(w, res)
		return
	}
	values := predict.DefaultObservation(res.Context.Schema()).Values()
	s.render(w, http.StatusOK, "index.html", s.page(res.Context, values, nil))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	res := s.cache.Get(r.Context(), s.opts)
	if !res.Ready() {
		s.renderUnavailable(w, res)
		return
	}
	pc := res.Context
	schema := pc.Schema()

	if err := r.ParseForm(); err != nil {
		metrics.RecordPredictionError("bad_request")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	values := make(map[string]string, schema.Len())
	for _, name := range schema.Names() {
		values[name] = r.PostForm.Get(name)
	}

	obs, err := predict.ParseValues(schema, values)
	if err == nil {
		err = predict.Validate(obs)
	}
	var verr *predict.ValidationError
	if errors.As(err, &verr) {
		metrics.RecordPredictionError("validation")
		data := s.page(pc, values, verr.ByField())
		s.render(w, http.StatusUnprocessableEntity, "index.html", data)
		return
	}
	if err != nil {
		metrics.RecordPredictionError("internal")
		s.logger.Error("validating observation", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	p, err := predict.Predict(pc, obs)
	if err != nil {
		var encErr *dataset.EncodingError
		if errors.As(err, &encErr) {
			metrics.RecordPredictionError("encoding")
			data := s.page(pc, values, map[string]string{encErr.Column: "must be one of: Yes, No"})
			s.render(w, http.StatusUnprocessableEntity, "index.html", data)
			return
		}
		metrics.RecordPredictionError("internal")
		s.logger.Error("predicting", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	metrics.RecordPrediction(p.Personality(), time.Since(start))
	s.logger.Debug("prediction",
		zap.String("personality", p.Personality()),
		zap.Float64("confidence", p.Confidence()),
	)

	data := s.page(pc, values, nil)
	copyText := labelText[p.Label]
	data.Result = &resultView{
		Personality: p.Personality(),
		Emoji:       copyText.Emoji,
		Description: copyText.Description,
		Confidence:  p.Confidence(),
		Extrovert:   p.Probabilities[dataset.LabelExtrovert],
		Introvert:   p.Probabilities[dataset.LabelIntrovert],
		Insights:    insights(p.Label),
	}
	s.render(w, http.StatusOK, "index.html", data)
}

// handleHealth reports readiness without starting a training run.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res, ok := s.cache.Peek(s.opts)
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "training")
		return
	}
	if !res.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "unavailable: %v\n", res.Err)
		return
	}
	fmt.Fprintln(w, "ok")
}

// page builds the form view. errs maps column names to messages.
func (s *Server) page(pc *predict.Context, values, errs map[string]string) *pageData {
	data := &pageData{
		Info: modelInfo{
			Accuracy:  pc.Accuracy(),
			Algorithm: pc.Algorithm(),
			Samples:   pc.TrainingRows(),
		},
		Invalid: len(errs) > 0,
	}

	index := map[string]int{}
	for _, f := range pc.Schema().Fields {
		fv := fieldView{
			Name:        f.Name,
			Prompt:      f.Prompt,
			Value:       values[f.Name],
			Error:       errs[f.Name],
			Categorical: f.IsCategorical(),
			Min:         f.Min,
			Max:         f.Max,
			Step:        f.Step,
		}
		if fv.Categorical {
			fv.Options = []string{dataset.No, dataset.Yes}
		}
		i, ok := index[f.Group]
		if !ok {
			i = len(data.Groups)
			index[f.Group] = i
			data.Groups = append(data.Groups, fieldGroup{Name: f.Group})
		}
		data.Groups[i].Fields = append(data.Groups[i].Fields, fv)
	}
	return data
}

func (s *Server) renderUnavailable(w http.ResponseWriter, res *pipeline.Result) {
	msg := "The model is not available."
	if res != nil && res.Err != nil {
		msg = "Error loading data: " + res.Err.Error()
	}
	s.render(w, http.StatusServiceUnavailable, "error.html", &pageData{ErrorText: msg})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

// formatCount renders n with thousands separators, e.g. 18,526.
func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, srv *Server, logger *zap.Logger) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("url", "http://"+addr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
