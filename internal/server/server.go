package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"

	"document-qa/internal/config"
	"document-qa/internal/metrics"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/session"
)

const uploadField = "files"

// Server is the browser and JSON front end over a session manager.
type Server struct {
	sessions  *session.Manager
	metrics   *metrics.Recorder
	maxUpload int64
	markdown  goldmark.Markdown
}

func New(sessions *session.Manager, rec *metrics.Recorder, cfg config.IngestConfig) *Server {
	return &Server{
		sessions:  sessions,
		metrics:   rec,
		maxUpload: cfg.MaxUploadBytes,
		markdown:  goldmark.New(),
	}
}

// Handler returns the routes of the page, the API and the probes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handlePage)
	r.Post("/upload", s.handlePageUpload)
	r.Post("/ask", s.handlePageAsk)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSession)
			r.Post("/documents", s.handleDocuments)
			r.Post("/questions", s.handleQuestion)
			r.Get("/transcript", s.handleTranscript)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
	})
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request")
	})
}

var errTooLarge = errors.New("upload too large")

// readUploads reads every file of the multipart field "files".
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]parser.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errTooLarge, s.maxUpload)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, models.ErrNoDocuments
		}
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Debug().Err(err).Msg("Removing multipart temp files failed")
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	uploads := make([]parser.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, parser.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// statusOf maps an error to the HTTP status and the error type shown to
// the client.
func statusOf(err error) (int, string) {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge, string(models.KindUsage)
	}
	kind := models.KindOf(err)
	switch kind {
	case models.KindUsage:
		if errors.Is(err, models.ErrNotReady) {
			return http.StatusConflict, string(kind)
		}
		return http.StatusBadRequest, string(kind)
	case models.KindIngestion:
		return http.StatusUnprocessableEntity, string(kind)
	case models.KindProvider:
		return http.StatusBadGateway, string(kind)
	default:
		return http.StatusInternalServerError, string(kind)
	}
}
