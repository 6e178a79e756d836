// Package notes exposes study-material upload and listing over HTTP.
// Uploading is a teacher-only operation; listing is open to any caller.
package notes

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/patshala/backend/auth"
	notessvc "github.com/patshala/backend/notes"
	"github.com/patshala/backend/pkg/file"
	"github.com/patshala/backend/pkg/jwt"
	"github.com/patshala/backend/pkg/logger"
	"github.com/patshala/backend/pkg/validator"
)

const (
	msgUploaded     = "Notes uploaded successfully"
	msgUnauthorized = "Unauthorized"
	msgTeachersOnly = "Only teachers can upload notes"
	msgServerError  = "Server error"

	maxUploadMemory = 32 << 20
)

// Handler serves the notes routes.
type Handler struct {
	svc    *notessvc.Service
	tokens *jwt.Service
	log    *slog.Logger
}

type HandlerOption func(*Handler)

// WithLogger sets a custom logger for the handler.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler builds the notes HTTP handler.
func NewHandler(svc *notessvc.Service, tokens *jwt.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:    svc,
		tokens: tokens,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle returns the chi router for the notes module.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/content", h.list)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware())
		r.Use(requireTeacher)
		r.Post("/upload-notes", h.upload)
	})

	return r
}

// sessionMiddleware accepts the session either as the token cookie or as a
// bearer header.
func (h *Handler) sessionMiddleware() func(http.Handler) http.Handler {
	return jwt.Middleware(jwt.MiddlewareConfig{
		Service: h.tokens,
		Extractor: jwt.FallbackExtractor(
			jwt.CookieTokenExtractor("token"),
			jwt.BearerTokenExtractor,
		),
		NewClaims: func() jwtlib.Claims { return &auth.SessionClaims{} },
		OnError: func(w http.ResponseWriter, r *http.Request, err error) {
			writeMsg(w, http.StatusUnauthorized, msgUnauthorized)
		},
	})
}

func requireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := jwt.GetClaims[*auth.SessionClaims](r.Context())
		if !ok {
			writeMsg(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if claims.Role != auth.RoleTeacher {
			writeMsg(w, http.StatusForbidden, msgTeachersOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	claims, _ := jwt.GetClaims[*auth.SessionClaims](r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeMsg(w, http.StatusBadRequest, "Malformed multipart form")
		return
	}

	input := notessvc.UploadInput{
		Subject:    r.FormValue("subject"),
		Title:      r.FormValue("title"),
		UploadedBy: claims.Name,
	}
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		input.File = files[0]
	}

	note, err := h.svc.Upload(r.Context(), input)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"msg":         msgUploaded,
		"viewUrl":     note.ViewURL,
		"downloadUrl": note.DownloadURL,
	})
}

type noteResponse struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Title       string    `json:"title"`
	UploadedBy  string    `json:"uploadedBy"`
	ViewURL     string    `json:"viewUrl"`
	DownloadURL string    `json:"downloadUrl"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes, err := h.svc.List(r.Context(), notessvc.Kind(q.Get("type")), q.Get("subject"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteResponse{
			ID:          n.ID.String(),
			Subject:     n.Subject,
			Title:       n.Title,
			UploadedBy:  n.UploadedBy,
			ViewURL:     n.ViewURL,
			DownloadURL: n.DownloadURL,
			UploadedAt:  n.UploadedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve.Fields()))
		for _, field := range ve.Fields() {
			fields[field] = ve.Get(field)[0]
		}
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	switch {
	case errors.Is(err, notessvc.ErrMissingFile),
		errors.Is(err, notessvc.ErrInvalidKind),
		errors.Is(err, file.ErrFileTooLarge),
		errors.Is(err, file.ErrMIMETypeNotAllowed):
		writeMsg(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("notes request failed",
			logger.Component("notes"),
			logger.Error(err),
		)
		writeMsg(w, http.StatusInternalServerError, msgServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}
