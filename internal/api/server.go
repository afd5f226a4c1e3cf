// Package api exposes the HTTP surface: health, status, the external cron
// trigger, and a read/edit API over stored insights and drafts.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/store"
)

// Trigger starts a digest run for the primary user in the background.
type Trigger func(ctx context.Context)

// Directory is the store surface the read/edit endpoints need.
type Directory interface {
	ListInsights(ctx context.Context, filter store.InsightFilter) ([]digest.StoredInsight, error)
	GetInsight(ctx context.Context, id uuid.UUID) (*digest.StoredInsight, error)
	ListPostsByInsight(ctx context.Context, insightID uuid.UUID) ([]digest.Post, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (*digest.Profile, error)
	GetPost(ctx context.Context, id uuid.UUID) (*digest.Post, error)
	UpdatePostContent(ctx context.Context, id uuid.UUID, content string) (*digest.Post, error)
	ListMessagesSince(ctx context.Context, channelIDs []string, oldestTS string) ([]digest.Message, error)
}

type Server struct {
	router     *chi.Mux
	port       int
	cronSecret string
	channels   []string
	trigger    Trigger
	dir        Directory
	logger     *slog.Logger
}

func NewServer(port int, cronSecret string, channels []string, trigger Trigger, dir Directory, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:     router,
		port:       port,
		cronSecret: cronSecret,
		channels:   channels,
		trigger:    trigger,
		dir:        dir,
		logger:     logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/fieldnote", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Post("/trigger", s.triggerDigest)
		r.Get("/insights", s.listInsights)
		r.Get("/insights/{id}", s.getInsight)
		r.Patch("/posts/{id}", s.editPost)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// authorized checks the Bearer secret on protected endpoints. An empty
// configured secret disables the check.
func (s *Server) authorized(r *http.Request) bool {
	return s.cronSecret == "" || r.Header.Get("Authorization") == "Bearer "+s.cronSecret
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"channels":  s.channels,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"service": "fieldnote",
		"status":  "ok",
	}

	if s.dir != nil {
		oldest := digest.FormatToken(time.Now().Add(-24 * time.Hour))
		msgs, err := s.dir.ListMessagesSince(r.Context(), s.channels, oldest)
		if err != nil {
			s.logger.Warn("could not count recent messages", "error", err)
		} else {
			resp["messages_24h"] = len(msgs)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// triggerDigest is called by an external cron service. It acknowledges
// immediately; results reach the user by DM.
func (s *Server) triggerDigest(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("unauthorized digest trigger attempt")
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status":  "error",
			"message": "Unauthorized",
		})
		return
	}

	s.logger.Info("digest trigger requested")
	go s.trigger(context.Background())

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "ok",
		"message": "Digest triggered",
	})
}

func (s *Server) listInsights(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Unauthorized"})
		return
	}

	filter := store.InsightFilter{
		Status:      r.URL.Query().Get("status"),
		InsightDate: r.URL.Query().Get("date"),
		Limit:       50,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid limit"})
			return
		}
		filter.Limit = n
	}

	insights, err := s.dir.ListInsights(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list insights", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"count":    len(insights),
		"insights": insightViews(insights),
	})
}

func (s *Server) getInsight(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid insight id"})
		return
	}

	insight, err := s.dir.GetInsight(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load insight", "insight_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	if insight == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "insight not found"})
		return
	}

	posts, err := s.dir.ListPostsByInsight(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load posts", "insight_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}

	resp := map[string]any{
		"status":  "ok",
		"insight": insightView(*insight),
		"posts":   postViews(posts),
	}
	if profile, err := s.dir.GetProfileByID(r.Context(), insight.UserID); err == nil && profile != nil {
		resp["owner"] = profile.SlackUserID
	}

	writeJSON(w, http.StatusOK, resp)
}

// editPost applies a manual content edit to a draft. X posts keep their
// character limit on edits too.
func (s *Server) editPost(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid post id"})
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid body"})
		return
	}
	body.Content = strings.TrimSpace(body.Content)
	if body.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "content is required"})
		return
	}

	post, err := s.dir.GetPost(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load post", "post_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	if post == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "post not found"})
		return
	}
	if post.Platform == digest.PlatformX && utf8.RuneCountInString(body.Content) > digest.MaxXPostLen {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"status":  "error",
			"message": fmt.Sprintf("x posts are limited to %d characters", digest.MaxXPostLen),
		})
		return
	}

	updated, err := s.dir.UpdatePostContent(r.Context(), id, body.Content)
	if err != nil {
		s.logger.Error("failed to update post", "post_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal error"})
		return
	}
	if updated == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "post not found"})
		return
	}

	s.logger.Info("post edited", "post_id", id, "char_count", updated.CharCount)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"post":   postView(*updated),
	})
}

func insightView(ins digest.StoredInsight) map[string]any {
	return map[string]any{
		"id":                 ins.ID,
		"date":               ins.InsightDate,
		"topic":              ins.Topic,
		"core_insight":       ins.CoreInsight,
		"supporting_context": ins.SupportingContext,
		"status":             ins.Status,
		"created_at":         ins.CreatedAt,
	}
}

func insightViews(insights []digest.StoredInsight) []map[string]any {
	views := make([]map[string]any, len(insights))
	for i, ins := range insights {
		views[i] = insightView(ins)
	}
	return views
}

func postView(p digest.Post) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"insight_id": p.InsightID,
		"platform":   p.Platform,
		"content":    p.Content,
		"char_count": p.CharCount,
		"status":     p.Status,
		"created_at": p.CreatedAt,
	}
}

func postViews(posts []digest.Post) []map[string]any {
	views := make([]map[string]any, len(posts))
	for i, p := range posts {
		views[i] = postView(p)
	}
	return views
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
