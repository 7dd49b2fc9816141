// ABOUTME: HTTP server exposing the chat JSON API and the embedded browser UI
// ABOUTME: Thin translation layer over the controller; no state of its own

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nosta/ragchat/internal/controller"
	"github.com/nosta/ragchat/internal/docs"
	"github.com/nosta/ragchat/internal/feedback"
	"github.com/nosta/ragchat/internal/store"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 25 << 20 // 25 MB

// Server serves the browser UI and its JSON API.
type Server struct {
	controller *controller.Controller
	feedback   controller.FeedbackSubmitter
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a web server. feedbackClient may be nil when no feedback store
// is configured.
func New(addr string, ctrl *controller.Controller, feedbackClient controller.FeedbackSubmitter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		controller: ctrl,
		feedback:   feedbackClient,
		logger:     logger.With("component", "web"),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/state", s.handleState)

	mux.HandleFunc("POST /api/messages", s.handleSendMessage)
	mux.HandleFunc("POST /api/messages/file", s.handleSendFile)

	mux.HandleFunc("POST /api/conversations", s.handleNewConversation)
	mux.HandleFunc("POST /api/conversations/{id}/select", s.handleSelectConversation)
	mux.HandleFunc("POST /api/conversations/{id}/cancel", s.handleCancelSend)
	mux.HandleFunc("PATCH /api/conversations/{id}", s.handleRenameConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)

	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("POST /api/agents/{id}/select", s.handleSelectAgent)
	mux.HandleFunc("POST /api/agents/password", s.handleAgentPassword)
	mux.HandleFunc("POST /api/agents/cancel", s.handleCancelAgentSelection)
	mux.HandleFunc("PUT /api/agents/{id}/endpoint", s.handleSetEndpoint)

	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/search", s.handleSearchDocuments)
	mux.HandleFunc("POST /api/documents/refresh", s.handleRefreshDocuments)

	mux.HandleFunc("POST /api/sources/{id}", s.handleAddSource)
	mux.HandleFunc("DELETE /api/sources/{id}", s.handleRemoveSource)
	mux.HandleFunc("POST /api/sources/dedupe", s.handleDedupeSources)

	mux.HandleFunc("POST /api/feedback", s.handleSubmitFeedback)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// stateResponse decorates the controller snapshot with rendered message HTML.
type stateResponse struct {
	*controller.Snapshot
	Rendered map[string]string `json:"rendered"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.controller.Snapshot()

	rendered := make(map[string]string, len(snap.Messages))
	for _, msg := range snap.Messages {
		html, err := RenderMarkdown(msg.Content)
		if err != nil {
			s.logger.Warn("markdown render failed", "message_id", msg.ID, "error", err)
			continue
		}
		rendered[msg.ID] = html
	}

	s.writeJSON(w, http.StatusOK, stateResponse{Snapshot: snap, Rendered: rendered})
}

type sendRequest struct {
	Content string `json:"content"`
}

type sendResponse struct {
	Message  *messageView `json:"message,omitempty"`
	Aborted  bool         `json:"aborted,omitempty"`
	Rendered string       `json:"rendered,omitempty"`
}

type messageView struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Images    []string `json:"images,omitempty"`
	Sender    string   `json:"sender"`
	Timestamp string   `json:"timestamp"`
	AgentID   string   `json:"agent_id,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	msg, err := s.controller.SendMessage(r.Context(), req.Content)
	s.writeSendResult(w, msg, err)
}

func (s *Server) handleSendFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	msg, err := s.controller.SendFile(r.Context(), header.Filename, file, r.FormValue("note"))
	s.writeSendResult(w, msg, err)
}

func (s *Server) writeSendResult(w http.ResponseWriter, msg *store.Message, err error) {
	switch {
	case errors.Is(err, controller.ErrAborted):
		s.writeJSON(w, http.StatusOK, sendResponse{Aborted: true})
	case errors.Is(err, controller.ErrSendInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		resp := sendResponse{Message: &messageView{
			ID:        msg.ID,
			Content:   msg.Content,
			Images:    msg.Images,
			Sender:    msg.Sender,
			Timestamp: msg.Timestamp.Format(time.RFC3339),
			AgentID:   msg.AgentID,
		}}
		if html, renderErr := RenderMarkdown(msg.Content); renderErr == nil {
			resp.Rendered = html
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	id := s.controller.StartNewChat()
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleSelectConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.SelectConversation(r.PathValue("id")); err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelSend(w http.ResponseWriter, r *http.Request) {
	canceled := s.controller.CancelSend(r.PathValue("id"))
	s.writeJSON(w, http.StatusOK, map[string]bool{"canceled": canceled})
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.controller.UpdateConversationTitle(r.PathValue("id"), req.Title); err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.DeleteConversation(r.PathValue("id")); err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.controller.Agents()
	type agentView struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon,omitempty"`
		Gated bool   `json:"gated"`
	}
	views := make([]agentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, agentView{ID: a.ID, Name: a.Name, Icon: a.Icon, Gated: a.Gated()})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSelectAgent(w http.ResponseWriter, r *http.Request) {
	needsPassword, err := s.controller.SelectAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"password_required": needsPassword})
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAgentPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.controller.SubmitPassword(r.Context(), req.Password)
	switch {
	case errors.Is(err, controller.ErrInvalidPassword):
		s.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, controller.ErrNoPendingAgent):
		s.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.writeControllerError(w, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCancelAgentSelection(w http.ResponseWriter, r *http.Request) {
	s.controller.CancelAgentSelection()
	w.WriteHeader(http.StatusNoContent)
}

type endpointRequest struct {
	Endpoint string `json:"endpoint"`
}

func (s *Server) handleSetEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.SetEndpointOverride(r.Context(), r.PathValue("id"), req.Endpoint); err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.controller.Catalog()
	s.writeJSON(w, http.StatusOK, nonNilDocs(docs))
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	matched := docs.MatchByName(query, s.controller.Catalog())
	s.writeJSON(w, http.StatusOK, nonNilDocs(matched))
}

func (s *Server) handleRefreshDocuments(w http.ResponseWriter, r *http.Request) {
	s.controller.RefreshDocuments(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.AddDocumentToActiveSources(r.PathValue("id")); err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	s.controller.RemoveDocumentFromActiveSources(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDedupeSources(w http.ResponseWriter, r *http.Request) {
	s.controller.ClearDuplicateActiveSources()
	w.WriteHeader(http.StatusNoContent)
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Type      string `json:"feedback_type"`
	Comment   string `json:"comment,omitempty"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MessageID == "" || !feedback.ValidType(req.Type) {
		s.writeError(w, http.StatusBadRequest, "message_id and a valid feedback_type are required")
		return
	}
	if err := s.controller.AttachFeedback(r.Context(), req.MessageID, req.Type, req.Comment, s.feedback); err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Settings(r.Context()))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings controller.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.UpdateSettings(r.Context(), settings); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, controller.ErrConversationNotFound),
		errors.Is(err, controller.ErrDocumentNotFound),
		errors.Is(err, controller.ErrMessageNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func nonNilDocs(in []docs.Document) []docs.Document {
	if in == nil {
		return []docs.Document{}
	}
	return in
}
