package web

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/agent"
	"github.com/tryandromeda/copilot/internal/errors"
	"github.com/tryandromeda/copilot/internal/llm"
	"github.com/tryandromeda/copilot/internal/session"
	"github.com/tryandromeda/copilot/internal/workspace"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains the HTTP route handlers.
type Handlers struct {
	registry *workspace.Registry
	sessions *session.Store
	static   fs.FS
	log      zerolog.Logger
	now      func() time.Time
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

type chatResponse struct {
	Response  string     `json:"response"`
	HTML      string     `json:"html,omitempty"`
	Usage     *llm.Usage `json:"usage,omitempty"`
	SessionID string     `json:"sessionId"`
}

// HandleOptions answers CORS preflight requests for any path.
func (h *Handlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// HandleChat handles POST /api/chat.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		renderError(w, errors.NewInvalidRequest("Message is required"))
		return
	}

	apiKey := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		apiKey = strings.TrimPrefix(auth, "Bearer ")
	}

	a, sessionID := h.sessions.GetOrCreate(req.SessionID, apiKey)
	log := h.log.With().Str("session", sessionID).Logger()
	log.Info().Int("message_chars", len(req.Message)).Msg("processing chat request")

	reply, err := a.Chat(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, errors.ErrCredential) {
			log.Warn().Msg("invalid API key, answering in demo mode")
			reply = agent.DemoReply(agent.DemoForWeb)
			renderJSON(w, http.StatusOK, chatResponse{
				Response:  reply.Content,
				HTML:      renderMarkdown(reply.Content),
				Usage:     &reply.Usage,
				SessionID: session.NewID(),
			})
			return
		}
		log.Error().Err(err).Msg("chat failed")
		renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, chatResponse{
		Response:  reply.Content,
		HTML:      renderMarkdown(reply.Content),
		Usage:     &reply.Usage,
		SessionID: sessionID,
	})
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// HandleSessions handles GET /api/sessions.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"activeSessions": h.sessions.Len()})
}

// HandleWorkspaceList handles GET /api/workspaces.
func (h *Handlers) HandleWorkspaceList(w http.ResponseWriter, r *http.Request) {
	var current *workspace.Workspace
	if ws, ok := h.registry.Current(); ok {
		current = &ws
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"workspaces":       h.registry.List(),
		"currentWorkspace": current,
		"stats":            h.registry.Stats(),
	})
}

type createWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Switch      bool   `json:"switch,omitempty"`
}

// HandleWorkspaceCreate handles POST /api/workspaces. Every failure is a 400.
func (h *Handlers) HandleWorkspaceCreate(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		renderError(w, errors.NewInvalidRequest("Workspace name is required"))
		return
	}

	ws, err := h.registry.Create(req.Name, req.Description, "")
	if err != nil {
		h.log.Warn().Err(err).Str("name", req.Name).Msg("workspace create failed")
		renderMessage(w, http.StatusBadRequest, errors.As(err).Message)
		return
	}

	if req.Switch {
		ws, err = h.registry.SetCurrent(ws.ID)
		if err != nil {
			renderError(w, err)
			return
		}
		h.sessions.Clear()
	}
	renderJSON(w, http.StatusOK, ws)
}

type switchWorkspaceRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// HandleWorkspaceSwitch handles POST /api/workspaces/switch.
func (h *Handlers) HandleWorkspaceSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchWorkspaceRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	if req.ID == "" && req.Name == "" {
		renderError(w, errors.NewInvalidRequest("Workspace ID or name is required"))
		return
	}

	id := req.ID
	if id == "" {
		target, ok := h.registry.GetByName(req.Name)
		if !ok {
			renderMessage(w, http.StatusNotFound, fmt.Sprintf("Workspace %q not found", req.Name))
			return
		}
		id = target.ID
	}

	ws, err := h.registry.SetCurrent(id)
	if err != nil {
		renderError(w, err)
		return
	}
	h.sessions.Clear()
	renderJSON(w, http.StatusOK, ws)
}

type updateWorkspaceRequest struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// HandleWorkspaceUpdate handles PATCH /api/workspaces: rename and/or describe.
func (h *Handlers) HandleWorkspaceUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateWorkspaceRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	if req.ID == "" {
		renderError(w, errors.NewInvalidRequest("Workspace ID is required"))
		return
	}
	if req.Name == nil && req.Description == nil {
		renderError(w, errors.NewInvalidRequest("name or description is required"))
		return
	}

	if req.Name != nil {
		ok, err := h.registry.Rename(req.ID, *req.Name)
		if err != nil {
			renderError(w, err)
			return
		}
		if !ok {
			renderError(w, errors.NewNotFound(req.ID))
			return
		}
	}
	if req.Description != nil {
		if !h.registry.UpdateDescription(req.ID, *req.Description) {
			renderError(w, errors.NewNotFound(req.ID))
			return
		}
	}

	ws, ok := h.registry.Get(req.ID)
	if !ok {
		renderError(w, errors.NewNotFound(req.ID))
		return
	}
	renderJSON(w, http.StatusOK, ws)
}

// HandleWorkspaceDelete handles DELETE /api/workspaces?id=&deleteFiles=.
func (h *Handlers) HandleWorkspaceDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		renderError(w, errors.NewInvalidRequest("Workspace ID is required"))
		return
	}
	deleteFiles := r.URL.Query().Get("deleteFiles") == "true"

	if !h.registry.Delete(id, deleteFiles) {
		renderMessage(w, http.StatusNotFound, "Workspace not found")
		return
	}
	h.sessions.Clear()
	renderJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleStatic serves the web client. "/" maps to index.html; anything
// missing, a directory, or outside the document root is a 404.
func (h *Handlers) HandleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}
	if !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}

	info, err := fs.Stat(h.static, name)
	if err != nil || info.IsDir() {
		h.log.Debug().Str("path", r.URL.Path).Msg("static file not found")
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, h.static, name)
}

// decodeBody decodes a size-limited JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
