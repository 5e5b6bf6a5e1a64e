package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/global-standings/internal/usecase"
)

type selectWeekRequest struct {
	Week   string `json:"week" validate:"omitempty,datetime=2006-01-02"`
	Strict bool   `json:"strict"`
}

type selectScopeRequest struct {
	Mode        string `json:"mode" validate:"required,oneof=global competition"`
	Competition string `json:"competition" validate:"max=120"`
	Group       string `json:"group" validate:"max=120"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateSession")
	defer span.End()

	var req selectWeekRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := h.sessions.Open(req.Week, req.Strict)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.logger.DebugContext(ctx, "selection session opened", "session_id", session.ID, "week", session.Week)

	writeSuccess(ctx, w, http.StatusCreated, sessionToDTO(session))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSession")
	defer span.End()

	session, err := h.sessions.Get(strings.TrimSpace(r.PathValue("sessionID")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionToDTO(session))
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteSession")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	if err := h.sessions.Close(sessionID); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"id": sessionID, "status": "closed"})
}

func (h *Handler) SelectSessionWeek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SelectSessionWeek")
	defer span.End()

	var req selectWeekRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := h.sessions.SelectWeek(strings.TrimSpace(r.PathValue("sessionID")), req.Week, req.Strict)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionToDTO(session))
}

func (h *Handler) SelectSessionScope(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SelectSessionScope")
	defer span.End()

	var req selectScopeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := h.sessions.SelectScope(strings.TrimSpace(r.PathValue("sessionID")), usecase.ScopeInput{
		Global:      req.Mode == string(usecase.ScopeGlobal),
		Competition: req.Competition,
		Group:       req.Group,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionToDTO(session))
}
