package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/persistence"
)

type memberService interface {
	AddMember(ctx context.Context, params application.AddMemberParams) (persistence.Member, error)
	UpdateMember(ctx context.Context, params application.UpdateMemberParams) (persistence.Member, error)
	ToggleMember(ctx context.Context, circleID, memberID string) (persistence.Member, error)
	SetAllActive(ctx context.Context, circleID string, active bool) (int, error)
	DeleteMember(ctx context.Context, circleID, memberID string) error
	ListMembers(ctx context.Context, circleID string) ([]persistence.Member, error)
}

type MemberHandler struct {
	service   memberService
	responder responder
	logger    *slog.Logger
}

func NewMemberHandler(service memberService, logger *slog.Logger) *MemberHandler {
	base := defaultLogger(logger)
	return &MemberHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MemberHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MemberHandler", operation, attrs...)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	members, err := h.service.ListMembers(r.Context(), circleID)
	if err != nil {
		h.log(r.Context(), "List", "circle_id", circleID).WarnContext(r.Context(), "member listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]memberDTO, 0, len(members))
	for _, member := range members {
		dtos = append(dtos, toMemberDTO(member))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberListResponse{Members: dtos})
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "circle_id", circleID)

	var req createMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode member request", "error", err, "error_kind", "bad_request")
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	member, err := h.service.AddMember(r.Context(), application.AddMemberParams{
		CircleID: circleID,
		Name:     req.Name,
		Timezone: req.Timezone,
		Avatar:   req.Avatar,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "member creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("member_id", member.ID).InfoContext(r.Context(), "member added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, memberID, err := memberPath(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "circle_id", circleID, "member_id", memberID)

	var req updateMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode member update", "error", err, "error_kind", "bad_request")
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	member, err := h.service.UpdateMember(r.Context(), application.UpdateMemberParams{
		CircleID: circleID,
		MemberID: memberID,
		Name:     req.Name,
		Color:    req.Color,
		Timezone: req.Timezone,
		Avatar:   req.Avatar,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "member update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, memberID, err := memberPath(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Toggle", "circle_id", circleID, "member_id", memberID)
	member, err := h.service.ToggleMember(r.Context(), circleID, memberID)
	if err != nil {
		logger.WarnContext(r.Context(), "member toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member toggled", "active", member.Active)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

func (h *MemberHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "SetActive", "circle_id", circleID)

	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Active == nil {
		logger.WarnContext(r.Context(), "invalid set-active request", "error", err, "error_kind", "bad_request")
		h.responder.writeBadRequest(r.Context(), w, requestError{MessageID: msgBadRequestBody})
		return
	}

	updated, err := h.service.SetAllActive(r.Context(), circleID, *req.Active)
	if err != nil {
		logger.WarnContext(r.Context(), "set-active failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "members updated", "active", *req.Active, "updated", updated)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, setActiveResponse{Active: *req.Active, Updated: updated})
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	circleID, memberID, err := memberPath(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Delete", "circle_id", circleID, "member_id", memberID)
	if err := h.service.DeleteMember(r.Context(), circleID, memberID); err != nil {
		logger.WarnContext(r.Context(), "member deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "member deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func memberPath(r *http.Request) (string, string, error) {
	circleID, err := pathID(r, "circleID", msgInvalidCircleID)
	if err != nil {
		return "", "", err
	}
	memberID, err := pathID(r, "memberID", msgInvalidMemberID)
	if err != nil {
		return "", "", err
	}
	return circleID, memberID, nil
}

type createMemberRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Avatar   string `json:"avatar"`
}

type updateMemberRequest struct {
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	Timezone *string `json:"timezone"`
	Avatar   *string `json:"avatar"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

type setActiveResponse struct {
	Active  bool `json:"active"`
	Updated int  `json:"updated"`
}

type memberDTO struct {
	ID        string    `json:"id"`
	CircleID  string    `json:"circle_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Active    bool      `json:"active"`
	Timezone  string    `json:"timezone"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type memberResponse struct {
	Member memberDTO `json:"member"`
}

type memberListResponse struct {
	Members []memberDTO `json:"members"`
}

func toMemberDTO(member persistence.Member) memberDTO {
	return memberDTO{
		ID:        member.ID,
		CircleID:  member.CircleID,
		Name:      member.Name,
		Color:     member.Color,
		Active:    member.Active,
		Timezone:  member.Timezone,
		Avatar:    member.Avatar,
		CreatedAt: member.CreatedAt,
		UpdatedAt: member.UpdatedAt,
	}
}
