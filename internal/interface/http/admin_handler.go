package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/search"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
	"github.com/MjBots-creater/save-restricted-bot/pkg/response"
	"github.com/MjBots-creater/save-restricted-bot/pkg/validation"
)

// UserSearcher looks users up in the directory index.
type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.UserDoc, error)
}

// AdminHandler mirrors the owner commands over HTTP.
type AdminHandler struct {
	Gates    *application.GateList
	Settings *application.Settings
	Users    *application.Service
	Search   UserSearcher // nil disables /users/search
	Logger   *logrus.Logger
}

func NewAdminHandler(gates *application.GateList, settings *application.Settings, users *application.Service, search UserSearcher, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Gates: gates, Settings: settings, Users: users, Search: search, Logger: logger}
}

type gateRequest struct {
	Kind   string `json:"kind" binding:"required,gate_kind"`
	Target string `json:"target" binding:"required,chat_target"`
}

type windowRequest struct {
	Hours int `json:"hours" binding:"required,min=1,max=8760"`
}

type gateSetResponse struct {
	Channels []string `json:"channels"`
	Groups   []string `json:"groups"`
}

func (h *AdminHandler) ListGates(c *gin.Context) {
	set := h.Gates.Snapshot()
	response.Success(c, http.StatusOK, gateSetResponse{
		Channels: nonNil(set.Channels),
		Groups:   nonNil(set.Groups),
	}, "gates", nil)
}

func (h *AdminHandler) AddGate(c *gin.Context) {
	h.mutateGate(c, true)
}

func (h *AdminHandler) RemoveGate(c *gin.Context) {
	h.mutateGate(c, false)
}

func (h *AdminHandler) mutateGate(c *gin.Context, add bool) {
	var req gateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	kind, err := entity.ParseGateKind(req.Kind)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"kind": "must be one of: channel, group"})
		return
	}
	var changed bool
	if add {
		changed, err = h.Gates.Add(c.Request.Context(), kind, req.Target)
	} else {
		changed, err = h.Gates.Remove(c.Request.Context(), kind, req.Target)
	}
	if err != nil {
		h.fail(c, err, "update gates failed")
		return
	}
	data := gin.H{"kind": kind, "target": entity.NormalizeTarget(req.Target), "changed": changed}
	switch {
	case add && changed:
		response.Success(c, http.StatusCreated, data, "gate added", nil)
	case add:
		response.Success(c, http.StatusOK, data, "gate already present", nil)
	case changed:
		response.Success(c, http.StatusOK, data, "gate removed", nil)
	default:
		response.Error[any](c, http.StatusNotFound, "gate not present", nil)
	}
}

func (h *AdminHandler) GetWindow(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"hours": int(h.Settings.Window().Hours())}, "verification window", nil)
}

func (h *AdminHandler) SetWindow(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Settings.SetWindowHours(c.Request.Context(), req.Hours); err != nil {
		h.fail(c, err, "set verification window failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hours": req.Hours}, "verification window updated", nil)
}

func (h *AdminHandler) CountUsers(c *gin.Context) {
	n, err := h.Users.Count(c.Request.Context())
	if err != nil {
		h.fail(c, err, "count users failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"count": n}, "users", nil)
}

func (h *AdminHandler) SearchUsers(c *gin.Context) {
	if h.Search == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "user search is disabled", nil)
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid query", map[string]string{"q": "is required"})
		return
	}
	size := 20
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			response.Error[any](c, http.StatusBadRequest, "invalid query", map[string]string{"size": "must be between 1 and 100"})
			return
		}
		size = n
	}
	docs, err := h.Search.Search(c.Request.Context(), q, size)
	if err != nil {
		helpers.LogError(h.Logger, "user search failed", err, logrus.Fields{"q": q})
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	if docs == nil {
		docs = []search.UserDoc{}
	}
	response.Success(c, http.StatusOK, docs, "users", map[string]any{"q": q, "size": size, "total": len(docs)})
}

// fail maps application errors onto HTTP statuses.
func (h *AdminHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, application.ErrInvalidArgument):
		response.Error[any](c, http.StatusBadRequest, "invalid payload", err.Error())
	case errors.Is(err, application.ErrStore):
		helpers.LogError(h.Logger, msg, err, nil)
		response.Error[any](c, http.StatusServiceUnavailable, "store unavailable", nil)
	default:
		helpers.LogError(h.Logger, msg, err, nil)
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
