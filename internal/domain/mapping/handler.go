package mapping

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayuniq/ayuniq/internal/platform/auth"
	"github.com/ayuniq/ayuniq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the clinician endpoints under /mapping and the
// reviewer endpoints under /admin.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	review := auth.RequireRole(auth.RoleReviewer)

	api.POST("/mapping/create", h.CreateMapping)
	api.GET("/mapping/list", h.ListMappings)
	api.GET("/mapping/:id", h.GetMapping)

	api.GET("/admin/manual-mappings", h.AdminListMappings, review)
	api.POST("/admin/mapping/:id/review", h.ReviewMapping, review)
}

func (h *Handler) CreateMapping(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"mapping": m,
		"message": "Manual mapping created successfully",
	})
}

func (h *Handler) ListMappings(c echo.Context) error {
	items, total, page, err := h.list(c)
	if err != nil {
		return err
	}
	resp := map[string]interface{}{
		"success":  true,
		"mappings": items,
		"total":    total,
	}
	addPage(resp, total, page)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) AdminListMappings(c echo.Context) error {
	items, total, page, err := h.list(c)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"mappings": items,
		"total":    total,
	}
	addPage(data, total, page)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// list reads status and namasteCode filters. Without limit or offset the
// whole collection is returned and page is nil.
func (h *Handler) list(c echo.Context) ([]*Mapping, int, *pagination.Params, error) {
	f := Filter{
		Status:      Status(c.QueryParam("status")),
		NamasteCode: c.QueryParam("namasteCode"),
	}
	var page *pagination.Params
	limit, offset := 0, 0
	if c.QueryParam("limit") != "" || c.QueryParam("offset") != "" {
		p := pagination.FromContext(c)
		page = &p
		limit, offset = p.Limit, p.Offset
	}
	items, total, err := h.svc.List(c.Request().Context(), f, limit, offset)
	if err != nil {
		return nil, 0, nil, mapError(err)
	}
	return items, total, page, nil
}

func addPage(m map[string]interface{}, total int, page *pagination.Params) {
	if page == nil {
		return
	}
	m["limit"] = page.Limit
	m["offset"] = page.Offset
	m["hasMore"] = page.HasNext(total)
}

func (h *Handler) GetMapping(c echo.Context) error {
	m, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": m})
}

type reviewRequest struct {
	Approved      bool   `json:"approved"`
	ReviewerNotes string `json:"reviewerNotes"`
	ReviewerID    string `json:"reviewerId"`
}

func (h *Handler) ReviewMapping(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.Review(c.Request().Context(), c.Param("id"), Review{
		Approved: req.Approved,
		Notes:    req.ReviewerNotes,
		Reviewer: req.ReviewerID,
	})
	if err != nil {
		return mapError(err)
	}

	verb := "rejected"
	if req.Approved {
		verb = "approved"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Mapping " + verb + " successfully",
		"data":    m,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTermNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrTermNotFound.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Mapping not found")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
