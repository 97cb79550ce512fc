package admin

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ayuniq/ayuniq/internal/platform/auth"
)

const uploadField = "csvFile"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := auth.RequireRole(auth.RoleAdmin)

	api.POST("/admin/clear-cache", h.ClearCache, admin)
	api.POST("/admin/reload-data", h.ReloadData, admin)
	api.POST("/admin/test-who-connection", h.TestWHOConnection, admin)
	api.POST("/admin/upload-namaste-csv", h.UploadCSV, admin)
}

func (h *Handler) ClearCache(c echo.Context) error {
	n := h.svc.ClearCache()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Translation cache cleared (%d entries removed)", n),
	})
}

func (h *Handler) ReloadData(c echo.Context) error {
	st, err := h.svc.ReloadData(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "NAMASTE data reloaded successfully",
		"data":    st,
	})
}

func (h *Handler) TestWHOConnection(c echo.Context) error {
	st, ok := h.svc.TestConnection(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"error":   "WHO ICD-11 API connection failed",
			"details": st.Error,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "WHO ICD-11 API connection successful",
		"data": map[string]interface{}{
			"status":            "connected",
			"timestamp":         time.Now().UTC(),
			"testSearchResults": st.TestSearchResults,
			"apiVersion":        st.APIVersion,
		},
	})
}

// UploadCSV handles a multipart upload of a replacement NAMASTE codebook in
// the csvFile field.
func (h *Handler) UploadCSV(c echo.Context) error {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No CSV file provided")
	}
	if !isCSV(file.Filename, file.Header.Get(echo.HeaderContentType)) {
		return echo.NewHTTPError(http.StatusBadRequest, "Only CSV files are allowed")
	}
	if limit := h.svc.MaxUpload(); limit > 0 && file.Size > limit {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, ErrUploadTooLarge.Error())
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	n, err := h.svc.ImportCSV(c.Request().Context(), src)
	switch {
	case errors.Is(err, ErrUploadTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrEmptyCSV), errors.Is(err, ErrInvalidCSV):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "CSV uploaded and processed successfully",
		"data": map[string]interface{}{
			"filename":    file.Filename,
			"size":        file.Size,
			"termsLoaded": n,
		},
	})
}

func isCSV(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return true
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "text/csv")
}
