package terminology

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ayuniq/ayuniq/internal/platform/fhir"
	"github.com/ayuniq/ayuniq/pkg/pagination"
)

// Handler serves the search, health and FHIR terminology endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the REST routes on api and the FHIR operations
// on fhirGroup. Terminology reads are open to anonymous callers.
func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	api.GET("/search", h.Search)
	api.GET("/health", h.Health)

	fhirGroup.GET("/metadata", h.Metadata)
	fhirGroup.GET("/health", h.FHIRHealth)

	fhirGroup.GET("/CodeSystem", h.SearchCodeSystems)
	fhirGroup.GET("/CodeSystem/:id", h.ReadCodeSystem)
	fhirGroup.GET("/CodeSystem/$lookup", h.Lookup)
	fhirGroup.POST("/CodeSystem/$lookup", h.Lookup)
	fhirGroup.POST("/lookup", h.Lookup)

	fhirGroup.GET("/ConceptMap/$translate", h.Translate)
	fhirGroup.POST("/ConceptMap/$translate", h.Translate)
	fhirGroup.POST("/translate", h.Translate)

	fhirGroup.GET("/ValueSet/$expand", h.Expand)
	fhirGroup.POST("/ValueSet/$expand", h.Expand)
}

// Search handles GET /api/search?q=&limit=
func (h *Handler) Search(c echo.Context) error {
	limit := DefaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = min(v, pagination.MaxLimit)
	}
	return c.JSON(http.StatusOK, h.svc.Search(c.Request().Context(), c.QueryParam("q"), limit))
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Health(c.Request().Context()))
}

func (h *Handler) FHIRHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.FHIRHealth(c.Request().Context()))
}

func (h *Handler) Metadata(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Capabilities())
}

// SearchCodeSystems handles GET /fhir/CodeSystem
func (h *Handler) SearchCodeSystems(c echo.Context) error {
	bundle, err := fhir.NewSearchBundle(
		[]interface{}{h.svc.CodeSystem()},
		c.Request().URL.String(),
		func(int) string { return NamasteSystemURI },
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, bundle)
}

// ReadCodeSystem handles GET /fhir/CodeSystem/:id
func (h *Handler) ReadCodeSystem(c echo.Context) error {
	if id := c.Param("id"); id != CodeSystemID {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome(fmt.Sprintf("CodeSystem '%s' not found", id)))
	}
	return c.JSON(http.StatusOK, h.svc.CodeSystem())
}

// Lookup handles CodeSystem/$lookup and the legacy POST /fhir/lookup.
func (h *Handler) Lookup(c echo.Context) error {
	args, err := operationArgs(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	code := args["code"]
	if code == "" {
		code = args["coding"]
	}

	res, err := h.svc.Lookup(code)
	switch {
	case errors.Is(err, ErrCodeRequired):
		return c.JSON(http.StatusBadRequest, fhir.RequiredOutcome(`Parameter "code" is required`))
	case errors.Is(err, ErrCodeNotFound):
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome(fmt.Sprintf("Code '%s' not found", code)))
	case err != nil:
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, res.Parameters())
}

// Translate handles ConceptMap/$translate and the legacy POST /fhir/translate.
func (h *Handler) Translate(c echo.Context) error {
	args, err := operationArgs(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	code, system := args["code"], args["system"]
	if code == "" {
		code, system = args["coding"], firstArg(system, args["coding.system"])
	}
	if code == "" || system == "" {
		return c.JSON(http.StatusBadRequest, fhir.RequiredOutcome(`Parameters "code" and "system" are required`))
	}
	target := firstArg(args["targetsystem"], args["targetSystem"])

	resp := h.svc.Translate(c.Request().Context(), code, target)
	return c.JSON(http.StatusOK, resp.Parameters())
}

// Expand handles ValueSet/$expand?filter=&count=&offset=
func (h *Handler) Expand(c echo.Context) error {
	args, err := operationArgs(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	p := pagination.Parse(firstArg(args["count"], args["_count"]), args["offset"], pagination.MaxLimit)
	return c.JSON(http.StatusOK, h.svc.Expand(args["filter"], p.Limit, p.Offset))
}

// operationArgs merges query parameters with a POST body given either as a
// Parameters resource or flat JSON. Body values win.
func operationArgs(c echo.Context) (map[string]string, error) {
	args := make(map[string]string)
	for k, v := range c.QueryParams() {
		if len(v) > 0 && v[0] != "" {
			args[k] = v[0]
		}
	}
	if c.Request().Method != http.MethodPost || c.Request().Body == nil {
		return args, nil
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(body) == 0 {
		return args, nil
	}
	bodyArgs, err := fhir.OperationArgs(body)
	if err != nil {
		return nil, err
	}
	for k, v := range bodyArgs {
		args[k] = v
	}
	return args, nil
}

func firstArg(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
