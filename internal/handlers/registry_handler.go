package handlers

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/ppm/api/internal/errors"
	"github.com/stwalsh4118/ppm/api/internal/middleware"
	"github.com/stwalsh4118/ppm/api/internal/models"
	"github.com/stwalsh4118/ppm/api/internal/registry"
	"github.com/stwalsh4118/ppm/api/internal/services"
	"github.com/stwalsh4118/ppm/api/internal/spreadsheet"
)

// Output formats of the search endpoints.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// maxIdentifiers bounds the identifier lists of a single search.
const maxIdentifiers = 10000

// RegistryHandler handles property search HTTP requests.
type RegistryHandler struct {
	service        services.RegistryService
	exportFilename string
	importMaxBytes int64
}

// NewRegistryHandler creates a new RegistryHandler instance.
func NewRegistryHandler(service services.RegistryService, exportFilename string, importMaxBytes int64) *RegistryHandler {
	return &RegistryHandler{
		service:        service,
		exportFilename: exportFilename,
		importMaxBytes: importMaxBytes,
	}
}

// ViewFlags are the display toggles of a search. Omitted flags take the
// default display: subdivisions merged, essential columns only.
type ViewFlags struct {
	MergeSuf    *bool `json:"merge_suf"`
	MergeRights *bool `json:"merge_rights"`
	Essential   *bool `json:"essential"`
}

// Options resolves the flags against the default display.
func (f ViewFlags) Options() registry.ViewOptions {
	opts := registry.DefaultViewOptions()
	if f.MergeSuf != nil {
		opts.MergeSuf = *f.MergeSuf
	}
	if f.MergeRights != nil {
		opts.MergeRights = *f.MergeRights
	}
	if f.Essential != nil {
		opts.Essential = *f.Essential
	}
	return opts
}

// ParcelComponents are the four parts of an IDU, as typed in a form.
type ParcelComponents struct {
	Insee           string `json:"insee" form:"insee" binding:"required"`
	CommuneAbsorbee string `json:"commune_absorbee" form:"commune_absorbee"`
	Section         string `json:"section" form:"section" binding:"required"`
	Numero          string `json:"numero" form:"numero" binding:"required"`
}

// ParcelSearchRequest is the body of POST /api/v1/parcels/search.
type ParcelSearchRequest struct {
	Idus    []string           `json:"idus" binding:"omitempty,max=10000,dive,idu"`
	Parcels []ParcelComponents `json:"parcels" binding:"omitempty,max=10000,dive"`
	ViewFlags
}

// SirenSearchRequest is the body of POST /api/v1/sirens/search.
type SirenSearchRequest struct {
	Sirens       []string `json:"sirens" binding:"omitempty,max=10000,dive,siren"`
	Departements []string `json:"departements" binding:"omitempty,dive,departement"`
	ViewFlags
}

// FormatQuery selects the representation of a search result.
type FormatQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

// SearchResponse is the JSON representation of a search result. Missing
// text is rendered as an empty string and missing numbers as null.
type SearchResponse struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	Count    int             `json:"count"`
	Warnings []string        `json:"warnings,omitempty"`
}

// IduResponse is the response of GET /api/v1/idu.
type IduResponse struct {
	Idu         string `json:"idu"`
	Departement string `json:"departement"`
}

// DepartementsResponse is the response of GET /api/v1/departements.
type DepartementsResponse struct {
	Departements []models.Department `json:"departements"`
	Count        int                 `json:"count"`
}

// ImportResponse is the response of the identifier import endpoints.
type ImportResponse[T any] struct {
	Sheets   []string `json:"sheets"`
	Sheet    string   `json:"sheet"`
	Columns  []string `json:"columns"`
	Column   string   `json:"column"`
	Values   []T      `json:"values"`
	Count    int      `json:"count"`
	Rejected []string `json:"rejected"`
}

// SearchParcels handles POST /api/v1/parcels/search endpoint.
// Identifiers may be given whole (idus) or by components (parcels).
func (h *RegistryHandler) SearchParcels(c *gin.Context) {
	log := middleware.GetLogger(c)

	format, ok := bindFormat(c)
	if !ok {
		return
	}

	var req ParcelSearchRequest
	if !bindJSON(c, &req) {
		return
	}

	if len(req.Idus)+len(req.Parcels) == 0 {
		apierrors.BadRequest(c, "At least one parcel is required", map[string]interface{}{
			"idus":    "provide idus or parcels",
			"parcels": "provide idus or parcels",
		})
		return
	}
	if len(req.Idus)+len(req.Parcels) > maxIdentifiers {
		apierrors.BadRequest(c, "Too many parcels in one search", map[string]interface{}{
			"max": maxIdentifiers,
		})
		return
	}

	idus := make([]models.Idu, 0, len(req.Idus)+len(req.Parcels))
	for _, raw := range req.Idus {
		idu, err := models.ParseIduString(raw)
		if err != nil {
			apierrors.IdentifierError(c, err)
			return
		}
		idus = append(idus, idu)
	}
	for _, p := range req.Parcels {
		idu, err := models.ParseIdu(p.Insee, p.CommuneAbsorbee, p.Section, p.Numero)
		if err != nil {
			apierrors.IdentifierError(c, err)
			return
		}
		idus = append(idus, idu)
	}

	if log != nil {
		log.Info("Processing parcel search", map[string]interface{}{
			"idus":   len(idus),
			"format": format,
		})
	}

	result, err := h.service.SearchParcels(c.Request.Context(), services.ParcelQuery{
		Idus:  idus,
		Views: req.Options(),
	})
	if err != nil {
		apierrors.DomainError(c, err)
		return
	}

	h.render(c, format, result)
}

// SearchSirens handles POST /api/v1/sirens/search endpoint.
// An empty departement list yields an empty result, not an error; an empty
// SIREN list is rejected.
func (h *RegistryHandler) SearchSirens(c *gin.Context) {
	log := middleware.GetLogger(c)

	format, ok := bindFormat(c)
	if !ok {
		return
	}

	var req SirenSearchRequest
	if !bindJSON(c, &req) {
		return
	}

	if len(req.Sirens) == 0 {
		apierrors.BadRequest(c, "At least one SIREN is required", map[string]interface{}{
			"sirens": "provide at least one SIREN",
		})
		return
	}
	if len(req.Sirens) > maxIdentifiers {
		apierrors.BadRequest(c, "Too many SIRENs in one search", map[string]interface{}{
			"max": maxIdentifiers,
		})
		return
	}

	sirens := make([]models.Siren, 0, len(req.Sirens))
	for _, raw := range req.Sirens {
		s, err := models.ParseSiren(raw)
		if err != nil {
			apierrors.IdentifierError(c, err)
			return
		}
		sirens = append(sirens, s)
	}
	departments := make([]models.DepartmentCode, 0, len(req.Departements))
	for _, raw := range req.Departements {
		d, err := models.ParseDepartmentCode(raw)
		if err != nil {
			apierrors.IdentifierError(c, err)
			return
		}
		departments = append(departments, d)
	}

	if log != nil {
		log.Info("Processing SIREN search", map[string]interface{}{
			"sirens":       len(sirens),
			"departements": req.Departements,
			"format":       format,
		})
	}

	result, err := h.service.SearchSirens(c.Request.Context(), services.SirenQuery{
		Sirens:      sirens,
		Departments: departments,
		Views:       req.Options(),
	})
	if err != nil {
		apierrors.DomainError(c, err)
		return
	}

	h.render(c, format, result)
}

// render writes a search result as JSON or as an xlsx attachment.
func (h *RegistryHandler) render(c *gin.Context, format string, result *services.SearchResult) {
	if format == FormatXLSX {
		data, err := h.service.Export(result)
		if err != nil {
			apierrors.InternalServerError(c, "Failed to export result", err)
			return
		}
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
			"filename": h.exportFilename,
		}))
		c.Data(http.StatusOK, spreadsheet.ContentType, data)
		return
	}

	c.JSON(http.StatusOK, toSearchResponse(result))
}

func toSearchResponse(result *services.SearchResult) SearchResponse {
	display := result.Table.NullsAsEmptyString()
	columns := display.Columns()

	rows := make([][]interface{}, 0, display.RowCount())
	for _, row := range display.Rows() {
		out := make([]interface{}, len(columns))
		for i, col := range columns {
			out[i] = row[i].Interface(col.Kind)
		}
		rows = append(rows, out)
	}

	return SearchResponse{
		Columns:  display.ColumnNames(),
		Rows:     rows,
		Count:    len(rows),
		Warnings: result.Warnings,
	}
}

// ComposeIdu handles GET /api/v1/idu endpoint.
// Every invalid component is reported at once.
func (h *RegistryHandler) ComposeIdu(c *gin.Context) {
	var req ParcelComponents
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	idu, err := h.service.ComposeIdu(req.Insee, req.CommuneAbsorbee, req.Section, req.Numero)
	if err != nil {
		apierrors.DomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, IduResponse{
		Idu:         idu.String(),
		Departement: string(idu.Department()),
	})
}

// Departements handles GET /api/v1/departements endpoint.
func (h *RegistryHandler) Departements(c *gin.Context) {
	departments := h.service.Departments()
	c.JSON(http.StatusOK, DepartementsResponse{
		Departements: departments,
		Count:        len(departments),
	})
}

// ImportIdus handles POST /api/v1/imports/idus endpoint.
// The multipart form carries the workbook as "file" and optional "sheet"
// and "column" choices.
func (h *RegistryHandler) ImportIdus(c *gin.Context) {
	file, sheet, column, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.service.ImportIdus(file, sheet, column)
	if err != nil {
		apierrors.DomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toImportResponse(result))
}

// ImportSirens handles POST /api/v1/imports/sirens endpoint.
func (h *RegistryHandler) ImportSirens(c *gin.Context) {
	file, sheet, column, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.service.ImportSirens(file, sheet, column)
	if err != nil {
		apierrors.DomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toImportResponse(result))
}

func toImportResponse[T any](result *services.ImportResult[T]) ImportResponse[T] {
	return ImportResponse[T]{
		Sheets:   result.Sheets,
		Sheet:    result.Sheet,
		Columns:  result.Columns,
		Column:   result.Column,
		Values:   result.Values,
		Count:    len(result.Values),
		Rejected: result.Rejected,
	}
}

// openUpload returns the uploaded workbook and the sheet and column choices.
// It writes the error response itself when ok is false.
func (h *RegistryHandler) openUpload(c *gin.Context) (file multipart.File, sheet, column string, ok bool) {
	if h.importMaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.importMaxBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apierrors.PayloadTooLarge(c, maxBytesErr.Limit)
			return nil, "", "", false
		}
		apierrors.BadRequest(c, "A workbook must be uploaded in the \"file\" field", nil)
		return nil, "", "", false
	}

	f, err := header.Open()
	if err != nil {
		apierrors.InternalServerError(c, "Failed to read upload", err)
		return nil, "", "", false
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing identifier import", map[string]interface{}{
			"filename": header.Filename,
			"size":     header.Size,
		})
	}

	return f, c.PostForm("sheet"), c.PostForm("column"), true
}

func bindFormat(c *gin.Context) (string, bool) {
	var q FormatQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return "", false
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return "", false
	}
	if q.Format == "" {
		q.Format = FormatJSON
	}
	return q.Format, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return false
	}
	return true
}
