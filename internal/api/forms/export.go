// export.go streams the join-request queue as XLSX or PDF. Columns follow
// the form's field order, so every society gets a sheet shaped like its own
// form.
package forms

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/export"
)

// exportPageSize is the hard ceiling on exported rows.
const exportPageSize = 10000

// ExportRequestsHandler streams the society's join requests as a download.
// GET /api/society/:societyID/requests/export (xlsx)
// GET /api/society/:societyID/requests/export-pdf
func (h *Handlers) ExportRequestsHandler(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		societyID := c.Param("societyID")
		society, err := h.societies.GetByID(c.Request.Context(), societyID)
		if err != nil {
			respond.Internal(c, "Failed to load society", err)
			return
		}
		if society == nil {
			respond.Error(c, http.StatusNotFound, "Society not found")
			return
		}

		form, err := h.exportForm(c)
		if err != nil {
			respond.Internal(c, "Failed to load form", err)
			return
		}
		if form == nil {
			respond.Error(c, http.StatusNotFound, "No join form to export against")
			return
		}

		status, ok := statusFilter(c)
		if !ok {
			return
		}
		reqs, err := h.requests.ListBySociety(c.Request.Context(),
			societyID, status, exportPageSize, 0)
		if err != nil {
			respond.Internal(c, "Failed to load requests", err)
			return
		}

		switch format {
		case "pdf":
			buf, err := export.RequestsPDF(society, form, reqs)
			if err != nil {
				respond.Internal(c, "Failed to generate export", err)
				return
			}
			download(c, buf.Bytes(), "application/pdf", "requests.pdf")
		default:
			buf, err := export.RequestsXLSX(form, reqs)
			if err != nil {
				respond.Internal(c, "Failed to generate export", err)
				return
			}
			download(c, buf.Bytes(),
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"requests.xlsx")
		}
	}
}

// exportForm picks the form whose fields shape the export columns: an
// explicit ?form_id takes precedence, otherwise the active join form.
func (h *Handlers) exportForm(c *gin.Context) (*models.Form, error) {
	if id := c.Query("form_id"); id != "" {
		form, err := h.forms.GetByID(c.Request.Context(), id)
		if err != nil || form == nil {
			return nil, err
		}
		if form.SocietyID != c.Param("societyID") {
			return nil, nil
		}
		return form, nil
	}
	return h.forms.GetActiveJoinForm(c.Request.Context(), c.Param("societyID"))
}

func download(c *gin.Context, data []byte, contentType, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

func pagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
