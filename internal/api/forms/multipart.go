// multipart.go handles the multipart submission path: size caps, MIME
// sniffing against the configured allow-list, and translation of file parts
// into workflow uploads.
package forms

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/api/respond"
	"github.com/societyhub/societyhub/internal/services"
)

// defaultMaxUploadBytes caps a single attachment when the config leaves the
// limit unset.
const defaultMaxUploadBytes = 5 << 20

// parseMultipart extracts the responses payload and the file uploads from a
// multipart submission. It writes its own error responses; ok is false when
// the caller should bail. The cleanup func closes every opened part.
func (h *Handlers) parseMultipart(c *gin.Context) (payload submitPayload, uploads []services.Upload, cleanup func(), ok bool) {
	cleanup = func() {}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes()*4)
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid multipart request: "+err.Error())
		return payload, nil, cleanup, false
	}

	raw := c.PostForm("responses")
	if raw == "" {
		respond.Error(c, http.StatusBadRequest, "Missing responses value")
		return payload, nil, cleanup, false
	}
	if err := decodeResponses(raw, &payload); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid responses JSON: "+err.Error())
		return payload, nil, cleanup, false
	}
	if v := c.PostForm("selected_group_id"); v != "" {
		payload.SelectedGroupID = &v
	}

	var open []io.Closer
	cleanup = func() {
		for _, f := range open {
			f.Close()
		}
	}

	for label, headers := range form.File {
		for _, header := range headers {
			if header.Size > h.maxUploadBytes() {
				cleanup()
				respond.Error(c, http.StatusBadRequest,
					"File "+header.Filename+" exceeds the "+
						strconv.FormatInt(h.maxUploadBytes()>>20, 10)+" MB limit")
				return payload, nil, func() {}, false
			}

			file, err := header.Open()
			if err != nil {
				cleanup()
				respond.Internal(c, "Failed to read upload", err)
				return payload, nil, func() {}, false
			}
			open = append(open, file)

			contentType, err := sniffContentType(file, header.Header.Get("Content-Type"))
			if err != nil {
				cleanup()
				respond.Internal(c, "Failed to read upload", err)
				return payload, nil, func() {}, false
			}
			if !h.mimeAllowed(contentType) {
				cleanup()
				respond.Error(c, http.StatusBadRequest,
					"File type "+contentType+" is not allowed")
				return payload, nil, func() {}, false
			}

			uploads = append(uploads, services.Upload{
				FieldLabel:  label,
				Filename:    header.Filename,
				ContentType: contentType,
				Size:        header.Size,
				Reader:      file,
			})
		}
	}
	return payload, uploads, cleanup, true
}

func (h *Handlers) maxUploadBytes() int64 {
	if h.cfg.Uploads.MaxSizeBytes > 0 {
		return h.cfg.Uploads.MaxSizeBytes
	}
	return defaultMaxUploadBytes
}

// mimeAllowed checks a content type against the configured allow-list. The
// comparison ignores parameters such as charset.
func (h *Handlers) mimeAllowed(contentType string) bool {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, allowed := range h.cfg.Uploads.AllowedMIMETypes {
		if base == allowed {
			return true
		}
	}
	return false
}

// sniffContentType detects the real content type from the leading bytes and
// rewinds the file. Office formats sniff as zip, so the declared type wins
// when sniffing is inconclusive.
func sniffContentType(file io.ReadSeeker, declared string) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	sniffed := http.DetectContentType(buf[:n])
	if sniffed == "application/octet-stream" || sniffed == "application/zip" {
		if declared != "" {
			return declared, nil
		}
	}
	return sniffed, nil
}
