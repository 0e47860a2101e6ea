package handlers

import (
	"CrowdGuard/internal/models"
	apperrors "CrowdGuard/pkg/errors"
	"CrowdGuard/pkg/response"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxPhotoSize = 5 << 20

var photoExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (h *Handlers) handleListLostFound(c *gin.Context) {
	rows, err := models.ListLostFound(h.db, models.LostFoundFilter{
		ReportType: c.Query("report_type"),
		Status:     c.Query("status"),
		UserEmail:  c.Query("user_email"),
		Search:     strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	l := h.labels(c)
	out := make([]models.LostFoundView, len(rows))
	for i := range rows {
		out[i] = rows[i].View(l)
	}
	response.List(c, out, nil)
}

func (h *Handlers) handleGetLostFound(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := models.GetLostFound(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, r.View(h.labels(c)))
}

func (h *Handlers) handleCreateLostFound(c *gin.Context) {
	var req models.LostFoundCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	r := req.Build()
	if err := models.CreateLostFound(h.db, r); err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordBusinessOperation("lost_found_create", r.ReportType)
	response.Created(c, r.View(h.labels(c)))
}

func (h *Handlers) handlePatchLostFound(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := models.GetLostFound(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.LostFoundPatch
	if !bindJSON(c, &req) {
		return
	}
	req.Apply(r)
	if err := models.SaveLostFound(h.db, r); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, r.View(h.labels(c)))
}

func (h *Handlers) handleDeleteLostFound(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := models.DeleteLostFound(h.db, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func photoError(msg string) error {
	fields := apperrors.FieldErrors{}
	fields.Add("photo", msg)
	return fields.Err()
}

// handleUploadLostFoundPhoto stores a multipart "photo" image and points the
// report's photo_url at it. A previous upload is removed from storage.
func (h *Handlers) handleUploadLostFoundPhoto(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := models.GetLostFound(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoSize+1<<20)
	fh, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, photoError("No file was submitted."))
		return
	}
	if fh.Size > maxPhotoSize {
		response.Error(c, photoError("Image must not exceed 5 MB."))
		return
	}
	ext := strings.ToLower(path.Ext(fh.Filename))
	if !photoExtensions[ext] {
		response.Error(c, photoError("Upload a valid image. Allowed types: jpg, jpeg, png, gif, webp."))
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "open upload"))
		return
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := f.Read(head)
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		response.Error(c, photoError("Upload a valid image. The file you uploaded was either not an image or a corrupted image."))
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		response.Error(c, apperrors.Wrap(err, "rewind upload"))
		return
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("lost-found/%d/%s%s", r.ID, uuid.NewString(), ext)
	if err := h.store.Write(ctx, key, f, fh.Size, contentTypeFor(key)); err != nil {
		response.Error(c, apperrors.Wrap(err, "store photo"))
		return
	}
	previous := r.PhotoURL
	if err := models.SetLostFoundPhoto(h.db, r, h.store.PublicURL(key)); err != nil {
		_ = h.store.Delete(ctx, key)
		response.Error(c, err)
		return
	}
	if previous != nil {
		if old := h.storageKey(*previous); old != "" {
			_ = h.store.Delete(ctx, old)
		}
	}
	response.Success(c, r.View(h.labels(c)))
}

// storageKey recovers the key of a URL issued by the store, or "" for foreign URLs.
func (h *Handlers) storageKey(publicURL string) string {
	base := strings.TrimSuffix(h.store.PublicURL("x"), "x")
	if !strings.HasPrefix(publicURL, base) {
		return ""
	}
	return strings.TrimPrefix(publicURL, base)
}
