package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
	"github.com/gin-gonic/gin"
)

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Message string               `json:"message"`
	Data    *models.MemoryRecord `json:"data"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"fanout":      s.hub.State().String(),
		"subscribers": s.hub.Count(),
	})
}

// listMemories returns the full history, newest first. With ?before= or
// ?limit= it returns one page instead. ?before_id= is the id of the last
// card of the previous page and needs ?before=.
func (s *Server) listMemories(c *gin.Context) {
	beforeRaw, beforeIDRaw, limitRaw := c.Query("before"), c.Query("before_id"), c.Query("limit")

	var (
		recs []*models.MemoryRecord
		err  error
	)
	if beforeRaw == "" && beforeIDRaw == "" && limitRaw == "" {
		recs, err = s.service.List(c.Request.Context())
	} else {
		var before time.Time
		if beforeRaw != "" {
			before, err = time.Parse(time.RFC3339Nano, beforeRaw)
			if err != nil {
				writeError(c, http.StatusBadRequest, "invalid before timestamp")
				return
			}
		}
		var beforeID int64
		if beforeIDRaw != "" {
			beforeID, err = strconv.ParseInt(beforeIDRaw, 10, 64)
			if err != nil || beforeID < 0 || beforeRaw == "" {
				writeError(c, http.StatusBadRequest, "invalid before_id")
				return
			}
		}
		limit := 0
		if limitRaw != "" {
			limit, err = strconv.Atoi(limitRaw)
			if err != nil || limit < 0 {
				writeError(c, http.StatusBadRequest, "invalid limit")
				return
			}
		}
		recs, err = s.service.ListPage(c.Request.Context(), before, beforeID, limit)
	}
	if err != nil {
		s.logger.Error(c.Request.Context(), "list memories", "error", err.Error())
		writeError(c, http.StatusInternalServerError, "failed to load memories")
		return
	}

	c.JSON(http.StatusOK, recs)
}

func (s *Server) upload(c *gin.Context) {
	if s.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(c, http.StatusBadRequest, "invalid multipart body")
		return
	}

	sub := &models.Submission{
		Nickname: firstValue(form, common.FieldNickname),
		Message:  firstValue(form, common.FieldMessage),
	}
	if sub.Cropped, err = readPart(form, common.FieldFile); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if sub.Full, err = readPart(form, common.FieldFullFile); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.service.Create(c.Request.Context(), sub)
	if err != nil {
		status, msg := statusFor(err)
		if status >= 500 {
			s.logger.Error(c.Request.Context(), "upload failed", "error", err.Error())
		}
		writeError(c, status, msg)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{Message: common.UploadSuccessMessage, Data: rec})
}

func firstValue(form *multipart.Form, name string) string {
	if v := form.Value[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// readPart returns nil when the part is absent.
func readPart(form *multipart.Form, name string) (*models.Upload, error) {
	files := form.File[name]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s", name)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s", name)
	}

	return &models.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
