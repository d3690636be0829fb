package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"sdfrontend/internal/core"

	"github.com/gin-gonic/gin"
)

func (s *Server) index(c *gin.Context) {
	caps, err := s.discovery.Snapshot(c.Request.Context())
	if err != nil {
		// client went away; nothing to render
		s.logger.Debug("Index not rendered: %v", err)
		c.Abort()
		return
	}
	c.HTML(http.StatusOK, pageTemplateName, pageData{
		UpstreamURL:    s.upstream.BaseURL(),
		Models:         caps.Models,
		Samplers:       caps.Samplers,
		DefaultSampler: core.DefaultSampler,
		DefaultSize:    core.Txt2ImgDefaultSize,
		DefaultSteps:   core.Txt2ImgDefaultSteps,
	})
}

func (s *Server) generateTxt2Img(c *gin.Context) {
	form, err := readForm(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp, err := s.adapter.TextToImage(c.Request.Context(), form)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) generateImg2Img(c *gin.Context) {
	form, err := readForm(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	upload, err := uploadedImage(c.Request.MultipartForm)
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp, err := s.adapter.ImageToImage(c.Request.Context(), form, upload)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) healthCheck(c *gin.Context) {
	ok := s.upstream.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	c.JSON(status, core.HealthResponse{OK: ok})
}

func (s *Server) getStatsData(c *gin.Context) {
	c.JSON(http.StatusOK, s.metricsService.Summary())
}

func (s *Server) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, core.ErrorResponse{Error: core.MsgNotFound})
}

func (s *Server) methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, core.ErrorResponse{Error: core.MsgMethodNotAllowed})
}

// errBodyTooLarge marks a request rejected by the body size limit.
var errBodyTooLarge = errors.New(core.MsgBodyTooLarge)

// respondError is the only place pipeline errors become the JSON envelope.
func (s *Server) respondError(c *gin.Context, err error) {
	if errors.Is(err, errBodyTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, core.ErrorResponse{Error: core.MsgBodyTooLarge})
		return
	}
	status, message := core.StatusAndMessage(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, core.ErrorResponse{Error: message})
}

// readForm parses a multipart or url-encoded body and returns its fields.
// Query string values are not part of the form.
func readForm(c *gin.Context) (url.Values, error) {
	var err error
	if c.ContentType() == core.ContentTypeMultipart {
		err = c.Request.ParseMultipartForm(core.MaxMultipartMemory)
	} else {
		err = c.Request.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, errBodyTooLarge
		}
		return nil, core.ErrValidation("invalid form data: %v", err)
	}
	return c.Request.PostForm, nil
}

// uploadedImage returns the first non-empty file under one of core.UploadFieldNames.
func uploadedImage(form *multipart.Form) ([]byte, error) {
	if form == nil {
		return nil, nil
	}
	for _, name := range core.UploadFieldNames {
		for _, header := range form.File[name] {
			if header.Size == 0 {
				continue
			}
			data, err := readUpload(header)
			if err != nil {
				return nil, err
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}
	return nil, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, core.ErrUnhandled(err)
	}
	defer func() { _ = f.Close() }()

	// one byte over the limit so the size check downstream can reject it
	data, err := io.ReadAll(io.LimitReader(f, core.MaxImageSizeBytes+1))
	if err != nil {
		return nil, core.ErrUnhandled(err)
	}
	return data, nil
}
