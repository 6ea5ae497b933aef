package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-audioconv/internal/audio"
	"github.com/alnah/go-audioconv/internal/convert"
	"github.com/alnah/go-audioconv/internal/media"
	"github.com/alnah/go-audioconv/internal/result"
	"github.com/alnah/go-audioconv/internal/timespec"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// Form fields accepted by POST /v1/convert.
const (
	fieldFile   = "file"
	fieldFormat = "format"
	fieldStart  = "start"
	fieldEnd    = "end"
	fieldOutput = "output"
)

// Response headers describing the conversion.
const (
	HeaderSourceFormat  = "X-Source-Format"
	HeaderMediaDuration = "X-Media-Duration-Ms"
	HeaderCutRange      = "X-Cut-Range"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type formatInfo struct {
	Format    string `json:"format"`
	Extension string `json:"extension"`
	MIME      string `json:"mime"`
	Lossy     bool   `json:"lossy"`
}

type formatsResponse struct {
	Formats       []formatInfo `json:"formats"`
	DefaultOutput string       `json:"default_output"`
}

// handleConvert converts one multipart upload and streams back either the
// full conversion or the clip, selected by the "output" field.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	id := requestIDFrom(r.Context())
	if r.ContentLength > s.maxUploadBytes {
		s.writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Errorf("upload exceeds %d bytes", s.maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(fieldFile)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("missing %q in form", fieldFile))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	req := convert.Request{
		ID:       id,
		Filename: header.Filename,
		MIME:     header.Header.Get("Content-Type"),
		Data:     data,
		Target:   r.FormValue(fieldFormat),
		Start:    r.FormValue(fieldStart),
		End:      r.FormValue(fieldEnd),
	}

	wantCut, err := selectOutput(r.FormValue(fieldOutput), req)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	req.Cut = wantCut

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	out, err := s.conv.Run(ctx, req)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	d := out.Converted
	if wantCut {
		d = out.Cut
		w.Header().Set(HeaderCutRange, out.Range.String())
	}
	w.Header().Set(HeaderSourceFormat, string(out.Source))
	w.Header().Set(HeaderMediaDuration, strconv.FormatInt(out.Duration.Milliseconds(), 10))
	serveDownload(w, r, d)
}

// selectOutput resolves the "output" field. Without it, a clip is returned
// when start or end is given.
func selectOutput(output string, req convert.Request) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "":
		return req.WantsCut(), nil
	case convert.CutName:
		return true, nil
	case convert.ConvertedName:
		if req.WantsCut() {
			return false, fmt.Errorf("%s and %s apply only to %s=%s", fieldStart, fieldEnd, fieldOutput, convert.CutName)
		}
		return false, nil
	}
	return false, fmt.Errorf("%s must be %q or %q, got %q", fieldOutput, convert.ConvertedName, convert.CutName, output)
}

// serveDownload writes d as an attachment. Range requests are honored
// through the download's seeker.
func serveDownload(w http.ResponseWriter, r *http.Request, d *result.Download) {
	d.Rewind()
	w.Header().Set("Content-Type", d.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Name}))
	http.ServeContent(w, r, d.Name, time.Time{}, d)
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	formats := s.conv.Formats().List()
	resp := formatsResponse{
		Formats:       make([]formatInfo, 0, len(formats)),
		DefaultOutput: string(s.defaultTarget),
	}
	for _, f := range formats {
		resp.Formats = append(resp.Formats, formatInfo{
			Format:    string(f),
			Extension: f.Ext(),
			MIME:      f.MIME(),
			Lossy:     transcode.Lossy(f),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps conversion errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, media.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, timespec.ErrTimeFormat):
		return http.StatusBadRequest
	case errors.Is(err, audio.ErrInvalidRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, transcode.ErrDecode), errors.Is(err, transcode.ErrEncode):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError sends a JSON error. The message never includes ffmpeg
// diagnostics; transcode errors keep those out of Error().
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := requestIDFrom(r.Context())
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("request_id", id), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // client may have gone away
}
