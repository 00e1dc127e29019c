package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"coachai/internal/artifact"
	"coachai/internal/gateway/repository/objectstore"
	"coachai/internal/gateway/service"
	"coachai/internal/gateway/service/files"
)

const (
	defaultPresignSeconds = 3600
	proxyCacheControl     = "public, max-age=31536000"
	multipartOverhead     = 1 << 20
)

type FilesHandler struct {
	svc *files.Service
}

func NewFilesHandler(svc *files.Service) *FilesHandler {
	return &FilesHandler{svc: svc}
}

type uploadFunc func(ctx context.Context, up files.Upload) (*files.Stored, error)

func (h *FilesHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, "image upload", h.svc.UploadImage)
}

func (h *FilesHandler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, "document upload", h.svc.UploadDocument)
}

func (h *FilesHandler) HandleUploadTemp(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, "temp file upload", h.svc.UploadTemp)
}

func (h *FilesHandler) handleUpload(w http.ResponseWriter, r *http.Request, op string, upload uploadFunc) {
	up, err := h.readMultipartFile(w, r)
	if err != nil {
		writeError(w, op, err)
		return
	}
	stored, err := upload(r.Context(), *up)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeSuccess(w, op+" succeeded", map[string]string{
		"fileName":    up.Filename,
		"fileUrl":     stored.URL,
		"objectName":  stored.ObjectName,
		"fileSize":    strconv.FormatInt(stored.Size, 10),
		"contentType": stored.ContentType,
	})
}

func (h *FilesHandler) readMultipartFile(w http.ResponseWriter, r *http.Request) (*files.Upload, error) {
	limit := h.svc.Config().MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, service.Invalid("file", "invalid multipart form: %v", err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, service.Invalid("file", "file is required")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &files.Upload{
		Filename:    path.Base(hdr.Filename),
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *FilesHandler) HandleUploadBase64(w http.ResponseWriter, r *http.Request) {
	const op = "base64 image upload"
	raw := strings.TrimSpace(r.FormValue("base64Image"))
	if raw == "" {
		writeError(w, op, service.Invalid("base64Image", "is required"))
		return
	}
	stored, err := h.svc.SaveBase64(r.Context(), raw)
	if err != nil {
		writeError(w, op, h.clientError(err))
		return
	}
	writeSuccess(w, op+" succeeded", map[string]string{
		"savedFileUrl":  stored.URL,
		"objectName":    stored.ObjectName,
		"estimatedSize": strconv.FormatInt(stored.Size, 10),
	})
}

func (h *FilesHandler) HandleUploadBase64JSON(w http.ResponseWriter, r *http.Request) {
	const op = "base64 image upload"
	var in struct {
		Base64Image string `json:"base64Image"`
		FileName    string `json:"fileName"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, op, err)
		return
	}
	if strings.TrimSpace(in.Base64Image) == "" {
		writeError(w, op, service.Invalid("base64Image", "is required"))
		return
	}
	stored, err := h.svc.SaveBase64(r.Context(), in.Base64Image)
	if err != nil {
		writeError(w, op, h.clientError(err))
		return
	}
	writeSuccess(w, op+" succeeded", map[string]string{
		"savedFileUrl":     stored.URL,
		"objectName":       stored.ObjectName,
		"originalFileName": in.FileName,
		"description":      in.Description,
	})
}

func (h *FilesHandler) HandleCompressTest(w http.ResponseWriter, r *http.Request) {
	const op = "image compression test"
	up, params, err := h.readCompressRequest(w, r)
	if err != nil {
		writeError(w, op, err)
		return
	}
	out, err := h.svc.CompressUpload(*up, params)
	if err != nil {
		writeError(w, op, err)
		return
	}
	data := compressionSummary(up, out)
	data["needsCompression"] = files.NeedsCompression(int64(len(up.Data)))
	data["compressionParams"] = compressionParams(params)
	writeSuccess(w, fmt.Sprintf("image compression test completed, ratio %s", data["compressionRatio"]), data)
}

func (h *FilesHandler) HandleCompressUpload(w http.ResponseWriter, r *http.Request) {
	const op = "image compression upload"
	up, params, err := h.readCompressRequest(w, r)
	if err != nil {
		writeError(w, op, err)
		return
	}
	stored, out, err := h.svc.CompressAndUpload(r.Context(), *up, params)
	if err != nil {
		writeError(w, op, err)
		return
	}
	data := compressionSummary(up, out)
	data["fileUrl"] = stored.URL
	data["objectName"] = stored.ObjectName
	data["contentType"] = stored.ContentType
	writeSuccess(w, op+" succeeded", data)
}

// readCompressRequest reads the file and the optional quality, maxWidth and
// maxHeight fields. Without quality the smart strategy applies.
func (h *FilesHandler) readCompressRequest(w http.ResponseWriter, r *http.Request) (*files.Upload, *files.CompressParams, error) {
	up, err := h.readMultipartFile(w, r)
	if err != nil {
		return nil, nil, err
	}
	rawQuality := strings.TrimSpace(r.FormValue("quality"))
	if rawQuality == "" {
		return up, nil, nil
	}
	p := files.CompressParams{MaxWidth: files.DefaultMaxDimension, MaxHeight: files.DefaultMaxDimension}
	if p.Quality, err = strconv.ParseFloat(rawQuality, 64); err != nil {
		return nil, nil, service.Invalid("quality", "%q is not a number", rawQuality)
	}
	for name, dst := range map[string]*int{"maxWidth": &p.MaxWidth, "maxHeight": &p.MaxHeight} {
		raw := strings.TrimSpace(r.FormValue(name))
		if raw == "" {
			continue
		}
		if *dst, err = strconv.Atoi(raw); err != nil {
			return nil, nil, service.Invalid(name, "%q is not a number", raw)
		}
	}
	return up, &p, nil
}

func compressionSummary(up *files.Upload, out *files.Compressed) map[string]any {
	original, compressed := int64(len(up.Data)), int64(len(out.Data))
	return map[string]any{
		"originalFileName":       up.Filename,
		"originalSize":           original,
		"originalSizeReadable":   readableSize(original),
		"compressedSize":         compressed,
		"compressedSizeReadable": readableSize(compressed),
		"compressionRatio":       fmt.Sprintf("%.1f%%", (1-float64(compressed)/float64(original))*100),
	}
}

func compressionParams(p *files.CompressParams) map[string]any {
	if p != nil {
		return map[string]any{"quality": p.Quality, "maxWidth": p.MaxWidth, "maxHeight": p.MaxHeight, "outputFormat": "JPEG"}
	}
	return map[string]any{"quality": "auto", "maxWidth": files.DefaultMaxDimension, "maxHeight": files.DefaultMaxDimension, "outputFormat": "JPEG"}
}

// readableSize renders n in B, KB, MB or GB with one decimal, base 1024.
func readableSize(n int64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	}
}

// clientError marks codec failures as bad input.
func (h *FilesHandler) clientError(err error) error {
	if errors.Is(err, artifact.ErrInvalidBase64) || errors.Is(err, artifact.ErrArtifactNotFound) {
		return service.Invalid("base64Image", "%v", err)
	}
	return err
}

func (h *FilesHandler) HandleDownloadImage(w http.ResponseWriter, r *http.Request) {
	const op = "image download"
	imageURL := strings.TrimSpace(r.FormValue("imageUrl"))
	if imageURL == "" {
		writeError(w, op, service.Invalid("imageUrl", "is required"))
		return
	}
	stored, err := h.svc.DownloadAndSave(r.Context(), imageURL)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeSuccess(w, op+" succeeded", map[string]string{
		"originalUrl":  imageURL,
		"savedFileUrl": stored.URL,
		"objectName":   stored.ObjectName,
	})
}

func (h *FilesHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := queryParam(r, "objectName")
	if name == "" {
		http.Error(w, "objectName is required", http.StatusBadRequest)
		return
	}
	data, _, err := h.svc.Download(r.Context(), name)
	if err != nil {
		h.writeRawError(w, name, err)
		return
	}
	w.Header().Set("Content-Type", artifact.DefaultContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(name)))
	_, _ = w.Write(data)
}

func (h *FilesHandler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("path"))
	if name == "" {
		http.NotFound(w, r)
		return
	}
	data, stored, err := h.svc.Download(r.Context(), name)
	if err != nil {
		h.writeRawError(w, name, err)
		return
	}
	ct := artifact.ContentTypeForName(name)
	if ct == artifact.DefaultContentType && stored != "" {
		ct = stored
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", proxyCacheControl)
	w.Header().Set("Content-Disposition", "inline")
	_, _ = w.Write(data)
}

func (h *FilesHandler) writeRawError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, objectstore.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	log.Printf("handler: read object failed object=%s err=%v", name, err)
	w.WriteHeader(http.StatusInternalServerError)
}

func (h *FilesHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	const op = "file info"
	name := queryParam(r, "objectName")
	if name == "" {
		writeError(w, op, service.Invalid("objectName", "is required"))
		return
	}
	info, err := h.svc.Info(r.Context(), name)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeSuccess(w, op+" succeeded", info)
}

func (h *FilesHandler) HandleExists(w http.ResponseWriter, r *http.Request) {
	const op = "file exists"
	name := queryParam(r, "objectName")
	if name == "" {
		writeError(w, op, service.Invalid("objectName", "is required"))
		return
	}
	ok, err := h.svc.Exists(r.Context(), name)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeSuccess(w, op+" succeeded", ok)
}

func (h *FilesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "file delete"
	name := queryParam(r, "objectName")
	if name == "" {
		writeError(w, op, service.Invalid("objectName", "is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), name); err != nil {
		writeError(w, op, err)
		return
	}
	writeSuccess(w, op+" succeeded", name)
}

func (h *FilesHandler) HandlePresign(w http.ResponseWriter, r *http.Request) {
	const op = "presigned url"
	name := queryParam(r, "objectName")
	if name == "" {
		writeError(w, op, service.Invalid("objectName", "is required"))
		return
	}
	seconds := defaultPresignSeconds
	if raw := queryParam(r, "expiry"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, op, service.Invalid("expiry", "must be a positive number of seconds"))
			return
		}
		seconds = v
	}
	url, err := h.svc.Presign(r.Context(), name, time.Duration(seconds)*time.Second)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeSuccess(w, op+" generated", map[string]string{
		"objectName":   name,
		"presignedUrl": url,
		"expiry":       strconv.Itoa(seconds),
	})
}
