package handlers

import (
	"context"
	stderrors "errors"
	"mime/multipart"
	"net/http"

	"github.com/nijaru/vid-text/errors"
	"github.com/nijaru/vid-text/middleware"
	"github.com/nijaru/vid-text/pipeline"
	"github.com/nijaru/vid-text/upload"
	"github.com/nijaru/vid-text/utils"
	"github.com/nijaru/vid-text/validation"
	"github.com/sirupsen/logrus"
)

// FileField is the multipart field name the web page uses.
const FileField = "video"

// multipartMemory is how much of a form is held in memory before spilling to disk.
const multipartMemory = 32 << 20

type Processor interface {
	Process(ctx context.Context, video *upload.Video) (*pipeline.Result, error)
}

type TranscribeResponse struct {
	Transcript string `json:"transcript"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

type Handler struct {
	validator *validation.Validator
	store     *upload.Store
	processor Processor
	mode      string
}

func New(validator *validation.Validator, store *upload.Store, processor Processor, mode string) *Handler {
	return &Handler{
		validator: validator,
		store:     store,
		processor: processor,
		mode:      mode,
	}
}

// Routes registers the API on mux. guards wrap only the upload endpoint.
func (h *Handler) Routes(mux *http.ServeMux, guards ...func(http.Handler) http.Handler) {
	mux.Handle("POST /api/transcribe", middleware.Chain(http.HandlerFunc(h.Transcribe), guards...))
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("POST /api/transcribe-youtube", h.TranscribeYouTube)
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.Transcribe"
	logger := middleware.GetLogger(r.Context())

	if err := h.validator.ValidateRequest(r); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.validator.MaxBodyBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			utils.RespondWithError(w, errors.TooLarge(op, err, "File too large"))
			return
		}
		utils.RespondWithError(w, errors.Validation(op, err, "Invalid multipart form"))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.WithError(err).Warn("Failed to remove multipart temp files")
		}
	}()

	fh, err := singleFile(r.MultipartForm)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	if err := h.validator.ValidateFile(fh.Filename, fh.Size); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	video, err := h.save(fh)
	if err != nil {
		utils.RespondWithError(w, errors.Internal(op, err, "Failed to store upload"))
		return
	}

	logger.WithFields(logrus.Fields{
		"upload_id": video.ID,
		"filename":  video.OriginalName,
		"size":      video.Size,
	}).Info("Processing upload")

	res, err := h.processor.Process(r.Context(), video)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, TranscribeResponse{Transcript: res.Text})
}

func (h *Handler) save(fh *multipart.FileHeader) (*upload.Video, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.store.Save(f, fh.Filename, validation.Extension(fh.Filename))
}

// singleFile returns the one uploaded file regardless of its field name.
func singleFile(form *multipart.Form) (*multipart.FileHeader, error) {
	const op = "singleFile"

	var found []*multipart.FileHeader
	for _, files := range form.File {
		found = append(found, files...)
	}

	switch len(found) {
	case 0:
		return nil, errors.Validation(op, nil, "No video file provided")
	case 1:
		return found[0], nil
	default:
		return nil, errors.Validation(op, nil, "Exactly one video file must be provided")
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Mode: h.mode})
}

// TranscribeYouTube is reserved for a server-side YouTube flow that does not exist.
func (h *Handler) TranscribeYouTube(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithError(w, errors.NotImplemented("Handler.TranscribeYouTube", "YouTube transcription is not available"))
}
