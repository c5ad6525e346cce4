package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pablosanchi/consultation-backend/internal/domain/submission"
	"github.com/pablosanchi/consultation-backend/internal/middleware"
	"github.com/pablosanchi/consultation-backend/internal/service"
	"github.com/pablosanchi/consultation-backend/pkg/metrics"
)

// Prescription uploads are capped well above any realistic PDF size.
const maxPrescriptionSize = 10 << 20 // 10 MiB

type SubmissionHandler struct {
	submissionSvc *service.SubmissionService
	collector     *metrics.Collector
}

func NewSubmissionHandler(submissionSvc *service.SubmissionService, collector *metrics.Collector) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc, collector: collector}
}

type createSubmissionRequest struct {
	Title     string `json:"title"`
	Symptoms  string `json:"symptoms"`
	OtherInfo string `json:"other_info"`
}

func (h *SubmissionHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.submissionSvc.Create(c.Request.Context(), actor, &submission.CreateSubmissionCommand{
		Title:     req.Title,
		Symptoms:  req.Symptoms,
		OtherInfo: req.OtherInfo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.SubmissionsTotal.WithLabelValues("created").Inc()
	respond(c, http.StatusCreated, "Submission created successfully", sub)
}

func (h *SubmissionHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	sub, err := h.submissionSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Received submission successfully", sub)
}

func (h *SubmissionHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	q := &submission.ListSubmissionsQuery{
		Unclaimed: c.Query("unclaimed") == "true",
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("state"); raw != "" {
		state := submission.State(raw)
		if !state.IsValid() {
			respondError(c, http.StatusBadRequest, "invalid state filter")
			return
		}
		q.State = &state
	}

	page, err := h.submissionSvc.List(c.Request.Context(), actor, q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Received submissions successfully", gin.H{
		"submissions": page.Submissions,
		"total_count": page.TotalCount,
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total_pages": page.TotalPages,
	})
}

// Complete claims the submission for the acting doctor.
func (h *SubmissionHandler) Complete(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if _, err := h.submissionSvc.Complete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.SubmissionsTotal.WithLabelValues("completed").Inc()
	respond(c, http.StatusOK, "Doctor completed the submission successfully", nil)
}

// UploadPrescription accepts a multipart file in the "prescriptions" field.
func (h *SubmissionHandler) UploadPrescription(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("prescriptions")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "validation failed",
			Errors:  map[string]string{"prescriptions": "prescription file is required"},
		})
		return
	}
	if fileHeader.Size > maxPrescriptionSize {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "validation failed",
			Errors:  map[string]string{"prescriptions": "prescription file is too large"},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "reading uploaded file failed")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "reading uploaded file failed")
		return
	}

	key, err := h.submissionSvc.AttachPrescription(
		c.Request.Context(), actor, id, data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.PrescriptionsUploaded.Inc()
	respond(c, http.StatusOK, "File uploaded successfully", gin.H{"uuid": key})
}

func (h *SubmissionHandler) GetPrescription(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	url, err := h.submissionSvc.PrescriptionURL(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Received prescription successfully", gin.H{"url": url})
}

func (h *SubmissionHandler) DeletePrescription(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	key, err := h.submissionSvc.DeletePrescription(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.collector.PrescriptionsDeleted.Inc()
	respond(c, http.StatusOK, "Prescription deleted successfully", gin.H{"uuid": key})
}

func (h *SubmissionHandler) GetDoctorInformation(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	doctorID, ok := parseUUID(c, "doctorId")
	if !ok {
		return
	}

	info, err := h.submissionSvc.DoctorInformation(c.Request.Context(), actor, doctorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Received Doctor Information successfully", gin.H{
		"grade":      info.Grade,
		"speciality": info.Speciality,
	})
}
