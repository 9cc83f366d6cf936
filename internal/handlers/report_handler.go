package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ReportHandler records moderation reports
type ReportHandler struct {
	reportRepository repositories.ReportRepository
	log              *zap.Logger
}

func NewReportHandler(reportRepo repositories.ReportRepository, log *zap.Logger) *ReportHandler {
	return &ReportHandler{reportRepository: reportRepo, log: log}
}

func (h *ReportHandler) RegisterReportRoutes(private *echo.Group) {
	private.POST("/reports", h.Create)
}

func (h *ReportHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateReportRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	r := &models.Report{
		ReporterUserID: userID,
		TargetType:     req.TargetType,
		TargetID:       strings.TrimSpace(req.TargetID),
		Reason:         strings.TrimSpace(req.Reason),
	}
	if err := h.reportRepository.CreateReport(c.Request().Context(), r); err != nil {
		return storeError(h.log, err, "Report")
	}
	h.log.Info("report filed", zap.String("target_type", r.TargetType), zap.String("target_id", r.TargetID))
	return respond(c, http.StatusCreated, r)
}
