package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/services"
	"clinic-app-server/internal/utils"
)

// ReportHandler handles generated report requests.
type ReportHandler struct {
	DB      *gorm.DB
	Storage *services.StorageService // nil when object storage is not configured
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(db *gorm.DB, storage *services.StorageService) *ReportHandler {
	return &ReportHandler{DB: db, Storage: storage}
}

// CreateReportRequest represents the request body for creating a report.
type CreateReportRequest struct {
	PatientID  string `json:"patientId" binding:"required,uuid"`
	Type       string `json:"type" binding:"required,oneof=SESSION PROGRESS DISCHARGE OTHER"`
	ReportDate string `json:"reportDate"` // YYYY-MM-DD, defaults to today
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// CreateReport handles creating a report (therapist).
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	therapistID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Therapist ID not found in token")
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", req.PatientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient")
		}
		return
	}

	reportDate := time.Now()
	if req.ReportDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ReportDate)
		if err != nil {
			utils.BadRequest(c, "Invalid reportDate, expected YYYY-MM-DD")
			return
		}
		reportDate = parsed
	}

	report := models.Report{
		PatientID:   req.PatientID,
		TherapistID: therapistID,
		Type:        models.ReportType(req.Type),
		ReportDate:  reportDate,
		Title:       req.Title,
		Content:     req.Content,
	}

	if err := h.DB.Create(&report).Error; err != nil {
		utils.InternalServerError(c, "Failed to create report: "+err.Error())
		return
	}

	utils.Created(c, "Report created successfully", report)
}

// GetReportsForPatient handles fetching all reports for a patient.
func (h *ReportHandler) GetReportsForPatient(c *gin.Context) {
	patientID := c.Param("patientId")

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleParent && patient.ParentID != userID {
		utils.Forbidden(c, "You are not authorized to view these reports")
		return
	}

	var reports []models.Report
	if err := h.DB.Where("patient_id = ?", patientID).Order("report_date desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	utils.Success(c, "Reports fetched successfully", reports)
}

// GetReportByID handles fetching a single report.
func (h *ReportHandler) GetReportByID(c *gin.Context) {
	var report models.Report
	if err := h.DB.First(&report, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleParent {
		var patient models.Patient
		if err := h.DB.First(&patient, "id = ?", report.PatientID).Error; err != nil || patient.ParentID != userID {
			utils.Forbidden(c, "You are not authorized to view this report")
			return
		}
	}

	utils.Success(c, "Report fetched successfully", report)
}

// UpdateReportRequest represents the request body for updating a report.
type UpdateReportRequest struct {
	Type    string `json:"type,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// UpdateReport handles updating a report (authoring therapist or admin).
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var report models.Report
	if err := h.DB.First(&report, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && report.TherapistID != userID {
		utils.Forbidden(c, "You are not authorized to update this report")
		return
	}

	if req.Type != "" {
		report.Type = models.ReportType(req.Type)
	}
	if req.Title != "" {
		report.Title = req.Title
	}
	if req.Content != "" {
		report.Content = req.Content
	}

	if err := h.DB.Save(&report).Error; err != nil {
		utils.InternalServerError(c, "Failed to update report: "+err.Error())
		return
	}

	utils.Success(c, "Report updated successfully", report)
}

// DeleteReport handles deleting a report (admin).
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	var report models.Report
	if err := h.DB.First(&report, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if err := h.DB.Delete(&report).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete report: "+err.Error())
		return
	}

	utils.Success(c, "Report deleted successfully", nil)
}

// UploadReportDocument uploads a document for a report to object storage
// and stores its URL on the report.
func (h *ReportHandler) UploadReportDocument(c *gin.Context) {
	if h.Storage == nil {
		utils.InternalServerError(c, "Object storage is not configured")
		return
	}

	var report models.Report
	if err := h.DB.First(&report, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && report.TherapistID != userID {
		utils.Forbidden(c, "You are not authorized to modify this report")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Error retrieving file from form: "+err.Error())
		return
	}

	url, err := h.Storage.UploadFileFromHeader(c.Request.Context(), fileHeader)
	if err != nil {
		log.Error().Err(err).Str("report_id", report.ID).Msg("document upload failed")
		utils.InternalServerError(c, "Failed to upload document")
		return
	}

	report.DocumentURL = url
	if err := h.DB.Save(&report).Error; err != nil {
		utils.InternalServerError(c, "Failed to save document URL")
		return
	}

	utils.Success(c, "Document uploaded successfully", report)
}
