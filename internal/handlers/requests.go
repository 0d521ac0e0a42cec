package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/scheduling"
	"clinic-app-server/internal/utils"
)

// RequestHandler handles consultation and interview intake requests.
type RequestHandler struct {
	DB *gorm.DB
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(db *gorm.DB) *RequestHandler {
	return &RequestHandler{DB: db}
}

// CreateConsultationRequest represents the public consultation intake form.
type CreateConsultationRequest struct {
	ParentName       string `json:"parentName" binding:"required"`
	ContactEmail     string `json:"contactEmail" binding:"required,email"`
	ContactPhone     string `json:"contactPhone"`
	ChildName        string `json:"childName" binding:"required"`
	ChildDateOfBirth string `json:"childDateOfBirth"` // YYYY-MM-DD
	Reason           string `json:"reason" binding:"required"`
}

// CreateConsultationRequest handles the public consultation intake form.
func (h *RequestHandler) CreateConsultationRequest(c *gin.Context) {
	var req CreateConsultationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	request := models.ConsultationRequest{
		ParentName:   req.ParentName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		ChildName:    req.ChildName,
		Reason:       req.Reason,
		Status:       models.RequestPending,
	}
	if req.ChildDateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.ChildDateOfBirth)
		if err != nil {
			utils.BadRequest(c, "Invalid childDateOfBirth, expected YYYY-MM-DD")
			return
		}
		request.ChildDateOfBirth = &dob
	}

	if err := h.DB.Create(&request).Error; err != nil {
		utils.InternalServerError(c, "Failed to create consultation request: "+err.Error())
		return
	}

	utils.Created(c, "Consultation request created successfully", request)
}

// CreateInterviewRequest represents the interview intake form.
type CreateInterviewRequest struct {
	ConsultationRequestID *string `json:"consultationRequestId" binding:"omitempty,uuid"`
	ParentName            string  `json:"parentName" binding:"required"`
	ContactEmail          string  `json:"contactEmail" binding:"required,email"`
	ContactPhone          string  `json:"contactPhone"`
	ChildName             string  `json:"childName" binding:"required"`
	Notes                 string  `json:"notes"`
}

// CreateInterviewRequest handles creating an interview intake record.
func (h *RequestHandler) CreateInterviewRequest(c *gin.Context) {
	var req CreateInterviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	request := models.InterviewRequest{
		ConsultationRequestID: req.ConsultationRequestID,
		ParentName:            req.ParentName,
		ContactEmail:          req.ContactEmail,
		ContactPhone:          req.ContactPhone,
		ChildName:             req.ChildName,
		Notes:                 req.Notes,
		Status:                models.RequestPending,
	}

	if err := h.DB.Create(&request).Error; err != nil {
		utils.InternalServerError(c, "Failed to create interview request: "+err.Error())
		return
	}

	utils.Created(c, "Interview request created successfully", request)
}

// GetConsultationRequests lists consultation requests, optionally by status.
func (h *RequestHandler) GetConsultationRequests(c *gin.Context) {
	query := h.DB.Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.ConsultationRequest
	if err := query.Find(&requests).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch consultation requests: "+err.Error())
		return
	}

	utils.Success(c, "Consultation requests fetched successfully", requests)
}

// GetInterviewRequests lists interview requests, optionally by status.
func (h *RequestHandler) GetInterviewRequests(c *gin.Context) {
	query := h.DB.Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.InterviewRequest
	if err := query.Find(&requests).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch interview requests: "+err.Error())
		return
	}

	utils.Success(c, "Interview requests fetched successfully", requests)
}

// ScheduleRequestBody represents the slot assigned to an intake request.
type ScheduleRequestBody struct {
	TherapistID string `json:"therapistId" binding:"required,uuid"`
	Date        string `json:"date" binding:"required"`
	StartTime   string `json:"startTime" binding:"required"`
	EndTime     string `json:"endTime" binding:"required"`
}

// ScheduleConsultationRequest assigns a therapist and slot to a pending
// consultation request, booking a conflict-checked CONSULTA appointment.
func (h *RequestHandler) ScheduleConsultationRequest(c *gin.Context) {
	var req ScheduleRequestBody
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var request models.ConsultationRequest
	if err := h.DB.First(&request, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Consultation request not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	appointment, err := h.scheduleIntake(c, req, request.Status, models.TypeConsulta, func(tx *gorm.DB, appointment *models.Appointment) error {
		request.Status = models.RequestScheduled
		request.AssignedTherapistID = &req.TherapistID
		request.AppointmentID = &appointment.ID
		request.ScheduledDate = &req.Date
		request.ScheduledStartTime = &req.StartTime
		request.ScheduledEndTime = &req.EndTime
		return tx.Save(&request).Error
	})
	if err != nil {
		return // response already written
	}

	utils.Success(c, "Consultation request scheduled successfully", gin.H{
		"request":     request,
		"appointment": appointment,
	})
}

// ScheduleInterviewRequest assigns a therapist and slot to a pending
// interview request, booking a conflict-checked ENTREVISTA appointment.
func (h *RequestHandler) ScheduleInterviewRequest(c *gin.Context) {
	var req ScheduleRequestBody
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var request models.InterviewRequest
	if err := h.DB.First(&request, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Interview request not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	appointment, err := h.scheduleIntake(c, req, request.Status, models.TypeEntrevista, func(tx *gorm.DB, appointment *models.Appointment) error {
		request.Status = models.RequestScheduled
		request.AssignedTherapistID = &req.TherapistID
		request.AppointmentID = &appointment.ID
		request.ScheduledDate = &req.Date
		request.ScheduledStartTime = &req.StartTime
		request.ScheduledEndTime = &req.EndTime
		return tx.Save(&request).Error
	})
	if err != nil {
		return // response already written
	}

	utils.Success(c, "Interview request scheduled successfully", gin.H{
		"request":     request,
		"appointment": appointment,
	})
}

// scheduleIntake validates the transition and slot, then books the
// intake appointment through the shared conflict checker. The booking
// and the caller's request-row update (link) commit in one transaction
// so a failed update cannot leave an orphaned appointment holding the
// slot. It writes the error response itself and returns a non-nil
// error when booking failed.
func (h *RequestHandler) scheduleIntake(c *gin.Context, req ScheduleRequestBody, current models.RequestStatus, apptType models.AppointmentType, link func(tx *gorm.DB, appointment *models.Appointment) error) (*models.Appointment, error) {
	if err := scheduling.EnsureRequestTransition(current, models.RequestScheduled); err != nil {
		utils.BadRequest(c, err.Error())
		return nil, err
	}
	if err := scheduling.ValidateSlot(req.Date, req.StartTime, req.EndTime); err != nil {
		utils.BadRequest(c, err.Error())
		return nil, err
	}

	var therapist models.User
	if err := h.DB.Where("id = ? AND role = ?", req.TherapistID, models.RoleTherapist).First(&therapist).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Therapist not found")
		} else {
			utils.InternalServerError(c, "Database error verifying therapist")
		}
		return nil, err
	}

	// Intake bookings have no patient record yet.
	appointment := models.Appointment{
		TherapistID: req.TherapistID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Type:        apptType,
		Status:      models.AppointmentScheduled,
	}

	var conflictErr *scheduling.ConflictError
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := scheduling.FindConflict(tx, req.TherapistID, req.Date, req.StartTime, req.EndTime, "")
		if err != nil {
			return err
		}
		if existing != nil {
			return &scheduling.ConflictError{Existing: existing}
		}
		if err := tx.Create(&appointment).Error; err != nil {
			return err
		}
		return link(tx, &appointment)
	})
	if err != nil {
		if errors.As(err, &conflictErr) {
			utils.Conflict(c, conflictErr.Error())
			return nil, err
		}
		log.Error().Err(err).Msg("failed to schedule intake request")
		utils.InternalServerError(c, "Failed to schedule intake request")
		return nil, err
	}

	return &appointment, nil
}

// UpdateConsultationRequestStatus completes or cancels a consultation request.
func (h *RequestHandler) UpdateConsultationRequestStatus(c *gin.Context) {
	var req struct {
		Status models.RequestStatus `json:"status" binding:"required,oneof=COMPLETED CANCELLED"`
	}
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var request models.ConsultationRequest
	if err := h.DB.First(&request, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Consultation request not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if err := scheduling.EnsureRequestTransition(request.Status, req.Status); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	request.Status = req.Status
	if err := h.DB.Save(&request).Error; err != nil {
		utils.InternalServerError(c, "Failed to update consultation request")
		return
	}

	utils.Success(c, "Consultation request updated successfully", request)
}

// UpdateInterviewRequestStatus completes or cancels an interview request.
func (h *RequestHandler) UpdateInterviewRequestStatus(c *gin.Context) {
	var req struct {
		Status models.RequestStatus `json:"status" binding:"required,oneof=COMPLETED CANCELLED"`
	}
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var request models.InterviewRequest
	if err := h.DB.First(&request, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Interview request not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if err := scheduling.EnsureRequestTransition(request.Status, req.Status); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	request.Status = req.Status
	if err := h.DB.Save(&request).Error; err != nil {
		utils.InternalServerError(c, "Failed to update interview request")
		return
	}

	utils.Success(c, "Interview request updated successfully", request)
}
