package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/scheduling"
	"clinic-app-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB *gorm.DB
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB) *AppointmentHandler {
	return &AppointmentHandler{DB: db}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	TherapistID string  `json:"therapistId" binding:"required,uuid"`
	PatientID   *string `json:"patientId" binding:"omitempty,uuid"` // optional for intake-only bookings
	Date        string  `json:"date" binding:"required"`
	StartTime   string  `json:"startTime" binding:"required"`
	EndTime     string  `json:"endTime" binding:"required"`
	Type        string  `json:"type" binding:"required,oneof=CONSULTA ENTREVISTA SEGUIMIENTO TERAPIA"`
	Notes       string  `json:"notes"`
}

// CreateAppointment handles booking a new appointment slot.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := scheduling.ValidateSlot(req.Date, req.StartTime, req.EndTime); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	// Verify therapist exists and is a therapist
	var therapist models.User
	if err := h.DB.Where("id = ? AND role = ?", req.TherapistID, models.RoleTherapist).First(&therapist).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Therapist not found")
		} else {
			utils.InternalServerError(c, "Database error verifying therapist")
		}
		return
	}

	if req.PatientID != nil {
		var patient models.Patient
		if err := h.DB.First(&patient, "id = ?", *req.PatientID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "Patient not found")
			} else {
				utils.InternalServerError(c, "Database error verifying patient")
			}
			return
		}

		// Parents can only book for their own children
		userID, _ := middleware.GetUserIDFromContext(c)
		userRole, _ := middleware.GetUserRoleFromContext(c)
		if userRole == models.RoleParent && patient.ParentID != userID {
			utils.Forbidden(c, "Parents can only book appointments for their own children")
			return
		}
	}

	appointment := models.Appointment{
		TherapistID: req.TherapistID,
		PatientID:   req.PatientID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Type:        models.AppointmentType(req.Type),
		Status:      models.AppointmentScheduled,
		Notes:       req.Notes,
	}

	// Conflict check and insert run in one transaction so a concurrent
	// booking for the same slot cannot slip between them.
	var conflictErr *scheduling.ConflictError
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := scheduling.FindConflict(tx, req.TherapistID, req.Date, req.StartTime, req.EndTime, "")
		if err != nil {
			return err
		}
		if existing != nil {
			return &scheduling.ConflictError{Existing: existing}
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		if errors.As(err, &conflictErr) {
			utils.Conflict(c, conflictErr.Error())
			return
		}
		log.Error().Err(err).Msg("failed to create appointment")
		utils.InternalServerError(c, "Failed to create appointment")
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in user.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Patient").Preload("Therapist").Order("date asc, start_time asc")
	if date := c.Query("date"); date != "" {
		query = query.Where("date = ?", date)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var appointments []models.Appointment
	var err error

	switch userRole {
	case models.RoleTherapist:
		err = query.Where("therapist_id = ?", userID).Find(&appointments).Error
	case models.RoleParent:
		// Parents see appointments for their own children only.
		var patientIDs []string
		if err := h.DB.Model(&models.Patient{}).Where("parent_id = ?", userID).Pluck("id", &patientIDs).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch patients")
			return
		}
		err = query.Where("patient_id IN ?", patientIDs).Find(&appointments).Error
	case models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments")
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Therapist").First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if !h.canAccessAppointment(c, &appointment) {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// GetAppointmentHistory returns the reschedule chain of an appointment,
// oldest hop first.
func (h *AppointmentHandler) GetAppointmentHistory(c *gin.Context) {
	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if !h.canAccessAppointment(c, &appointment) {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	var history []models.AppointmentReschedule
	if err := h.DB.Where("appointment_id = ?", appointment.ID).Order("created_at asc").Find(&history).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointment history")
		return
	}

	utils.Success(c, "Appointment history fetched successfully", gin.H{
		"appointment": appointment,
		"reschedules": history,
	})
}

// UpdateAppointmentStatusRequest represents the request body for a status change.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=CONFIRMED IN_PROGRESS COMPLETED CANCELLED"`
	Notes  string                   `json:"notes"`
}

// UpdateAppointmentStatus moves an appointment through its normal lifecycle.
// NO_SHOW and RESCHEDULED have dedicated endpoints because they require
// extra metadata (absence reason, new slot).
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	// Admins and the involved therapist drive the lifecycle; parents may
	// only cancel.
	canUpdate := userRole == models.RoleAdmin ||
		(userRole == models.RoleTherapist && userID == appointment.TherapistID)
	if userRole == models.RoleParent {
		if req.Status != models.AppointmentCancelled {
			utils.Forbidden(c, "Parents can only cancel appointments")
			return
		}
		canUpdate = h.isParentOfAppointmentPatient(userID, &appointment)
	}
	if !canUpdate {
		utils.Forbidden(c, "You are not authorized to update this appointment's status")
		return
	}

	// The transition guard runs server-side regardless of what the client
	// UI permitted.
	if err := scheduling.EnsureAppointmentTransition(appointment.Status, req.Status); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	// A RESCHEDULED appointment does not hold its new slot until it is
	// confirmed, so confirming re-runs the conflict check against any
	// booking made in the meantime.
	needsConflictCheck := appointment.Status == models.AppointmentRescheduled &&
		req.Status == models.AppointmentConfirmed

	var conflictErr *scheduling.ConflictError
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if needsConflictCheck {
			existing, err := scheduling.FindConflict(tx, appointment.TherapistID, appointment.Date, appointment.StartTime, appointment.EndTime, appointment.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return &scheduling.ConflictError{Existing: existing}
			}
		}

		appointment.Status = req.Status
		if req.Notes != "" {
			appointment.Notes = req.Notes
		}
		return tx.Save(&appointment).Error
	})
	if err != nil {
		if errors.As(err, &conflictErr) {
			utils.Conflict(c, conflictErr.Error())
			return
		}
		log.Error().Err(err).Msg("failed to update appointment status")
		utils.InternalServerError(c, "Failed to update appointment status")
		return
	}

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// MarkAbsentRequest represents the request body for marking a no-show.
type MarkAbsentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// MarkAbsent marks an appointment as NO_SHOW, recording who did it and why.
func (h *AppointmentHandler) MarkAbsent(c *gin.Context) {
	var req MarkAbsentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if err := scheduling.EnsureAppointmentTransition(appointment.Status, models.AppointmentNoShow); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	now := time.Now()
	appointment.Status = models.AppointmentNoShow
	appointment.AbsenceReason = &req.Reason
	appointment.MarkedAbsentByID = &userID
	appointment.MarkedAbsentAt = &now

	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to mark appointment as absent")
		return
	}

	utils.Success(c, "Appointment marked as absent", appointment)
}

// RescheduleAppointmentRequest represents the request body for rescheduling.
type RescheduleAppointmentRequest struct {
	NewDate      string `json:"newDate" binding:"required"`
	NewStartTime string `json:"newStartTime" binding:"required"`
	NewEndTime   string `json:"newEndTime" binding:"required"`
	Reason       string `json:"reason"`
}

// RescheduleAppointment moves an appointment to a new, non-conflicting slot.
// The row is overwritten in place; each hop is recorded in
// AppointmentReschedule so the full chain stays queryable.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := scheduling.ValidateSlot(req.NewDate, req.NewStartTime, req.NewEndTime); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleTherapist && userID != appointment.TherapistID {
		utils.Forbidden(c, "Therapists can only reschedule their own appointments")
		return
	}

	if err := scheduling.EnsureAppointmentTransition(appointment.Status, models.AppointmentRescheduled); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	// Guard, conflict check, overwrite and history row are one atomic
	// unit: a failed conflict check leaves the appointment untouched.
	var conflictErr *scheduling.ConflictError
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := scheduling.FindConflict(tx, appointment.TherapistID, req.NewDate, req.NewStartTime, req.NewEndTime, appointment.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &scheduling.ConflictError{Existing: existing}
		}

		hop := models.AppointmentReschedule{
			AppointmentID:   appointment.ID,
			FromDate:        appointment.Date,
			FromStartTime:   appointment.StartTime,
			FromEndTime:     appointment.EndTime,
			ToDate:          req.NewDate,
			ToStartTime:     req.NewStartTime,
			ToEndTime:       req.NewEndTime,
			RescheduledByID: userID,
			Reason:          req.Reason,
		}
		if err := tx.Create(&hop).Error; err != nil {
			return err
		}

		priorDate := appointment.Date
		appointment.RescheduledFrom = &priorDate
		appointment.RescheduledTo = &req.NewDate
		appointment.Date = req.NewDate
		appointment.StartTime = req.NewStartTime
		appointment.EndTime = req.NewEndTime
		appointment.Status = models.AppointmentRescheduled
		return tx.Save(&appointment).Error
	})
	if err != nil {
		if errors.As(err, &conflictErr) {
			utils.Conflict(c, conflictErr.Error())
			return
		}
		log.Error().Err(err).Msg("failed to reschedule appointment")
		utils.InternalServerError(c, "Failed to reschedule appointment")
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appointment)
}

func (h *AppointmentHandler) canAccessAppointment(c *gin.Context, appointment *models.Appointment) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	switch userRole {
	case models.RoleAdmin:
		return true
	case models.RoleTherapist:
		return userID == appointment.TherapistID
	case models.RoleParent:
		return h.isParentOfAppointmentPatient(userID, appointment)
	}
	return false
}

func (h *AppointmentHandler) isParentOfAppointmentPatient(userID string, appointment *models.Appointment) bool {
	if appointment.PatientID == nil {
		return false
	}
	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", *appointment.PatientID).Error; err != nil {
		return false
	}
	return patient.ParentID == userID
}
