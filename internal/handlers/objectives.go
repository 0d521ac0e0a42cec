package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
)

// ErrNoCompletedSession is returned when progress is recorded for a
// patient who has no completed appointment with the therapist yet.
var ErrNoCompletedSession = errors.New("patient has no completed session with this therapist")

// ObjectiveHandler handles patient objective and progress requests.
type ObjectiveHandler struct {
	DB *gorm.DB
}

// NewObjectiveHandler creates a new ObjectiveHandler.
func NewObjectiveHandler(db *gorm.DB) *ObjectiveHandler {
	return &ObjectiveHandler{DB: db}
}

// CreateObjectiveRequest represents the request body for creating an objective.
type CreateObjectiveRequest struct {
	PatientID   string  `json:"patientId" binding:"required,uuid"`
	ProposalID  *string `json:"proposalId" binding:"omitempty,uuid"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
}

// CreateObjective handles creating a therapeutic objective (therapist).
func (h *ObjectiveHandler) CreateObjective(c *gin.Context) {
	var req CreateObjectiveRequest
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

	objective := models.PatientObjective{
		PatientID:   req.PatientID,
		TherapistID: therapistID,
		ProposalID:  req.ProposalID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.ObjectivePending,
	}

	if err := h.DB.Create(&objective).Error; err != nil {
		utils.InternalServerError(c, "Failed to create objective: "+err.Error())
		return
	}

	utils.Created(c, "Objective created successfully", objective)
}

// GetObjectivesForPatient handles fetching objectives for a patient.
func (h *ObjectiveHandler) GetObjectivesForPatient(c *gin.Context) {
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
		utils.Forbidden(c, "You are not authorized to view these objectives")
		return
	}

	query := h.DB.Preload("Progress", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc")
	}).Where("patient_id = ?", patientID)
	if userRole == models.RoleTherapist {
		query = query.Where("therapist_id = ?", userID)
	}

	var objectives []models.PatientObjective
	if err := query.Order("created_at asc").Find(&objectives).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch objectives: "+err.Error())
		return
	}

	utils.Success(c, "Objectives fetched successfully", objectives)
}

// UpdateObjectiveStatusRequest represents a manual objective status change.
type UpdateObjectiveStatusRequest struct {
	Status models.ObjectiveStatus `json:"status" binding:"required,oneof=PAUSED CANCELLED"`
}

// UpdateObjectiveStatus handles pausing or cancelling an objective.
// PENDING, IN_PROGRESS and COMPLETED are derived from progress entries
// and cannot be set by hand.
func (h *ObjectiveHandler) UpdateObjectiveStatus(c *gin.Context) {
	var req UpdateObjectiveStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var objective models.PatientObjective
	if err := h.DB.First(&objective, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Objective not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	therapistID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleTherapist && objective.TherapistID != therapistID {
		utils.Forbidden(c, "You are not authorized to update this objective")
		return
	}

	objective.Status = req.Status
	if err := h.DB.Save(&objective).Error; err != nil {
		utils.InternalServerError(c, "Failed to update objective")
		return
	}

	utils.Success(c, "Objective status updated successfully", objective)
}

// RecordProgressRequest represents the request body for recording progress.
type RecordProgressRequest struct {
	ObjectiveID string `json:"objectiveId" binding:"required,uuid"`
	Percentage  *int   `json:"percentage" binding:"required,min=0,max=100"`
	Comment     string `json:"comment"`
}

// RecordProgressResponse pairs the written progress entry with the
// session it was recorded against.
type RecordProgressResponse struct {
	Progress    models.ObjectiveProgress `json:"progress"`
	Objective   models.PatientObjective  `json:"objective"`
	Appointment models.Appointment       `json:"appointment"`
}

// RecordProgress upserts a progress entry for the objective against the
// patient's latest completed session with the objective's therapist.
// At most one entry exists per objective per appointment; re-recording
// against the same session overwrites it. The objective status is
// re-derived from the just-written percentage, so a regression from 100
// to a lower value reverts COMPLETED back to IN_PROGRESS.
func (h *ObjectiveHandler) RecordProgress(c *gin.Context) {
	var req RecordProgressRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	therapistID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Therapist ID not found in token")
		return
	}

	var objective models.PatientObjective
	if err := h.DB.First(&objective, "id = ?", req.ObjectiveID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Objective not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleTherapist && objective.TherapistID != therapistID {
		utils.Forbidden(c, "You are not authorized to record progress for this objective")
		return
	}

	var resp RecordProgressResponse
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		// Latest completed session for this patient+therapist pair.
		var appointment models.Appointment
		if err := tx.Where("patient_id = ? AND therapist_id = ? AND status = ?",
			objective.PatientID, objective.TherapistID, models.AppointmentCompleted).
			Order("date desc, start_time desc").
			First(&appointment).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNoCompletedSession
			}
			return err
		}

		var progress models.ObjectiveProgress
		err := tx.Where("objective_id = ? AND appointment_id = ?", objective.ID, appointment.ID).First(&progress).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			progress = models.ObjectiveProgress{
				ObjectiveID:   objective.ID,
				AppointmentID: appointment.ID,
				Percentage:    *req.Percentage,
				Comment:       req.Comment,
				RecordedByID:  therapistID,
			}
			if err := tx.Create(&progress).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			progress.Percentage = *req.Percentage
			progress.Comment = req.Comment
			progress.RecordedByID = therapistID
			if err := tx.Save(&progress).Error; err != nil {
				return err
			}
		}

		objective.Status = models.ObjectiveStatusFor(*req.Percentage)
		if err := tx.Save(&objective).Error; err != nil {
			return err
		}

		resp = RecordProgressResponse{
			Progress:    progress,
			Objective:   objective,
			Appointment: appointment,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoCompletedSession) {
			utils.BadRequest(c, ErrNoCompletedSession.Error())
			return
		}
		log.Error().Err(err).Msg("failed to record objective progress")
		utils.InternalServerError(c, "Failed to record objective progress")
		return
	}

	utils.Success(c, "Objective progress recorded successfully", resp)
}
