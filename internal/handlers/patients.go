package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
)

// PatientHandler handles patient record requests.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// CreatePatientRequest represents the request body for creating a patient.
type CreatePatientRequest struct {
	FirstName           string  `json:"firstName" binding:"required"`
	LastName            string  `json:"lastName" binding:"required"`
	DateOfBirth         string  `json:"dateOfBirth" binding:"required"` // YYYY-MM-DD
	ParentID            string  `json:"parentId" binding:"required,uuid"`
	AssignedTherapistID *string `json:"assignedTherapistId" binding:"omitempty,uuid"`
	School              string  `json:"school"`
	Grade               string  `json:"grade"`
	Diagnosis           string  `json:"diagnosis"`
	Notes               string  `json:"notes"`
}

// CreatePatient handles creating a new patient record (admin).
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		utils.BadRequest(c, "Invalid dateOfBirth, expected YYYY-MM-DD")
		return
	}

	var parent models.User
	if err := h.DB.Where("id = ? AND role = ?", req.ParentID, models.RoleParent).First(&parent).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Parent account not found")
		} else {
			utils.InternalServerError(c, "Database error verifying parent")
		}
		return
	}

	if req.AssignedTherapistID != nil {
		var therapist models.User
		if err := h.DB.Where("id = ? AND role = ?", *req.AssignedTherapistID, models.RoleTherapist).First(&therapist).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "Therapist not found")
			} else {
				utils.InternalServerError(c, "Database error verifying therapist")
			}
			return
		}
	}

	patient := models.Patient{
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		DateOfBirth:         dob,
		ParentID:            req.ParentID,
		AssignedTherapistID: req.AssignedTherapistID,
		School:              req.School,
		Grade:               req.Grade,
		Diagnosis:           req.Diagnosis,
		Notes:               req.Notes,
	}

	if err := h.DB.Create(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	utils.Created(c, "Patient created successfully", patient.Summarize())
}

// GetPatients handles fetching patients scoped by the caller's role.
func (h *PatientHandler) GetPatients(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var patients []models.Patient
	var err error

	switch userRole {
	case models.RoleAdmin:
		err = h.DB.Order("last_name asc").Find(&patients).Error
	case models.RoleTherapist:
		err = h.DB.Where("assigned_therapist_id = ?", userID).Order("last_name asc").Find(&patients).Error
	case models.RoleParent:
		err = h.DB.Where("parent_id = ?", userID).Order("last_name asc").Find(&patients).Error
	default:
		utils.Forbidden(c, "User role not permitted to view patients")
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	summaries := make([]models.PatientSummary, len(patients))
	for i, p := range patients {
		summaries[i] = p.Summarize()
	}

	utils.Success(c, "Patients fetched successfully", summaries)
}

// GetPatientByID handles fetching a single patient.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isParent := userRole == models.RoleParent && patient.ParentID == userID
	isAssignedTherapist := userRole == models.RoleTherapist &&
		patient.AssignedTherapistID != nil && *patient.AssignedTherapistID == userID

	if userRole != models.RoleAdmin && !isParent && !isAssignedTherapist {
		utils.Forbidden(c, "You are not authorized to view this patient")
		return
	}

	utils.Success(c, "Patient fetched successfully", patient.Summarize())
}

// UpdatePatientRequest represents the request body for updating a patient.
type UpdatePatientRequest struct {
	FirstName           string  `json:"firstName"`
	LastName            string  `json:"lastName"`
	DateOfBirth         string  `json:"dateOfBirth"`
	AssignedTherapistID *string `json:"assignedTherapistId" binding:"omitempty,uuid"`
	School              string  `json:"school"`
	Grade               string  `json:"grade"`
	Diagnosis           string  `json:"diagnosis"`
	Notes               string  `json:"notes"`
}

// UpdatePatient handles updating a patient record (admin or assigned therapist).
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	isAssignedTherapist := userRole == models.RoleTherapist &&
		patient.AssignedTherapistID != nil && *patient.AssignedTherapistID == userID
	if userRole != models.RoleAdmin && !isAssignedTherapist {
		utils.Forbidden(c, "You are not authorized to update this patient")
		return
	}

	if req.FirstName != "" {
		patient.FirstName = req.FirstName
	}
	if req.LastName != "" {
		patient.LastName = req.LastName
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			utils.BadRequest(c, "Invalid dateOfBirth, expected YYYY-MM-DD")
			return
		}
		patient.DateOfBirth = dob
	}
	if req.AssignedTherapistID != nil {
		var therapist models.User
		if err := h.DB.Where("id = ? AND role = ?", *req.AssignedTherapistID, models.RoleTherapist).First(&therapist).Error; err != nil {
			utils.NotFound(c, "Therapist not found")
			return
		}
		patient.AssignedTherapistID = req.AssignedTherapistID
	}
	if req.School != "" {
		patient.School = req.School
	}
	if req.Grade != "" {
		patient.Grade = req.Grade
	}
	if req.Diagnosis != "" {
		patient.Diagnosis = req.Diagnosis
	}
	if req.Notes != "" {
		patient.Notes = req.Notes
	}

	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient updated successfully", patient.Summarize())
}

// DeletePatient handles deleting a patient record (admin).
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if err := h.DB.Delete(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient deleted successfully", nil)
}
