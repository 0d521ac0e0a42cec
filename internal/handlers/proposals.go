package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/scheduling"
	"clinic-app-server/internal/utils"
)

// ProposalHandler handles treatment proposal and payment requests.
type ProposalHandler struct {
	DB *gorm.DB
}

// NewProposalHandler creates a new ProposalHandler.
func NewProposalHandler(db *gorm.DB) *ProposalHandler {
	return &ProposalHandler{DB: db}
}

// ProposalServiceRequest is one line item inside a proposal variant.
type ProposalServiceRequest struct {
	Variant        string  `json:"variant" binding:"required,oneof=A B"`
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	Sessions       int     `json:"sessions" binding:"required,gt=0"`
	CostPerSession float64 `json:"costPerSession" binding:"required,gt=0"`
}

// CreateProposalRequest represents the request body for creating a proposal.
type CreateProposalRequest struct {
	PatientID string                   `json:"patientId" binding:"required,uuid"`
	Title     string                   `json:"title" binding:"required"`
	Notes     string                   `json:"notes"`
	Services  []ProposalServiceRequest `json:"services" binding:"required,min=1,dive"`
}

// CreateProposal handles creating a treatment proposal in DRAFT status.
// Variant totals are derived from the service line items.
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	var req CreateProposalRequest
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

	proposal := models.TreatmentProposal{
		PatientID:   req.PatientID,
		TherapistID: therapistID,
		Title:       req.Title,
		Notes:       req.Notes,
		Status:      models.ProposalDraft,
	}
	for _, svc := range req.Services {
		proposal.Services = append(proposal.Services, models.ProposalService{
			Variant:        models.ProposalVariant(svc.Variant),
			Name:           svc.Name,
			Description:    svc.Description,
			Sessions:       svc.Sessions,
			CostPerSession: svc.CostPerSession,
		})
		total := float64(svc.Sessions) * svc.CostPerSession
		if models.ProposalVariant(svc.Variant) == models.VariantB {
			proposal.TotalAmountB += total
			proposal.TotalSessionsB += svc.Sessions
		} else {
			proposal.TotalAmountA += total
			proposal.TotalSessionsA += svc.Sessions
		}
	}

	if err := h.DB.Create(&proposal).Error; err != nil {
		utils.InternalServerError(c, "Failed to create proposal: "+err.Error())
		return
	}

	utils.Created(c, "Proposal created successfully", proposal)
}

// GetProposals handles fetching proposals scoped by the caller's role.
func (h *ProposalHandler) GetProposals(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Services").Preload("Payments").Order("created_at desc")

	var proposals []models.TreatmentProposal
	var err error

	switch userRole {
	case models.RoleAdmin:
		err = query.Find(&proposals).Error
	case models.RoleTherapist:
		err = query.Where("therapist_id = ?", userID).Find(&proposals).Error
	case models.RoleParent:
		var patientIDs []string
		if err := h.DB.Model(&models.Patient{}).Where("parent_id = ?", userID).Pluck("id", &patientIDs).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch patients")
			return
		}
		// Parents never see drafts.
		err = query.Where("patient_id IN ? AND status != ?", patientIDs, models.ProposalDraft).Find(&proposals).Error
	default:
		utils.Forbidden(c, "User role not permitted to view proposals")
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch proposals: "+err.Error())
		return
	}

	utils.Success(c, "Proposals fetched successfully", proposals)
}

// GetProposalByID handles fetching a single proposal with its line items
// and payments.
func (h *ProposalHandler) GetProposalByID(c *gin.Context) {
	var proposal models.TreatmentProposal
	if err := h.DB.Preload("Services").Preload("Payments").First(&proposal, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Proposal not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if !h.canAccessProposal(c, &proposal) {
		utils.Forbidden(c, "You are not authorized to view this proposal")
		return
	}

	utils.Success(c, "Proposal fetched successfully", proposal)
}

// UpdateProposalStatusRequest represents the request body for a proposal
// status change.
type UpdateProposalStatusRequest struct {
	Status models.ProposalStatus `json:"status" binding:"required,oneof=PAYMENT_PENDING ACTIVE COMPLETED CANCELLED"`
}

// UpdateProposalStatus moves a proposal through its lifecycle.
// PAYMENT_CONFIRMED is never set directly; it is reached only through
// payment aggregation in AddPayment.
func (h *ProposalHandler) UpdateProposalStatus(c *gin.Context) {
	var req UpdateProposalStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var proposal models.TreatmentProposal
	if err := h.DB.First(&proposal, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Proposal not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if err := scheduling.EnsureProposalTransition(proposal.Status, req.Status); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	proposal.Status = req.Status
	if err := h.DB.Save(&proposal).Error; err != nil {
		utils.InternalServerError(c, "Failed to update proposal status")
		return
	}

	utils.Success(c, "Proposal status updated successfully", proposal)
}

// SelectVariantRequest represents the parent's plan choice.
type SelectVariantRequest struct {
	Variant string `json:"variant" binding:"required,oneof=A B"`
}

// SelectVariant records which proposal variant the parent chose.
// Only allowed before any payment has been recorded.
func (h *ProposalHandler) SelectVariant(c *gin.Context) {
	var req SelectVariantRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var proposal models.TreatmentProposal
	if err := h.DB.Preload("Payments").First(&proposal, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Proposal not found")
		} else {
			utils.InternalServerError(c, "Database error")
		}
		return
	}

	if !h.canAccessProposal(c, &proposal) {
		utils.Forbidden(c, "You are not authorized to modify this proposal")
		return
	}

	if proposal.Status != models.ProposalPaymentPending {
		utils.BadRequest(c, "Variant can only be selected while payment is pending")
		return
	}
	if len(proposal.Payments) > 0 {
		utils.BadRequest(c, "Variant cannot be changed after payments have been recorded")
		return
	}

	proposal.SelectedProposal = models.ProposalVariant(req.Variant)
	if err := h.DB.Save(&proposal).Error; err != nil {
		utils.InternalServerError(c, "Failed to select variant")
		return
	}

	utils.Success(c, "Proposal variant selected", proposal)
}

// AddPaymentRequest represents the request body for recording a payment.
type AddPaymentRequest struct {
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod   string  `json:"paymentMethod" binding:"required"`
	ReferenceNumber string  `json:"referenceNumber"`
	Notes           string  `json:"notes"`
}

// AddPaymentResponse is the payload returned after recording a payment.
type AddPaymentResponse struct {
	Payment     models.Payment           `json:"payment"`
	Proposal    models.TreatmentProposal `json:"proposal"`
	TotalPaid   float64                  `json:"totalPaid"`
	IsFullyPaid bool                     `json:"isFullyPaid"`
}

// AddPayment records a payment against a proposal and recomputes the
// paid total. When the total covers the selected variant's amount and
// the proposal is PAYMENT_PENDING, the proposal moves to
// PAYMENT_CONFIRMED and the approval date is stamped, exactly once.
// The whole read-sum-update sequence runs in one transaction so
// concurrent payments cannot both observe a stale total.
func (h *ProposalHandler) AddPayment(c *gin.Context) {
	var req AddPaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	recordedBy, _ := middleware.GetUserIDFromContext(c)

	var resp AddPaymentResponse
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var proposal models.TreatmentProposal
		if err := tx.First(&proposal, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}

		payment := models.Payment{
			ProposalID:      proposal.ID,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
			Status:          models.PaymentCompleted,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			RecordedByID:    recordedBy,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		var totalPaid float64
		if err := tx.Model(&models.Payment{}).
			Where("proposal_id = ? AND status IN ?", proposal.ID, []models.PaymentStatus{models.PaymentCompleted, models.PaymentPartial}).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&totalPaid).Error; err != nil {
			return err
		}

		isFullyPaid := totalPaid >= proposal.TotalAmount()
		if isFullyPaid && proposal.Status == models.ProposalPaymentPending {
			if err := scheduling.EnsureProposalTransition(proposal.Status, models.ProposalPaymentConfirmed); err != nil {
				return err
			}
			now := time.Now()
			proposal.Status = models.ProposalPaymentConfirmed
			proposal.ApprovedDate = &now
			if err := tx.Save(&proposal).Error; err != nil {
				return err
			}
		}

		resp = AddPaymentResponse{
			Payment:     payment,
			Proposal:    proposal,
			TotalPaid:   totalPaid,
			IsFullyPaid: isFullyPaid,
		}
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Proposal not found")
			return
		}
		log.Error().Err(err).Msg("failed to record payment")
		utils.InternalServerError(c, "Failed to record payment")
		return
	}

	utils.Created(c, "Payment recorded successfully", resp)
}

func (h *ProposalHandler) canAccessProposal(c *gin.Context, proposal *models.TreatmentProposal) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	switch userRole {
	case models.RoleAdmin:
		return true
	case models.RoleTherapist:
		return userID == proposal.TherapistID
	case models.RoleParent:
		var patient models.Patient
		if err := h.DB.First(&patient, "id = ?", proposal.PatientID).Error; err != nil {
			return false
		}
		return patient.ParentID == userID
	}
	return false
}
