package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-app-server/internal/models"
)

func newProposalRouter(db *gorm.DB, userID string, role models.Role) *gin.Engine {
	h := NewProposalHandler(db)
	router := gin.New()
	router.Use(asUser(userID, role))
	router.POST("/proposals", h.CreateProposal)
	router.GET("/proposals", h.GetProposals)
	router.GET("/proposals/:id", h.GetProposalByID)
	router.PATCH("/proposals/:id/status", h.UpdateProposalStatus)
	router.PATCH("/proposals/:id/select-variant", h.SelectVariant)
	router.POST("/proposals/:id/payments", h.AddPayment)
	return router
}

func seedProposal(t *testing.T, db *gorm.DB, patientID, therapistID string, amountA, amountB float64, status models.ProposalStatus) models.TreatmentProposal {
	t.Helper()
	proposal := models.TreatmentProposal{
		PatientID:      patientID,
		TherapistID:    therapistID,
		Title:          "Plan de tratamiento",
		TotalAmountA:   amountA,
		TotalSessionsA: 10,
		TotalAmountB:   amountB,
		TotalSessionsB: 8,
		Status:         status,
	}
	if err := db.Create(&proposal).Error; err != nil {
		t.Fatalf("failed to seed proposal: %v", err)
	}
	return proposal
}

func TestCreateProposalDerivesTotals(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	router := newProposalRouter(db, therapist.ID, models.RoleTherapist)
	w := performJSON(t, router, http.MethodPost, "/proposals", gin.H{
		"patientId": patient.ID,
		"title":     "Plan semestral",
		"services": []gin.H{
			{"variant": "A", "name": "Terapia de lenguaje", "sessions": 10, "costPerSession": 50},
			{"variant": "A", "name": "Evaluación", "sessions": 2, "costPerSession": 100},
			{"variant": "B", "name": "Terapia intensiva", "sessions": 8, "costPerSession": 70},
		},
	})
	expectStatus(t, w, http.StatusCreated)

	var proposal models.TreatmentProposal
	decodeData(t, w, &proposal)

	if proposal.Status != models.ProposalDraft {
		t.Fatalf("new proposals must start as DRAFT, got %s", proposal.Status)
	}
	if proposal.TotalAmountA != 700 || proposal.TotalSessionsA != 12 {
		t.Fatalf("variant A totals wrong: %v / %d", proposal.TotalAmountA, proposal.TotalSessionsA)
	}
	if proposal.TotalAmountB != 560 || proposal.TotalSessionsB != 8 {
		t.Fatalf("variant B totals wrong: %v / %d", proposal.TotalAmountB, proposal.TotalSessionsB)
	}
	if got := countRows(t, db, &models.ProposalService{}); got != 3 {
		t.Fatalf("expected 3 service line items, got %d", got)
	}
}

func TestAddPaymentAggregation(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	admin := seedUser(t, db, models.RoleAdmin, "admin@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)
	proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalPaymentPending)

	router := newProposalRouter(db, admin.ID, models.RoleAdmin)

	pay := func(amount float64) AddPaymentResponse {
		w := performJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID+"/payments", gin.H{
			"amount":        amount,
			"paymentMethod": "TRANSFER",
		})
		expectStatus(t, w, http.StatusCreated)
		var resp AddPaymentResponse
		decodeData(t, w, &resp)
		return resp
	}

	resp := pay(600)
	if resp.IsFullyPaid {
		t.Fatal("600 of 1000 must not be fully paid")
	}
	if resp.TotalPaid != 600 {
		t.Fatalf("expected total 600, got %v", resp.TotalPaid)
	}
	if resp.Proposal.Status != models.ProposalPaymentPending {
		t.Fatalf("partial payment must not confirm the proposal, got %s", resp.Proposal.Status)
	}
	if resp.Proposal.ApprovedDate != nil {
		t.Fatal("approval date must not be stamped before full payment")
	}

	resp = pay(400)
	if !resp.IsFullyPaid {
		t.Fatal("600 + 400 of 1000 must be fully paid")
	}
	if resp.TotalPaid != 1000 {
		t.Fatalf("expected total 1000, got %v", resp.TotalPaid)
	}
	if resp.Proposal.Status != models.ProposalPaymentConfirmed {
		t.Fatalf("full payment must confirm the proposal, got %s", resp.Proposal.Status)
	}
	if resp.Proposal.ApprovedDate == nil {
		t.Fatal("approval date must be stamped on full payment")
	}
	approvedAt := *resp.Proposal.ApprovedDate

	// An overpayment after confirmation must not re-stamp or re-transition.
	resp = pay(50)
	if resp.TotalPaid != 1050 {
		t.Fatalf("expected total 1050, got %v", resp.TotalPaid)
	}
	if resp.Proposal.Status != models.ProposalPaymentConfirmed {
		t.Fatalf("overpayment must keep PAYMENT_CONFIRMED, got %s", resp.Proposal.Status)
	}
	if resp.Proposal.ApprovedDate == nil || !resp.Proposal.ApprovedDate.Equal(approvedAt) {
		t.Fatalf("approval date must be stamped exactly once, got %v then %v", approvedAt, resp.Proposal.ApprovedDate)
	}
	if got := countRows(t, db, &models.Payment{}); got != 3 {
		t.Fatalf("expected 3 payment rows, got %d", got)
	}
}

func TestAddPaymentUsesSelectedVariant(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	admin := seedUser(t, db, models.RoleAdmin, "admin@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)
	proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalPaymentPending)
	proposal.SelectedProposal = models.VariantB
	if err := db.Save(&proposal).Error; err != nil {
		t.Fatalf("failed to select variant: %v", err)
	}

	router := newProposalRouter(db, admin.ID, models.RoleAdmin)

	// 1000 covers variant A but not the selected variant B.
	w := performJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID+"/payments", gin.H{
		"amount":        1000,
		"paymentMethod": "CASH",
	})
	expectStatus(t, w, http.StatusCreated)
	var resp AddPaymentResponse
	decodeData(t, w, &resp)
	if resp.IsFullyPaid || resp.Proposal.Status != models.ProposalPaymentPending {
		t.Fatalf("payment must be measured against variant B, got fullyPaid=%v status=%s", resp.IsFullyPaid, resp.Proposal.Status)
	}

	w = performJSON(t, router, http.MethodPost, "/proposals/"+proposal.ID+"/payments", gin.H{
		"amount":        400,
		"paymentMethod": "CASH",
	})
	expectStatus(t, w, http.StatusCreated)
	decodeData(t, w, &resp)
	if !resp.IsFullyPaid || resp.Proposal.Status != models.ProposalPaymentConfirmed {
		t.Fatalf("1400 must fully cover variant B, got fullyPaid=%v status=%s", resp.IsFullyPaid, resp.Proposal.Status)
	}
}

func TestSelectVariant(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	t.Run("parent selects a variant while payment is pending", func(t *testing.T) {
		proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalPaymentPending)
		router := newProposalRouter(db, parent.ID, models.RoleParent)

		w := performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/select-variant", gin.H{"variant": "B"})
		expectStatus(t, w, http.StatusOK)

		var stored models.TreatmentProposal
		if err := db.First(&stored, "id = ?", proposal.ID).Error; err != nil {
			t.Fatalf("failed to reload proposal: %v", err)
		}
		if stored.SelectedProposal != models.VariantB {
			t.Fatalf("expected variant B, got %q", stored.SelectedProposal)
		}
		if stored.TotalAmount() != 1400 {
			t.Fatalf("selected variant must drive the owed amount, got %v", stored.TotalAmount())
		}
	})

	t.Run("selection is rejected while still a draft", func(t *testing.T) {
		proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalDraft)
		router := newProposalRouter(db, therapist.ID, models.RoleTherapist)

		w := performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/select-variant", gin.H{"variant": "A"})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("selection is rejected after a payment exists", func(t *testing.T) {
		proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalPaymentPending)
		payment := models.Payment{ProposalID: proposal.ID, Amount: 200, Status: models.PaymentCompleted}
		if err := db.Create(&payment).Error; err != nil {
			t.Fatalf("failed to seed payment: %v", err)
		}
		router := newProposalRouter(db, parent.ID, models.RoleParent)

		w := performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/select-variant", gin.H{"variant": "B"})
		expectStatus(t, w, http.StatusBadRequest)
	})
}

func TestUpdateProposalStatus(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	router := newProposalRouter(db, therapist.ID, models.RoleTherapist)

	t.Run("draft is sent for payment", func(t *testing.T) {
		proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalDraft)
		w := performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/status", gin.H{"status": "PAYMENT_PENDING"})
		expectStatus(t, w, http.StatusOK)
	})

	t.Run("draft cannot jump straight to active", func(t *testing.T) {
		proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalDraft)
		w := performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/status", gin.H{"status": "ACTIVE"})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("payment confirmation cannot be set by hand", func(t *testing.T) {
		proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalPaymentPending)
		w := performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/status", gin.H{"status": "PAYMENT_CONFIRMED"})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("confirmed proposal is activated then completed", func(t *testing.T) {
		proposal := seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalPaymentConfirmed)
		w := performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/status", gin.H{"status": "ACTIVE"})
		expectStatus(t, w, http.StatusOK)
		w = performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/status", gin.H{"status": "COMPLETED"})
		expectStatus(t, w, http.StatusOK)
		w = performJSON(t, router, http.MethodPatch, "/proposals/"+proposal.ID+"/status", gin.H{"status": "CANCELLED"})
		expectStatus(t, w, http.StatusBadRequest)
	})
}

func TestGetProposalsHidesDraftsFromParents(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	seedProposal(t, db, patient.ID, therapist.ID, 1000, 1400, models.ProposalDraft)
	visible := seedProposal(t, db, patient.ID, therapist.ID, 800, 900, models.ProposalPaymentPending)

	router := newProposalRouter(db, parent.ID, models.RoleParent)
	w := performJSON(t, router, http.MethodGet, "/proposals", nil)
	expectStatus(t, w, http.StatusOK)

	var proposals []models.TreatmentProposal
	decodeData(t, w, &proposals)
	if len(proposals) != 1 || proposals[0].ID != visible.ID {
		t.Fatalf("parents must not see drafts, got %+v", proposals)
	}

	therapistRouter := newProposalRouter(db, therapist.ID, models.RoleTherapist)
	w = performJSON(t, therapistRouter, http.MethodGet, "/proposals", nil)
	expectStatus(t, w, http.StatusOK)
	decodeData(t, w, &proposals)
	if len(proposals) != 2 {
		t.Fatalf("therapist should see own drafts too, got %d", len(proposals))
	}
}
