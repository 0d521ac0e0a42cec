package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-app-server/internal/models"
)

func newAppointmentRouter(db *gorm.DB, userID string, role models.Role) *gin.Engine {
	h := NewAppointmentHandler(db)
	router := gin.New()
	router.Use(asUser(userID, role))
	router.POST("/appointments", h.CreateAppointment)
	router.GET("/appointments", h.GetAppointmentsForUser)
	router.GET("/appointments/:id", h.GetAppointmentByID)
	router.GET("/appointments/:id/history", h.GetAppointmentHistory)
	router.PATCH("/appointments/:id/status", h.UpdateAppointmentStatus)
	router.PATCH("/appointments/:id/mark-absent", h.MarkAbsent)
	router.PATCH("/appointments/:id/reschedule", h.RescheduleAppointment)
	return router
}

func TestCreateAppointmentConflict(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	admin := seedUser(t, db, models.RoleAdmin, "admin@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	router := newAppointmentRouter(db, admin.ID, models.RoleAdmin)

	book := func(start, end string) *models.Appointment {
		w := performJSON(t, router, http.MethodPost, "/appointments", gin.H{
			"therapistId": therapist.ID,
			"patientId":   patient.ID,
			"date":        "2025-03-01",
			"startTime":   start,
			"endTime":     end,
			"type":        "TERAPIA",
		})
		if w.Code != http.StatusCreated {
			return nil
		}
		var appt models.Appointment
		decodeData(t, w, &appt)
		return &appt
	}

	if appt := book("10:00", "11:00"); appt == nil {
		t.Fatal("expected first booking to succeed")
	}

	t.Run("overlapping slot is rejected", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPost, "/appointments", gin.H{
			"therapistId": therapist.ID,
			"patientId":   patient.ID,
			"date":        "2025-03-01",
			"startTime":   "10:30",
			"endTime":     "11:30",
			"type":        "TERAPIA",
		})
		expectStatus(t, w, http.StatusConflict)
		if got := countRows(t, db, &models.Appointment{}); got != 1 {
			t.Fatalf("rejected booking must not persist, have %d appointments", got)
		}
	})

	t.Run("adjacent slot is accepted", func(t *testing.T) {
		if appt := book("11:00", "12:00"); appt == nil {
			t.Fatal("expected back-to-back booking to succeed")
		}
		if got := countRows(t, db, &models.Appointment{}); got != 2 {
			t.Fatalf("expected 2 appointments, have %d", got)
		}
	})

	t.Run("cancelled slot can be rebooked", func(t *testing.T) {
		seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-02", "09:00", "10:00", models.AppointmentCancelled)
		w := performJSON(t, router, http.MethodPost, "/appointments", gin.H{
			"therapistId": therapist.ID,
			"patientId":   patient.ID,
			"date":        "2025-03-02",
			"startTime":   "09:00",
			"endTime":     "10:00",
			"type":        "TERAPIA",
		})
		expectStatus(t, w, http.StatusCreated)
	})

	t.Run("invalid slot is rejected", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPost, "/appointments", gin.H{
			"therapistId": therapist.ID,
			"patientId":   patient.ID,
			"date":        "2025-03-01",
			"startTime":   "12:00",
			"endTime":     "12:00",
			"type":        "TERAPIA",
		})
		expectStatus(t, w, http.StatusBadRequest)
	})
}

func TestCreateAppointmentParentOwnChildOnly(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	otherParent := seedUser(t, db, models.RoleParent, "other@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	router := newAppointmentRouter(db, otherParent.ID, models.RoleParent)
	w := performJSON(t, router, http.MethodPost, "/appointments", gin.H{
		"therapistId": therapist.ID,
		"patientId":   patient.ID,
		"date":        "2025-03-01",
		"startTime":   "10:00",
		"endTime":     "11:00",
		"type":        "TERAPIA",
	})
	expectStatus(t, w, http.StatusForbidden)
}

func TestUpdateAppointmentStatus(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	t.Run("valid transition chain", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-01", "10:00", "11:00", models.AppointmentScheduled)
		router := newAppointmentRouter(db, therapist.ID, models.RoleTherapist)

		for _, status := range []models.AppointmentStatus{
			models.AppointmentConfirmed,
			models.AppointmentInProgress,
			models.AppointmentCompleted,
		} {
			w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/status", gin.H{"status": status})
			expectStatus(t, w, http.StatusOK)
		}

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Status != models.AppointmentCompleted {
			t.Fatalf("expected COMPLETED, got %s", stored.Status)
		}
	})

	t.Run("skipping lifecycle steps is rejected", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-02", "10:00", "11:00", models.AppointmentScheduled)
		router := newAppointmentRouter(db, therapist.ID, models.RoleTherapist)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/status", gin.H{"status": models.AppointmentCompleted})
		expectStatus(t, w, http.StatusBadRequest)

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Status != models.AppointmentScheduled {
			t.Fatalf("failed transition must not mutate status, got %s", stored.Status)
		}
	})

	t.Run("terminal status is frozen", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-03", "10:00", "11:00", models.AppointmentCancelled)
		router := newAppointmentRouter(db, therapist.ID, models.RoleTherapist)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/status", gin.H{"status": models.AppointmentConfirmed})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("parent may cancel own child's appointment", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-04", "10:00", "11:00", models.AppointmentScheduled)
		router := newAppointmentRouter(db, parent.ID, models.RoleParent)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/status", gin.H{"status": models.AppointmentCancelled})
		expectStatus(t, w, http.StatusOK)
	})

	t.Run("parent may not confirm", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-05", "10:00", "11:00", models.AppointmentScheduled)
		router := newAppointmentRouter(db, parent.ID, models.RoleParent)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/status", gin.H{"status": models.AppointmentConfirmed})
		expectStatus(t, w, http.StatusForbidden)
	})
}

func TestMarkAbsent(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	admin := seedUser(t, db, models.RoleAdmin, "admin@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	router := newAppointmentRouter(db, admin.ID, models.RoleAdmin)

	t.Run("confirmed appointment can be marked absent", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-01", "10:00", "11:00", models.AppointmentConfirmed)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/mark-absent", gin.H{"reason": "Child was sick"})
		expectStatus(t, w, http.StatusOK)

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Status != models.AppointmentNoShow {
			t.Fatalf("expected NO_SHOW, got %s", stored.Status)
		}
		if stored.AbsenceReason == nil || *stored.AbsenceReason != "Child was sick" {
			t.Fatalf("expected absence reason to be recorded, got %v", stored.AbsenceReason)
		}
		if stored.MarkedAbsentByID == nil || *stored.MarkedAbsentByID != admin.ID {
			t.Fatalf("expected absence to be attributed to the admin, got %v", stored.MarkedAbsentByID)
		}
		if stored.MarkedAbsentAt == nil {
			t.Fatal("expected absence timestamp to be recorded")
		}
	})

	t.Run("missing reason is rejected", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-02", "10:00", "11:00", models.AppointmentScheduled)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/mark-absent", gin.H{})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("completed appointment cannot be marked absent", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-03", "10:00", "11:00", models.AppointmentCompleted)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/mark-absent", gin.H{"reason": "late"})
		expectStatus(t, w, http.StatusBadRequest)

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Status != models.AppointmentCompleted || stored.AbsenceReason != nil {
			t.Fatalf("failed mark-absent must not mutate the appointment, got %s / %v", stored.Status, stored.AbsenceReason)
		}
	})
}

func TestRescheduleAppointment(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	router := newAppointmentRouter(db, therapist.ID, models.RoleTherapist)

	t.Run("moves the slot and records the hop", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-01", "10:00", "11:00", models.AppointmentScheduled)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/reschedule", gin.H{
			"newDate":      "2025-03-08",
			"newStartTime": "12:00",
			"newEndTime":   "13:00",
			"reason":       "Therapist unavailable",
		})
		expectStatus(t, w, http.StatusOK)

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Date != "2025-03-08" || stored.StartTime != "12:00" || stored.EndTime != "13:00" {
			t.Fatalf("expected slot to move, got %s %s-%s", stored.Date, stored.StartTime, stored.EndTime)
		}
		if stored.Status != models.AppointmentRescheduled {
			t.Fatalf("expected RESCHEDULED, got %s", stored.Status)
		}

		var hops []models.AppointmentReschedule
		if err := db.Where("appointment_id = ?", appt.ID).Find(&hops).Error; err != nil {
			t.Fatalf("failed to load reschedule history: %v", err)
		}
		if len(hops) != 1 {
			t.Fatalf("expected 1 reschedule hop, got %d", len(hops))
		}
		if hops[0].FromDate != "2025-03-01" || hops[0].ToDate != "2025-03-08" {
			t.Fatalf("hop should record old and new slots, got %+v", hops[0])
		}
	})

	t.Run("conflicting target slot leaves the appointment untouched", func(t *testing.T) {
		seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-04-01", "09:00", "10:00", models.AppointmentConfirmed)
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-04-01", "14:00", "15:00", models.AppointmentScheduled)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/reschedule", gin.H{
			"newDate":      "2025-04-01",
			"newStartTime": "09:30",
			"newEndTime":   "10:30",
		})
		expectStatus(t, w, http.StatusConflict)

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Date != "2025-04-01" || stored.StartTime != "14:00" || stored.Status != models.AppointmentScheduled {
			t.Fatalf("failed reschedule must not mutate the appointment, got %+v", stored)
		}

		var hopCount int64
		if err := db.Model(&models.AppointmentReschedule{}).Where("appointment_id = ?", appt.ID).Count(&hopCount).Error; err != nil {
			t.Fatalf("failed to count hops: %v", err)
		}
		if hopCount != 0 {
			t.Fatalf("failed reschedule must not record a hop, got %d", hopCount)
		}
	})

	t.Run("completed appointment cannot be rescheduled", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-05-01", "10:00", "11:00", models.AppointmentCompleted)

		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/reschedule", gin.H{
			"newDate":      "2025-05-02",
			"newStartTime": "10:00",
			"newEndTime":   "11:00",
		})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("history endpoint returns hops oldest first", func(t *testing.T) {
		appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-06-01", "10:00", "11:00", models.AppointmentScheduled)

		moves := []gin.H{
			{"newDate": "2025-06-02", "newStartTime": "10:00", "newEndTime": "11:00"},
			{"newDate": "2025-06-03", "newStartTime": "10:00", "newEndTime": "11:00"},
		}
		for _, move := range moves {
			w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/reschedule", move)
			expectStatus(t, w, http.StatusOK)
		}

		w := performJSON(t, router, http.MethodGet, "/appointments/"+appt.ID+"/history", nil)
		expectStatus(t, w, http.StatusOK)

		var payload struct {
			Appointment models.Appointment            `json:"appointment"`
			Reschedules []models.AppointmentReschedule `json:"reschedules"`
		}
		decodeData(t, w, &payload)
		if len(payload.Reschedules) != 2 {
			t.Fatalf("expected 2 hops, got %d", len(payload.Reschedules))
		}
		if payload.Reschedules[0].FromDate != "2025-06-01" || payload.Reschedules[1].FromDate != "2025-06-02" {
			t.Fatalf("expected hops oldest first, got %+v", payload.Reschedules)
		}
		if payload.Appointment.Date != "2025-06-03" {
			t.Fatalf("expected appointment on final date, got %s", payload.Appointment.Date)
		}
	})
}

func TestConfirmRescheduledSlotRechecksConflict(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)

	router := newAppointmentRouter(db, therapist.ID, models.RoleTherapist)

	appt := seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-01", "14:00", "15:00", models.AppointmentScheduled)
	w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/reschedule", gin.H{
		"newDate":      "2025-03-08",
		"newStartTime": "10:00",
		"newEndTime":   "11:00",
	})
	expectStatus(t, w, http.StatusOK)

	// A pending reschedule does not hold the slot, so another booking may
	// legitimately take it before confirmation.
	seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-08", "10:00", "11:00", models.AppointmentScheduled)

	t.Run("confirming a taken slot is rejected", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/status", gin.H{"status": models.AppointmentConfirmed})
		expectStatus(t, w, http.StatusConflict)

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Status != models.AppointmentRescheduled {
			t.Fatalf("failed confirmation must not mutate status, got %s", stored.Status)
		}
	})

	t.Run("moving to a free slot and confirming succeeds", func(t *testing.T) {
		w := performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/reschedule", gin.H{
			"newDate":      "2025-03-08",
			"newStartTime": "12:00",
			"newEndTime":   "13:00",
		})
		expectStatus(t, w, http.StatusOK)

		w = performJSON(t, router, http.MethodPatch, "/appointments/"+appt.ID+"/status", gin.H{"status": models.AppointmentConfirmed})
		expectStatus(t, w, http.StatusOK)

		var stored models.Appointment
		if err := db.First(&stored, "id = ?", appt.ID).Error; err != nil {
			t.Fatalf("failed to reload appointment: %v", err)
		}
		if stored.Status != models.AppointmentConfirmed {
			t.Fatalf("expected CONFIRMED, got %s", stored.Status)
		}
	})
}

func TestGetAppointmentsForUserScoping(t *testing.T) {
	db := newTestDB(t)
	therapist := seedUser(t, db, models.RoleTherapist, "therapist@clinic.test")
	otherTherapist := seedUser(t, db, models.RoleTherapist, "other-therapist@clinic.test")
	parent := seedUser(t, db, models.RoleParent, "parent@clinic.test")
	otherParent := seedUser(t, db, models.RoleParent, "other-parent@clinic.test")
	patient := seedPatient(t, db, parent.ID)
	otherPatient := seedPatient(t, db, otherParent.ID)

	seedAppointmentRow(t, db, therapist.ID, &patient.ID, "2025-03-01", "10:00", "11:00", models.AppointmentScheduled)
	seedAppointmentRow(t, db, otherTherapist.ID, &otherPatient.ID, "2025-03-01", "10:00", "11:00", models.AppointmentScheduled)

	fetch := func(userID string, role models.Role) []models.Appointment {
		router := newAppointmentRouter(db, userID, role)
		w := performJSON(t, router, http.MethodGet, "/appointments", nil)
		expectStatus(t, w, http.StatusOK)
		var appts []models.Appointment
		decodeData(t, w, &appts)
		return appts
	}

	if got := fetch(therapist.ID, models.RoleTherapist); len(got) != 1 || got[0].TherapistID != therapist.ID {
		t.Fatalf("therapist should only see own appointments, got %+v", got)
	}
	if got := fetch(parent.ID, models.RoleParent); len(got) != 1 || *got[0].PatientID != patient.ID {
		t.Fatalf("parent should only see own children's appointments, got %+v", got)
	}
	admin := seedUser(t, db, models.RoleAdmin, "admin@clinic.test")
	if got := fetch(admin.ID, models.RoleAdmin); len(got) != 2 {
		t.Fatalf("admin should see all appointments, got %d", len(got))
	}
}
