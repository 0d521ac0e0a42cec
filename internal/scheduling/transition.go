package scheduling

import (
	"fmt"

	"clinic-app-server/internal/models"
)

// InvalidTransitionError is returned when a status change is not allowed
// by the lifecycle tables below.
type InvalidTransitionError struct {
	Entity    string
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %s to %s", e.Entity, e.Current, e.Requested)
}

// appointmentTransitions is the single source of truth for the
// appointment lifecycle. Handlers must not re-derive these rules.
var appointmentTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentScheduled: {
		models.AppointmentConfirmed,
		models.AppointmentNoShow,
		models.AppointmentRescheduled,
		models.AppointmentCancelled,
	},
	models.AppointmentConfirmed: {
		models.AppointmentInProgress,
		models.AppointmentNoShow,
		models.AppointmentCancelled,
	},
	models.AppointmentInProgress: {
		models.AppointmentCompleted,
		models.AppointmentCancelled,
	},
	models.AppointmentNoShow: {
		models.AppointmentRescheduled,
		models.AppointmentCancelled,
	},
	models.AppointmentRescheduled: {
		models.AppointmentConfirmed,
		models.AppointmentRescheduled,
		models.AppointmentCancelled,
	},
	// COMPLETED and CANCELLED are terminal.
	models.AppointmentCompleted: {},
	models.AppointmentCancelled: {},
}

var proposalTransitions = map[models.ProposalStatus][]models.ProposalStatus{
	models.ProposalDraft:            {models.ProposalPaymentPending, models.ProposalCancelled},
	models.ProposalPaymentPending:   {models.ProposalPaymentConfirmed, models.ProposalCancelled},
	models.ProposalPaymentConfirmed: {models.ProposalActive, models.ProposalCancelled},
	models.ProposalActive:           {models.ProposalCompleted, models.ProposalCancelled},
	models.ProposalCompleted:        {},
	models.ProposalCancelled:        {},
}

var requestTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.RequestPending:   {models.RequestScheduled, models.RequestCancelled},
	models.RequestScheduled: {models.RequestCompleted, models.RequestCancelled},
	models.RequestCompleted: {},
	models.RequestCancelled: {},
}

// CanTransitionAppointment reports whether the appointment status change
// is allowed.
func CanTransitionAppointment(from, to models.AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EnsureAppointmentTransition returns an InvalidTransitionError if the
// change is not allowed.
func EnsureAppointmentTransition(from, to models.AppointmentStatus) error {
	if !CanTransitionAppointment(from, to) {
		return &InvalidTransitionError{Entity: "appointment", Current: string(from), Requested: string(to)}
	}
	return nil
}

// CanTransitionProposal reports whether the proposal status change is allowed.
func CanTransitionProposal(from, to models.ProposalStatus) bool {
	for _, allowed := range proposalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EnsureProposalTransition returns an InvalidTransitionError if the
// change is not allowed.
func EnsureProposalTransition(from, to models.ProposalStatus) error {
	if !CanTransitionProposal(from, to) {
		return &InvalidTransitionError{Entity: "proposal", Current: string(from), Requested: string(to)}
	}
	return nil
}

// CanTransitionRequest reports whether the intake request status change
// is allowed.
func CanTransitionRequest(from, to models.RequestStatus) bool {
	for _, allowed := range requestTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EnsureRequestTransition returns an InvalidTransitionError if the
// change is not allowed.
func EnsureRequestTransition(from, to models.RequestStatus) error {
	if !CanTransitionRequest(from, to) {
		return &InvalidTransitionError{Entity: "request", Current: string(from), Requested: string(to)}
	}
	return nil
}

// CanMarkAbsent reports whether an appointment in the given status may be
// marked NO_SHOW.
func CanMarkAbsent(from models.AppointmentStatus) bool {
	return CanTransitionAppointment(from, models.AppointmentNoShow)
}

// CanReschedule reports whether an appointment in the given status may be
// moved to a new slot.
func CanReschedule(from models.AppointmentStatus) bool {
	return CanTransitionAppointment(from, models.AppointmentRescheduled)
}
