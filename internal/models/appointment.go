package models

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentNoShow, AppointmentCancelled},
}

// Terminal reports whether no further transition leaves s.
func (s AppointmentStatus) Terminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// CanTransition reports whether the backend may move an appointment from one status to another.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	for _, next := range appointmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ClientMayRequest reports whether this client is allowed to issue the transition itself.
// Everything except pending -> cancelled is server-driven.
func (s AppointmentStatus) ClientMayRequest(to AppointmentStatus) bool {
	return s == AppointmentPending && to == AppointmentCancelled
}

type Appointment struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	DoctorID       string            `json:"doctor_id"`
	DoctorName     string            `json:"doctor_name,omitempty"`
	Specialization string            `json:"specialization,omitempty"`
	Date           string            `json:"date"`
	TimeSlot       string            `json:"time_slot"`
	Status         AppointmentStatus `json:"status"`
	Fee            float64           `json:"fee,omitempty"`
}

// NewAppointment is the booking payload sent with createAppointment.
type NewAppointment struct {
	UserID   string            `json:"user_id"`
	DoctorID string            `json:"doctor_id"`
	Date     string            `json:"date"`
	TimeSlot string            `json:"time_slot"`
	Status   AppointmentStatus `json:"status"`
}

type Doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

type DashboardStats struct {
	TotalAppointments     int     `json:"totalAppointments"`
	UpcomingAppointments  int     `json:"upcomingAppointments"`
	CompletedAppointments int     `json:"completedAppointments"`
	TotalPaid             float64 `json:"totalPaid"`
}
