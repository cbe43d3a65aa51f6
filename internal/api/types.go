package api

import "time"

type RegisterPatientRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type RegisterDoctorRequest struct {
	Name      string              `json:"name"`
	Age       int                 `json:"age"`
	Gender    string              `json:"gender"`
	Specialty string              `json:"specialty"`
	Schedule  map[string][]string `json:"schedule,omitempty"`
}

type PatientResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Age            int      `json:"age"`
	Gender         string   `json:"gender"`
	AppointmentIDs []string `json:"appointment_ids"`
}

type DoctorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	Specialty string `json:"specialty"`
}

type ScheduleDay struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type ScheduleResponse struct {
	DoctorID string        `json:"doctor_id"`
	Days     []ScheduleDay `json:"days"`
}

type AddAvailabilityRequest struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type ChargeItemPayload struct {
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
}

type GenerateBillRequest struct {
	Charges []ChargeItemPayload `json:"charges"`
}

type BillResponse struct {
	AppointmentID   string              `json:"appointment_id"`
	ConsultationFee float64             `json:"consultation_fee"`
	Items           []ChargeItemPayload `json:"items"`
	Total           float64             `json:"total"`
	Currency        string              `json:"currency"`
	IssuedAt        time.Time           `json:"issued_at"`
}

type AppointmentResponse struct {
	ID        string        `json:"id"`
	PatientID string        `json:"patient_id"`
	DoctorID  string        `json:"doctor_id"`
	Date      string        `json:"date"`
	Time      string        `json:"time"`
	Status    string        `json:"status"`
	Bill      *BillResponse `json:"bill,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
