package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rrattigan/Belleview-Hospital/internal/clinic"
)

// The core treats date and time as opaque tokens; format validation is this
// layer's job, before anything reaches the service.
func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func registerPatientHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name must not be empty")
			return
		}
		if req.Age <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_age", "age must be a positive integer")
			return
		}

		p, err := svc.RegisterPatient(r.Context(), clinic.RegisterPatientInput{
			Name:   req.Name,
			Age:    req.Age,
			Gender: req.Gender,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, toPatientResponse(*p))
	}
}

func getPatientHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetPatient(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

func listPatientsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.ListPatients(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]PatientResponse, 0, len(patients))
		for _, p := range patients {
			out = append(out, toPatientResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func patientAppointmentsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.PatientAppointments(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleLookupError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			out = append(out, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func registerDoctorHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name must not be empty")
			return
		}
		if req.Age <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_age", "age must be a positive integer")
			return
		}
		for date, times := range req.Schedule {
			if !validDate(date) {
				writeError(w, http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD")
				return
			}
			for _, t := range times {
				if !validTime(t) {
					writeError(w, http.StatusBadRequest, "invalid_time", "times must be HH:MM")
					return
				}
			}
		}

		d, err := svc.RegisterDoctor(r.Context(), clinic.RegisterDoctorInput{
			Name:         req.Name,
			Age:          req.Age,
			Gender:       req.Gender,
			Specialty:    req.Specialty,
			Availability: req.Schedule,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, toDoctorResponse(*d))
	}
}

func listDoctorsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			out = append(out, toDoctorResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func doctorScheduleHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := chi.URLParam(r, "id")

		schedule, err := svc.DoctorSchedule(r.Context(), doctorID)
		if err != nil {
			handleLookupError(w, err)
			return
		}

		resp := ScheduleResponse{DoctorID: doctorID, Days: []ScheduleDay{}}
		for _, date := range schedule.Dates() {
			resp.Days = append(resp.Days, ScheduleDay{
				Date:  date,
				Times: schedule.TimesFor(date),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addAvailabilityHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if !validDate(req.Date) {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		if len(req.Times) == 0 {
			writeError(w, http.StatusBadRequest, "invalid_times", "at least one time is required")
			return
		}
		for _, t := range req.Times {
			if !validTime(t) {
				writeError(w, http.StatusBadRequest, "invalid_time", "times must be HH:MM")
				return
			}
		}

		if err := svc.AddAvailability(r.Context(), chi.URLParam(r, "id"), req.Date, req.Times); err != nil {
			handleLookupError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func bookAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.PatientID == "" || req.DoctorID == "" {
			writeError(w, http.StatusBadRequest, "missing_reference", "patient_id and doctor_id are required")
			return
		}
		if !validDate(req.Date) {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		if !validTime(req.Time) {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be HH:MM")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), req.PatientID, req.DoctorID, req.Date, req.Time)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListAppointments(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			out = append(out, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.GetAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func cancelAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.CancelAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func generateBillHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateBillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		charges := make([]clinic.ChargeItem, 0, len(req.Charges))
		for _, c := range req.Charges {
			charges = append(charges, clinic.ChargeItem{Service: c.Service, Cost: c.Cost})
		}

		bill, err := svc.GenerateBill(r.Context(), chi.URLParam(r, "id"), charges)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBillResponse(*bill))
	}
}

// Error mapping

func handleLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, clinic.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, clinic.ErrDoctorBusy):
		writeError(w, http.StatusConflict, "doctor_being_booked", "doctor is currently being booked, please retry shortly")
	default:
		handleLookupError(w, err)
	}
}

func handleTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, clinic.ErrNegativeCharge):
		writeError(w, http.StatusUnprocessableEntity, "negative_charge", err.Error())
	default:
		handleLookupError(w, err)
	}
}

// Response conversion

func toPatientResponse(p clinic.Patient) PatientResponse {
	ids := p.AppointmentIDs
	if ids == nil {
		ids = []string{}
	}
	return PatientResponse{
		ID:             p.ID,
		Name:           p.Name,
		Age:            p.Age,
		Gender:         p.Gender,
		AppointmentIDs: ids,
	}
}

func toDoctorResponse(d clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:        d.ID,
		Name:      d.Name,
		Age:       d.Age,
		Gender:    d.Gender,
		Specialty: d.Specialty,
	}
}

func toBillResponse(b clinic.Bill) BillResponse {
	items := make([]ChargeItemPayload, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, ChargeItemPayload{Service: it.Service, Cost: it.Cost})
	}
	return BillResponse{
		AppointmentID:   b.AppointmentID,
		ConsultationFee: b.ConsultationFee,
		Items:           items,
		Total:           b.Total,
		Currency:        b.Currency,
		IssuedAt:        b.IssuedAt,
	}
}

func toAppointmentResponse(a clinic.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date,
		Time:      a.Time,
		Status:    string(a.Status),
	}
	if a.Bill != nil {
		bill := toBillResponse(*a.Bill)
		resp.Bill = &bill
	}
	return resp
}
