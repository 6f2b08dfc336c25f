/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance reconciler via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                      List all students
    POST   /api/students                      Add student
    GET    /api/students/search?name=         Case-insensitive name search
    GET    /api/students/{id}                 Get one student

  Attendance:
    GET    /api/attendance/daily?date=        Every visible student's status
    POST   /api/attendance/save               Save a batch for one day
    GET    /api/attendance/report?date=       Day statistics (date defaults to today)
    GET    /api/attendance/dates              Days with saved attendance
    DELETE /api/attendance/{date}/students/{id} Remove one record
    DELETE /api/attendance/{date}              Delete a whole day
    DELETE /api/attendance/students/{id}       Remove a student from every day

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator/v10 struct tags)
  3. Call the reconciler
  4. Serialize response
  5. Map errors

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with:
  - 400: Validation errors, malformed JSON, bad dates
  - 404: Unknown student
  - 429: Write rate exceeded (middleware)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/logger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Attendance *attendance.Reconciler

	validate *validator.Validate
	log      *zap.SugaredLogger
}

// NewHandler creates a handler over the given reconciler.
func NewHandler(rec *attendance.Reconciler) *Handler {
	return &Handler{
		Attendance: rec,
		validate:   newValidator(),
		log:        logger.ComponentLogger("api"),
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns the whole roster.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Attendance.ListStudents(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTOs(students))
}

// CreateStudent adds a student to the roster.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	var created attendance.Date
	if req.CreationDate != "" {
		d, err := attendance.ParseDate(req.CreationDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_date", "Invalid creation_date", err)
			return
		}
		created = d
	}

	s, err := h.Attendance.AddStudent(r.Context(), req.Name, created)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(s))
}

// SearchStudents matches names by substring.
func (h *Handler) SearchStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Attendance.SearchStudents(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTOs(students))
}

// GetStudent returns one student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}
	s, err := h.Attendance.GetStudent(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// GetDailyAttendance returns every visible student's status for ?date=.
func (h *Handler) GetDailyAttendance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "validation_failed", "date query parameter is required", nil)
		return
	}
	d, ok := parseDate(w, r, raw)
	if !ok {
		return
	}

	entries, err := h.Attendance.AttendanceForDate(r.Context(), d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// SaveAttendance persists a day's batch and returns the updated report.
func (h *Handler) SaveAttendance(w http.ResponseWriter, r *http.Request) {
	var req SaveAttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, ok := parseDate(w, r, req.Date)
	if !ok {
		return
	}

	marks := make([]attendance.Mark, len(req.Entries))
	for i, e := range req.Entries {
		marks[i] = attendance.Mark{StudentID: attendance.StudentID(e.StudentID), Status: e.Status}
	}

	report, err := h.Attendance.SaveDailyAttendance(r.Context(), d, marks)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportDTO(report))
}

// GetReport returns statistics for ?date=, today when omitted.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	var d attendance.Date
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, ok := parseDate(w, r, raw)
		if !ok {
			return
		}
		d = parsed
	}

	report, err := h.Attendance.Report(r.Context(), d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// ListDates returns every day with saved attendance, newest first.
func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.Attendance.AvailableDates(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := DatesResponse{Dates: make([]string, len(dates))}
	for i, d := range dates {
		resp.Dates[i] = d.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// RemoveAttendance deletes one student's record for a day.
func (h *Handler) RemoveAttendance(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDate(w, r, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}
	if err := h.Attendance.RemoveFromDate(r.Context(), d, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDay removes every record for a day. 404 when nothing was stored.
func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	d, ok := parseDate(w, r, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	deleted, err := h.Attendance.DeleteDate(r.Context(), d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "not_found", "No attendance saved for "+d.String(), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeStudent removes a student's records from every day.
func (h *Handler) PurgeStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}
	if err := h.Attendance.PurgeStudent(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. Writes the 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_failed", describeValidation(err), nil)
		return false
	}
	return true
}

// fail maps a domain error to a response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *attendance.ValidationError
		nf *attendance.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, r, http.StatusBadRequest, "validation_failed", ve.Error(), nil)
	case errors.As(err, &nf):
		writeError(w, r, http.StatusNotFound, "not_found", nf.Error(), nil)
	default:
		h.log.Errorw("Request failed",
			logger.FieldRequestID, middleware.GetReqID(r.Context()),
			logger.FieldPath, r.URL.Path,
			logger.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

func parseDate(w http.ResponseWriter, r *http.Request, raw string) (attendance.Date, bool) {
	d, err := attendance.ParseDate(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_date", "Invalid date format. Use YYYY-MM-DD", err)
		return attendance.Date{}, false
	}
	return d, true
}

func parseStudentID(w http.ResponseWriter, r *http.Request) (attendance.StudentID, bool) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "Invalid student id "+strconv.Quote(raw), nil)
		return 0, false
	}
	return attendance.StudentID(n), true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	resp := ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	}
	// Handlers mounted without the RequestID middleware still get a traceable id.
	if resp.RequestID == "" {
		resp.RequestID = uuid.NewString()
	}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
