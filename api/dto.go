/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the attendance domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Wrappers

TYPES:
  Students:
    StudentDTO, CreateStudentRequest

  Attendance:
    AttendanceEntryDTO, SaveAttendanceRequest, MarkRequest

  Reports:
    ReportDTO, DatesResponse

VALIDATION:
  Request types carry validator/v10 struct tags; handlers call
  Handler.validate before touching the domain.

SEE ALSO:
  - handlers.go: Uses these types
  - validation.go: Custom validation rules
*/
package api

import (
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO represents a roster entry in API responses.
type StudentDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CreationDate string `json:"creation_date"`
}

// CreateStudentRequest is the body for adding a student.
// CreationDate is optional (YYYY-MM-DD); it defaults to today.
type CreateStudentRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100,personname"`
	CreationDate string `json:"creation_date,omitempty"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceEntryDTO is one row of a day's attendance.
// Status is null until a record has been saved for the student.
type AttendanceEntryDTO struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Status *string `json:"status"`
	Date   string  `json:"date"`
	Orphan bool    `json:"orphan,omitempty"`
}

// MarkRequest is one student's status in a save request.
type MarkRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required"`
}

// SaveAttendanceRequest is the body for saving a day.
type SaveAttendanceRequest struct {
	Date    string        `json:"date" validate:"required"`
	Entries []MarkRequest `json:"entries" validate:"required,min=1,dive"`
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportDTO summarizes one day.
type ReportDTO struct {
	Date           string               `json:"date"`
	TotalStudents  int                  `json:"total_students"`
	PresentCount   int                  `json:"present_count"`
	AbsentCount    int                  `json:"absent_count"`
	UnsetCount     int                  `json:"unset_count"`
	AttendanceRate float64              `json:"attendance_rate"`
	Students       []AttendanceEntryDTO `json:"students"`
}

// DatesResponse lists the days that have attendance files, newest first.
type DatesResponse struct {
	Dates []string `json:"dates"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStudentDTO(s attendance.StudentIdentity) StudentDTO {
	return StudentDTO{
		ID:           int64(s.ID),
		Name:         s.Name,
		CreationDate: s.CreationDate.String(),
	}
}

func toStudentDTOs(students []attendance.StudentIdentity) []StudentDTO {
	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	return dtos
}

func toEntryDTO(e attendance.Entry) AttendanceEntryDTO {
	dto := AttendanceEntryDTO{
		ID:     int64(e.StudentID),
		Name:   e.Name,
		Date:   e.Date.String(),
		Orphan: e.Orphan,
	}
	if e.Status.IsSet() {
		dto.Status = strPtr(string(e.Status))
	}
	return dto
}

func toEntryDTOs(entries []attendance.Entry) []AttendanceEntryDTO {
	dtos := make([]AttendanceEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toReportDTO(r attendance.Report) ReportDTO {
	return ReportDTO{
		Date:           r.Date.String(),
		TotalStudents:  r.Total,
		PresentCount:   r.Present,
		AbsentCount:    r.Absent,
		UnsetCount:     r.Unset,
		AttendanceRate: r.RateFloat(),
		Students:       toEntryDTOs(r.Entries),
	}
}

func strPtr(s string) *string {
	return &s
}
