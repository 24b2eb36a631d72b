package api

import "strings"

// VisitRequest is the payload of the consultation endpoint: the notes a
// doctor wrote during one patient visit.
type VisitRequest struct {
	PatientName string `json:"patient_name"`
	DateOfVisit string `json:"date_of_visit"`
	Notes       string `json:"notes"`
}

// Validate performs presence checks. It returns the first missing field as
// an *APIError, or nil.
func (v *VisitRequest) Validate() *APIError {
	if strings.TrimSpace(v.PatientName) == "" {
		return NewInvalidRequestError("patient_name", "patient_name is required")
	}
	if strings.TrimSpace(v.Notes) == "" {
		return NewInvalidRequestError("notes", "notes is required")
	}
	return nil
}

// StreamKind selects the prompt a stream is generated from.
type StreamKind string

const (
	// StreamConsultation summarizes a VisitRequest.
	StreamConsultation StreamKind = "consultation"

	// StreamIdea uses a fixed prompt and carries no payload.
	StreamIdea StreamKind = "idea"
)

// StreamRequest is the transport-independent input to the relay.
type StreamRequest struct {
	Kind  StreamKind
	Visit *VisitRequest
}
