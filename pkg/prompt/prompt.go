// Package prompt builds the completion prompts sent to the generative backend.
package prompt

import (
	"fmt"
	"strings"

	"github.com/rhuss/mediscribe/pkg/api"
)

// VisitSystemPrompt instructs the model how to turn a doctor's visit notes
// into the three-section reply.
const VisitSystemPrompt = `You are provided with notes written by a doctor from a patient's visit.
Your job is to summarize the visit for the doctor and provide an email.
Reply with exactly three sections with the headings:
### Summary of visit for the doctor's records
### Next steps for the doctor
### Draft of email to patient in patient-friendly language`

// IdeaPrompt is the fixed prompt of the idea stream.
const IdeaPrompt = "Reply with a new business idea for AI Agents, formatted with headings, sub-headings and bullet points"

// ForVisit renders the user part of the consultation prompt.
func ForVisit(v *api.VisitRequest) string {
	return fmt.Sprintf("Create the summary, next steps and draft email for:\nPatient Name: %s\nDate of Visit: %s\nNotes:\n%s",
		v.PatientName, v.DateOfVisit, v.Notes)
}

// Build joins a system prefix and a user prompt with a blank line.
// An empty system prefix yields the user prompt unchanged.
func Build(system, user string) string {
	if system == "" {
		return user
	}
	return strings.Join([]string{system, user}, "\n\n")
}

// For returns the full prompt for a stream request.
func For(req *api.StreamRequest) (string, error) {
	switch req.Kind {
	case api.StreamConsultation:
		if req.Visit == nil {
			return "", api.NewInvalidRequestError("", "visit payload is required")
		}
		if err := req.Visit.Validate(); err != nil {
			return "", err
		}
		return Build(VisitSystemPrompt, ForVisit(req.Visit)), nil
	case api.StreamIdea:
		return IdeaPrompt, nil
	default:
		return "", api.NewInvalidRequestError("", fmt.Sprintf("unknown stream kind %q", req.Kind))
	}
}
