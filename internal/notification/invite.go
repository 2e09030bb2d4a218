package notification

import (
	"fmt"
	"html"
	"strings"
)

// InterviewDetails holds what a candidate needs to attend an interview.
type InterviewDetails struct {
	Date         string `json:"date" validate:"required"`
	Time         string `json:"time" validate:"required"`
	Type         string `json:"type" validate:"required"`
	Duration     string `json:"duration" validate:"required"`
	Interviewers string `json:"interviewers" validate:"required"`
	Location     string `json:"location,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// InterviewInvite builds an interview invitation for a candidate.
func (c *Composer) InterviewInvite(candidateEmail, candidateName string, d InterviewDetails) Message {
	e := html.EscapeString

	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	b.WriteString(`<h2 style="color: #2563eb;">Interview Invitation</h2>`)
	fmt.Fprintf(&b, "<p>Dear %s,</p>", e(candidateName))
	b.WriteString("<p>We are pleased to invite you for an interview for the position you applied for.</p>")
	b.WriteString(`<div style="background-color: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">`)
	b.WriteString(`<h3 style="margin-top: 0; color: #374151;">Interview Details:</h3>`)
	fmt.Fprintf(&b, "<p><strong>Date:</strong> %s</p>", e(d.Date))
	fmt.Fprintf(&b, "<p><strong>Time:</strong> %s</p>", e(d.Time))
	fmt.Fprintf(&b, "<p><strong>Type:</strong> %s</p>", e(d.Type))
	fmt.Fprintf(&b, "<p><strong>Duration:</strong> %s minutes</p>", e(d.Duration))
	fmt.Fprintf(&b, "<p><strong>Interviewer(s):</strong> %s</p>", e(d.Interviewers))
	if d.Location != "" {
		fmt.Fprintf(&b, "<p><strong>Location:</strong> %s</p>", e(d.Location))
	}
	if d.Notes != "" {
		fmt.Fprintf(&b, "<p><strong>Notes:</strong> %s</p>", e(d.Notes))
	}
	b.WriteString("</div>")
	b.WriteString("<p>Please confirm your attendance by replying to this email.</p>")
	b.WriteString("<p>If you have any questions or need to reschedule, please don't hesitate to contact us.</p>")
	fmt.Fprintf(&b, "<p>Best regards,<br>The %s Team</p>", e(c.company))
	b.WriteString("</div>")

	return Message{
		To:       candidateEmail,
		Subject:  fmt.Sprintf("Interview Invitation - %s Interview", d.Type),
		HTMLBody: b.String(),
	}
}
