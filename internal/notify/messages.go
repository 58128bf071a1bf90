// messages.go composes the plain-text bodies for every notification the
// application sends. Keeping composition separate from delivery lets the
// handlers test message content without a mail server.
package notify

import (
	"fmt"
	"strings"
	"time"
)

// OTPMessage builds the email carrying a one-time verification code.
// purpose is "verify your email" or "reset your password".
func OTPMessage(name, code, purpose string, ttl time.Duration) (subject, body string) {
	subject = "Your verification code"
	body = strings.Join([]string{
		fmt.Sprintf("Hello %s,", name),
		"",
		fmt.Sprintf("Use this code to %s:", purpose),
		"",
		"    " + code,
		"",
		fmt.Sprintf("The code expires in %d minutes. If you did not request it, you can ignore this email.", int(ttl.Minutes())),
	}, "\r\n")
	return subject, body
}

// JoinRequestMessage builds the alert sent to a society's president when a
// new membership application arrives.
func JoinRequestMessage(presidentName, applicantName, societyName string) (subject, body string) {
	subject = fmt.Sprintf("New join request for %s", societyName)
	body = strings.Join([]string{
		fmt.Sprintf("Hello %s,", presidentName),
		"",
		fmt.Sprintf("%s has applied to join %s.", applicantName, societyName),
		"",
		"Review the application in the member dashboard to approve or reject it.",
	}, "\r\n")
	return subject, body
}

// RequestDecisionMessage builds the status-change notice sent to an applicant
// when their request is approved or rejected. reason is included only for
// rejections and may be empty.
func RequestDecisionMessage(applicantName, societyName, status, reason string) (subject, body string) {
	subject = fmt.Sprintf("Your request to join %s was %s", societyName, strings.ToLower(status))
	lines := []string{
		fmt.Sprintf("Hello %s,", applicantName),
		"",
		fmt.Sprintf("Your membership request for %s has been %s.", societyName, strings.ToLower(status)),
	}
	if reason != "" {
		lines = append(lines, "", "Reason: "+reason)
	}
	body = strings.Join(lines, "\r\n")
	return subject, body
}

// EventRegistrationMessage builds the notice sent when an event registration
// is resolved.
func EventRegistrationMessage(name, eventTitle, status string) (subject, body string) {
	subject = fmt.Sprintf("Registration for %s: %s", eventTitle, strings.ToLower(status))
	body = strings.Join([]string{
		fmt.Sprintf("Hello %s,", name),
		"",
		fmt.Sprintf("Your registration for %s has been %s.", eventTitle, strings.ToLower(status)),
	}, "\r\n")
	return subject, body
}
