package email

import (
	"fmt"
	"strings"
)

type Message struct {
	Subject string
	Body    string
}

type ConfirmationDetails struct {
	FacilityName string
	CourtName    string
	Date         string
	TimeRange    string
	AmountCents  int64
}

type CancellationDetails struct {
	FacilityName     string
	CourtName        string
	Date             string
	TimeRange        string
	Reason           string
	RefundCents      int64
	RefundPercentage int64
}

// FormatTimeRange renders "HH:MM"-style start and end as a display range.
func FormatTimeRange(start, end string) string {
	return fmt.Sprintf("%s - %s", start, end)
}

// BuildConfirmation composes the booking confirmation email.
func BuildConfirmation(details ConfirmationDetails) Message {
	facilityName := strings.TrimSpace(details.FacilityName)
	if facilityName == "" {
		facilityName = "your facility"
	}
	courtName := strings.TrimSpace(details.CourtName)
	if courtName == "" {
		courtName = "TBD"
	}

	subject := fmt.Sprintf("Booking Confirmed - %s", facilityName)

	lines := []string{
		"Your court booking is confirmed.",
		"",
		fmt.Sprintf("Facility: %s", facilityName),
		fmt.Sprintf("Court: %s", courtName),
		fmt.Sprintf("Date: %s", strings.TrimSpace(details.Date)),
		fmt.Sprintf("Time: %s", strings.TrimSpace(details.TimeRange)),
		fmt.Sprintf("Amount paid: %s", formatCents(details.AmountCents)),
		"",
		"Cancellation policy: full refund with 24 hours notice, 50% refund",
		"with 12-24 hours notice, no refund with less than 12 hours notice.",
	}

	return Message{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildCancellation composes the booking cancellation email.
func BuildCancellation(details CancellationDetails) Message {
	facilityName := strings.TrimSpace(details.FacilityName)
	if facilityName == "" {
		facilityName = "your facility"
	}
	courtName := strings.TrimSpace(details.CourtName)
	if courtName == "" {
		courtName = "TBD"
	}

	subject := fmt.Sprintf("Booking Cancelled - %s", facilityName)

	lines := []string{
		"Your court booking has been cancelled.",
		"",
		fmt.Sprintf("Facility: %s", facilityName),
		fmt.Sprintf("Court: %s", courtName),
		fmt.Sprintf("Date: %s", strings.TrimSpace(details.Date)),
		fmt.Sprintf("Time: %s", strings.TrimSpace(details.TimeRange)),
	}

	reason := strings.TrimSpace(details.Reason)
	if reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", reason))
	}

	if details.RefundCents > 0 {
		lines = append(lines, fmt.Sprintf("Refund: %s (%d%%)",
			formatCents(details.RefundCents), details.RefundPercentage))
	} else {
		lines = append(lines, "Refund: none")
	}

	return Message{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
