package mailer

import (
	"calbook/src/lib"
	"calbook/src/types"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// NotificationKind selects the mail variant. One render path serves every
// kind; each supplies its own intro and footer fragments instead of a
// template hierarchy.
type NotificationKind string

const (
	KindBookingConfirmed NotificationKind = "booking_confirmed"
	KindOrganizerRequest NotificationKind = "organizer_request"
	KindRescheduled      NotificationKind = "rescheduled"
	KindCanceled         NotificationKind = "canceled"
	KindPaymentRequired  NotificationKind = "payment_required"
)

// NotificationData is the flat record the renderer works from.
type NotificationData struct {
	Event      *types.MeetingEvent
	UID        string
	MeetingURL string
	PaymentURL string
}

type fragments struct {
	subject string
	intro   string
	footer  string
}

func fragmentsFor(kind NotificationKind, d *NotificationData) fragments {
	switch kind {
	case KindOrganizerRequest:
		return fragments{
			subject: fmt.Sprintf("New booking request: %s", d.Event.Title),
			intro:   "A new booking is waiting for your confirmation.",
			footer:  "Confirm or decline from your dashboard.",
		}
	case KindRescheduled:
		return fragments{
			subject: fmt.Sprintf("Rescheduled: %s", d.Event.Title),
			intro:   "Your meeting has been moved to a new time.",
			footer:  "The calendar invitation has been updated.",
		}
	case KindCanceled:
		return fragments{
			subject: fmt.Sprintf("Canceled: %s", d.Event.Title),
			intro:   "This meeting has been canceled.",
			footer:  "No further action is needed.",
		}
	case KindPaymentRequired:
		return fragments{
			subject: fmt.Sprintf("Payment required: %s", d.Event.Title),
			intro:   "Your booking is held until payment completes.",
			footer:  fmt.Sprintf("Complete your payment here: %s", d.PaymentURL),
		}
	default:
		return fragments{
			subject: fmt.Sprintf("Confirmed: %s", d.Event.Title),
			intro:   "Your meeting is confirmed.",
			footer:  "Add it to your calendar so you don't miss it.",
		}
	}
}

// Render produces the subject and plain-text body for one notification.
func Render(kind NotificationKind, d *NotificationData) (subject, body string) {
	f := fragmentsFor(kind, d)
	var b strings.Builder
	b.WriteString(f.intro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "What: %s\n", d.Event.Title)
	fmt.Fprintf(&b, "When: %s - %s\n",
		d.Event.StartTime.Format(time.RFC1123),
		d.Event.EndTime.Format(time.RFC1123))
	fmt.Fprintf(&b, "Who: %s", d.Event.Organizer.Name)
	for _, attendee := range d.Event.Attendees {
		fmt.Fprintf(&b, ", %s", attendee.Name)
	}
	b.WriteString("\n")
	if d.Event.Location != "" {
		fmt.Fprintf(&b, "Where: %s\n", d.Event.Location)
	}
	if d.MeetingURL != "" {
		fmt.Fprintf(&b, "Join: %s\n", d.MeetingURL)
	}
	if d.Event.Description != "" {
		fmt.Fprintf(&b, "Notes: %s\n", d.Event.Description)
	}
	b.WriteString("\n")
	b.WriteString(f.footer)
	b.WriteString("\n")
	return f.subject, b.String()
}

func senderAddress() (name, email string) {
	name = os.Getenv("MAIL_FROM_NAME")
	if name == "" {
		name = "Calbook"
	}
	email = os.Getenv("MAIL_FROM")
	if email == "" {
		email = "no-reply@calbook.local"
	}
	return name, email
}

// Notify renders and sends the notification to the right parties for its
// kind. Failures are logged only; mail never rolls back a booking.
func Notify(kind NotificationKind, d *NotificationData) {
	subject, body := Render(kind, d)
	fromName, from := senderAddress()

	var recipients []string
	switch kind {
	case KindOrganizerRequest:
		recipients = []string{d.Event.Organizer.Email}
	default:
		recipients = append(recipients, d.Event.Organizer.Email)
		for _, attendee := range d.Event.Attendees {
			recipients = append(recipients, attendee.Email)
		}
	}

	for _, to := range recipients {
		err := lib.SendMail(&lib.SendMailInput{
			From:     from,
			FromName: fromName,
			To:       []string{to},
			ReplyTo:  d.Event.Organizer.Email,
			Subject:  subject,
			Body:     body,
		})
		if err != nil {
			log.Printf("Could not send %s mail to %s: %s\n", kind, to, err.Error())
			continue
		}
		log.Printf("Sent %s mail for booking %s to %s\n", kind, d.UID, to)
	}
}
