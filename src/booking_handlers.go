package main

import (
	"calbook/src/availability"
	"calbook/src/bookings"
	"calbook/src/config"
	"calbook/src/db"
	"calbook/src/events"
	"calbook/src/integrations"
	"calbook/src/lib"
	"calbook/src/mailer"
	"calbook/src/models"
	"calbook/src/models/scopes"
	"calbook/src/scheduling"
	"calbook/src/types"
	"calbook/src/utils"
	"calbook/src/webhooks"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

const securityCheckHeader = "X-Booking-Security-Check"

func hostLocation(host *models.User) *time.Location {
	loc, err := time.LoadLocation(host.TimeZone)
	if err != nil {
		log.Printf("Unknown time zone %q for %s, falling back to UTC\n", host.TimeZone, host.Username)
		return time.UTC
	}
	return loc
}

func policyFor(eventType *models.EventType) availability.Policy {
	return availability.Policy{
		Type:              eventType.PeriodType,
		Days:              eventType.PeriodDays,
		CountCalendarDays: eventType.PeriodCountCalendarDays,
		StartDate:         eventType.PeriodStartDate,
		EndDate:           eventType.PeriodEndDate,
	}
}

// securityCheck validates the encrypted eventTypeID__username pair the
// booking page embeds. Requests that never rendered the page carry no
// header and are rejected before any side effect.
func securityCheck(ctx *gin.Context, eventTypeID uint, username string) (errorCode string) {
	sealed := ctx.GetHeader(securityCheckHeader)
	if sealed == "" {
		return "NoSecurityCheck"
	}
	plain, err := integrations.SymmetricDecrypt(sealed, config.EncryptionKey())
	if err != nil {
		log.Printf("Error decrypting security check: %s\n", err.Error())
		return "FailedSecurityCheck"
	}
	parts := strings.Split(plain, "__")
	if len(parts) != 2 || parts[0] != strconv.FormatUint(uint64(eventTypeID), 10) || parts[1] != username {
		return "FailedSecurityCheck"
	}
	return ""
}

func claimsFromAuthHeader(ctx *gin.Context) *types.HostClaims {
	header := ctx.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil
	}
	claims := &types.HostClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}
	return claims
}

func publicBookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := utils.ParseRequestTime(body.Start)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseRequestTime(body.End)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !end.After(start) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
				return
			}
			now := time.Now()
			conn := db.GetDb()
			var eventType models.EventType
			err = conn.
				Model(&models.EventType{}).
				Preload("Owner.Credentials").
				Preload("HostLinks", func(tx *gorm.DB) *gorm.DB {
					return tx.Order("position asc")
				}).
				Preload("HostLinks.User.Credentials").
				Where("id = ?", body.EventTypeID).
				First(&eventType).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "eventType.notFound"})
				return
			}
			hosts := eventType.Hosts()
			if len(hosts) == 0 && eventType.Owner != nil {
				hosts = []*models.User{eventType.Owner}
			}
			if len(hosts) == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "eventTypeUser.notFound"})
				return
			}

			// Day boundaries are the host's, like every other window check.
			if availability.IsInPast(start, now, hostLocation(hosts[0])) {
				ctx.JSON(http.StatusBadRequest, gin.H{
					"error_code": "BookingDateInPast",
					"message":    "Attempting to create a meeting in the past.",
				})
				return
			}

			if code := securityCheck(ctx, eventType.ID, hosts[0].Username); code != "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error_code": code, "message": "Booking request rejected"})
				return
			}

			var futureCounts map[uint]int
			if eventType.SchedulingType == types.SCHEDULING_ROUND_ROBIN {
				ids := make([]uint, 0, len(hosts))
				for _, host := range hosts {
					ids = append(ids, host.ID)
				}
				futureCounts, err = bookings.FutureConfirmedCounts(conn, ids)
				if err != nil {
					log.Printf("Error counting future bookings: %s\n", err.Error())
					futureCounts = nil
				}
			}
			selected, err := scheduling.SelectHosts(eventType.SchedulingType, hosts, body.Users, futureCounts)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "eventTypeUser.notFound"})
				return
			}
			organizer := selected[0]

			attendees := []types.Person{{Name: body.Name, Email: body.Email, TimeZone: body.TimeZone}}
			for _, guest := range body.Guests {
				attendees = append(attendees, types.Person{Email: guest, TimeZone: body.TimeZone})
			}
			for _, member := range selected[1:] {
				attendees = append(attendees, types.Person{Name: member.Name, Email: member.Email, TimeZone: member.TimeZone})
			}

			event := &types.MeetingEvent{
				Type:        eventType.Title,
				Title:       fmt.Sprintf("%s between %s and %s", eventType.Title, organizer.Name, body.Name),
				Description: body.Notes,
				StartTime:   start,
				EndTime:     end,
				Location:    body.Location,
				Organizer: types.Person{
					Name:     organizer.Name,
					Email:    organizer.Email,
					TimeZone: organizer.TimeZone,
				},
				Attendees: attendees,
			}

			policy := policyFor(&eventType)
			for _, host := range selected {
				if !availability.IsWithinPolicy(start, policy, hostLocation(host), now) {
					ctx.JSON(http.StatusBadRequest, gin.H{
						"error_code": "BookingOutOfBounds",
						"message":    "Attempting to create a meeting outside of the allowed range.",
					})
					return
				}
			}

			registry := integrations.DefaultRegistry()
			busyByHost, degradations := availability.AggregateBusy(ctx, registry, selected, start.Add(-24*time.Hour), end.Add(24*time.Hour))
			for _, d := range degradations {
				log.Printf("Busy times degraded for host %d (%s): %s\n", d.HostID, d.Provider, d.Err.Error())
			}
			var busy []types.BusyInterval
			if eventType.SchedulingType == types.SCHEDULING_COLLECTIVE {
				busy = availability.UnionBusy(busyByHost)
			} else {
				busy = busyByHost[organizer.ID]
			}
			if eventType.BufferMinutes > 0 {
				busy = availability.PadIntervals(busy, eventType.BufferMinutes)
			}
			if !availability.IsAvailable(busy, start, eventType.Length) {
				if eventType.AdvisoryConflicts {
					log.Printf("Advisory conflict for %s at %s, booking anyway\n", organizer.Username, start.Format(time.RFC3339))
				} else {
					ctx.JSON(http.StatusBadRequest, gin.H{
						"error_code": "BookingUserUnavailable",
						"message":    fmt.Sprintf("%s is unavailable at this time.", organizer.Name),
					})
					return
				}
			}

			reschedule := body.RescheduleUID != ""
			uid := body.RescheduleUID
			if !reschedule {
				uid = utils.NewBookingUID(organizer.Username, start)
			}
			confirmed := reschedule || (!eventType.RequiresConfirmation && eventType.Price == 0)

			cancelSecret, cancelHash, err := utils.NewCancelSecret()
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Error while saving booking"})
				return
			}

			booking, err := bookings.Reserve(conn, &bookings.ReserveInput{
				UID:              uid,
				EventTypeID:      eventType.ID,
				HostID:           organizer.ID,
				Event:            event,
				Attendees:        attendees,
				Reschedule:       reschedule,
				Confirmed:        confirmed,
				CancelSecretHash: cancelHash,
				Metadata:         types.JSONB{"attendee_time_zone": body.TimeZone},
			})
			if err != nil {
				if errors.Is(err, bookings.ErrNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"message": "booking.notFound"})
					return
				}
				log.Printf("Error reserving booking: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Error while saving booking"})
				return
			}
			// A replayed uid that belongs to another reservation is misuse,
			// not an idempotent retry.
			if booking.EventTypeID != eventType.ID {
				ctx.JSON(http.StatusConflict, gin.H{
					"error_code": "BookingConflict",
					"message":    "uid is already taken by another reservation",
				})
				return
			}

			// Reload after the busy-time fan-out: token refreshes during
			// polling persist rotated credentials.
			var creds []*models.Credential
			if err := conn.Where("user_id = ?", organizer.ID).Find(&creds).Error; err != nil {
				log.Printf("Error reloading credentials: %s\n", err.Error())
			}
			manager := events.NewManager(registry, creds)

			out := &events.CreateUpdateResult{}
			if reschedule {
				out = manager.Update(ctx, event, booking.References)
				if err := bookings.ReplaceReferences(conn, booking.ID, out.References); err != nil {
					log.Printf("Error replacing references: %s\n", err.Error())
				}
				if out.AllFailed() {
					log.Printf("BookingReschedulingMeetingFailed for %s\n", booking.UID)
				}
			} else if confirmed {
				out = manager.Create(ctx, event)
				if err := bookings.ReplaceReferences(conn, booking.ID, out.References); err != nil {
					log.Printf("Error replacing references: %s\n", err.Error())
				}
				if out.AllFailed() {
					log.Printf("BookingCreatingMeetingFailed for %s\n", booking.UID)
				}
			}
			var meetingURL string
			for _, res := range out.Results {
				if res.Success && res.Artifact != nil && res.Artifact.MeetingURL != "" {
					meetingURL = res.Artifact.MeetingURL
					break
				}
			}

			notification := &mailer.NotificationData{Event: event, UID: booking.UID, MeetingURL: meetingURL}

			if eventType.Price > 0 && !reschedule {
				paymentURL, err := lib.CreateBookingPaymentSession(ctx, booking.UID, event.Title, eventType.Price, eventType.Currency)
				if err != nil {
					log.Printf("Error creating payment session: %s\n", err.Error())
					ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Payment Failed"})
					return
				}
				notification.PaymentURL = paymentURL
				go mailer.Notify(mailer.KindPaymentRequired, notification)
				ctx.JSON(http.StatusCreated, gin.H{
					"data":          booking,
					"results":       out.Results,
					"payment_url":   paymentURL,
					"cancel_secret": cancelSecret,
					"message":       "Payment required",
				})
				return
			}

			kind := mailer.KindBookingConfirmed
			trigger := types.TRIGGER_BOOKING_CREATED
			if reschedule {
				kind = mailer.KindRescheduled
				trigger = types.TRIGGER_BOOKING_RESCHEDULED
			} else if eventType.RequiresConfirmation {
				kind = mailer.KindOrganizerRequest
			}
			go mailer.Notify(kind, notification)
			go webhooks.DispatchAll(conn, lib.GetRedisClient(), organizer.ID, trigger, booking.UID, start.Format(time.RFC3339), booking)
			go func(uid string, b *models.Booking) {
				if err := lib.KafkaProduceMessage("bookings", types.JSONB{
					"trigger": string(trigger),
					"uid":     uid,
					"booking": b,
				}); err != nil {
					log.Printf("Error producing booking message: %s\n", err.Error())
				}
			}(booking.UID, booking)

			ctx.JSON(http.StatusCreated, gin.H{
				"data":          booking,
				"results":       out.Results,
				"cancel_secret": cancelSecret,
			})
		}).
		DELETE("/bookings/:uid", func(ctx *gin.Context) {
			var params types.UidRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CancelBookingRequestBody
			_ = ctx.ShouldBindJSON(&body)

			conn := db.GetDb()
			var booking models.Booking
			err := conn.
				Model(&models.Booking{}).
				Scopes(scopes.WithUID(params.UID)).
				Preload("References").
				Preload("User.Credentials").
				Preload("Attendees").
				First(&booking).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "booking.notFound"})
				return
			}

			authorized := false
			if claims := claimsFromAuthHeader(ctx); claims != nil && claims.UserID == booking.UserID {
				authorized = true
			}
			if !authorized && utils.CheckCancelSecret(booking.CancelSecretHash, body.CancelSecret) {
				authorized = true
			}
			// Bookings already in the past can be cleaned up by anyone
			// holding the uid.
			if !authorized && booking.StartTime != nil && booking.StartTime.Before(time.Now()) {
				authorized = true
			}
			if !authorized {
				ctx.Status(http.StatusUnauthorized)
				return
			}

			canceled, alreadyCanceled, err := bookings.Cancel(conn, params.UID)
			if err != nil {
				log.Printf("Error cancelling booking %s: %s\n", params.UID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Error while cancelling booking"})
				return
			}
			if alreadyCanceled {
				ctx.JSON(http.StatusOK, gin.H{"data": canceled, "message": "booking.alreadyCancelled"})
				return
			}

			refs := booking.References
			var creds []*models.Credential
			if booking.User != nil {
				creds = booking.User.Credentials
			}
			go func() {
				manager := events.NewManager(integrations.DefaultRegistry(), creds)
				manager.Delete(context.Background(), refs)
			}()

			event := &types.MeetingEvent{
				Title:       booking.Title,
				Description: booking.Description,
				Location:    booking.Location,
			}
			if booking.StartTime != nil {
				event.StartTime = *booking.StartTime
			}
			if booking.EndTime != nil {
				event.EndTime = *booking.EndTime
			}
			if booking.User != nil {
				event.Organizer = types.Person{Name: booking.User.Name, Email: booking.User.Email, TimeZone: booking.User.TimeZone}
			}
			for _, attendee := range booking.Attendees {
				event.Attendees = append(event.Attendees, types.Person{Name: attendee.Name, Email: attendee.Email, TimeZone: attendee.TimeZone})
			}
			go mailer.Notify(mailer.KindCanceled, &mailer.NotificationData{Event: event, UID: booking.UID})

			ctx.JSON(http.StatusOK, gin.H{"data": canceled})
		})
	return g
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("user")
			conn := db.GetDb()
			list, err := bookings.ListUpcomingForHost(conn, userId)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": list})
		}).
		POST("/bookings/:uid/confirm", func(ctx *gin.Context) {
			var params types.UidRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("user")
			conn := db.GetDb()
			var booking models.Booking
			err := conn.
				Model(&models.Booking{}).
				Scopes(scopes.WithUID(params.UID), scopes.WithOwner(userId)).
				Preload("References").
				Preload("User.Credentials").
				Preload("Attendees").
				First(&booking).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "booking.notFound"})
				return
			}
			if booking.Status == types.BOOKING_CONFIRMED {
				ctx.JSON(http.StatusOK, gin.H{"data": booking, "message": "booking.alreadyConfirmed"})
				return
			}
			if err := bookings.Confirm(conn, params.UID); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"message": "Error while confirming booking"})
				return
			}
			booking.Status = types.BOOKING_CONFIRMED

			event := &types.MeetingEvent{
				Title:       booking.Title,
				Description: booking.Description,
				Location:    booking.Location,
			}
			if booking.StartTime != nil {
				event.StartTime = *booking.StartTime
			}
			if booking.EndTime != nil {
				event.EndTime = *booking.EndTime
			}
			if booking.User != nil {
				event.Organizer = types.Person{Name: booking.User.Name, Email: booking.User.Email, TimeZone: booking.User.TimeZone}
			}
			for _, attendee := range booking.Attendees {
				event.Attendees = append(event.Attendees, types.Person{Name: attendee.Name, Email: attendee.Email, TimeZone: attendee.TimeZone})
			}

			registry := integrations.DefaultRegistry()
			var creds []*models.Credential
			if booking.User != nil {
				creds = booking.User.Credentials
			}
			manager := events.NewManager(registry, creds)
			out := manager.Create(ctx, event)
			if err := bookings.ReplaceReferences(conn, booking.ID, out.References); err != nil {
				log.Printf("Error replacing references: %s\n", err.Error())
			}

			var meetingURL string
			for _, res := range out.Results {
				if res.Success && res.Artifact != nil && res.Artifact.MeetingURL != "" {
					meetingURL = res.Artifact.MeetingURL
					break
				}
			}
			go mailer.Notify(mailer.KindBookingConfirmed, &mailer.NotificationData{Event: event, UID: booking.UID, MeetingURL: meetingURL})
			go webhooks.DispatchAll(conn, lib.GetRedisClient(), userId, types.TRIGGER_BOOKING_CREATED, booking.UID, event.StartTime.Format(time.RFC3339), booking)

			ctx.JSON(http.StatusOK, gin.H{"data": booking, "results": out.Results})
		})
	return g
}
