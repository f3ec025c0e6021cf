package webhooks

import (
	"bytes"
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const deliveryTimeout = 10 * time.Second

// dedupTTL bounds the at-most-once guard window. One trigger per subscriber
// per booking operation inside it.
const dedupTTL = 24 * time.Hour

var httpClient = &http.Client{Timeout: deliveryTimeout}

// Payload is the wire shape delivered to every subscriber.
type Payload struct {
	TriggerEvent types.WebhookTrigger `json:"triggerEvent"`
	CreatedAt    string               `json:"createdAt"`
	Payload      any                  `json:"payload"`
}

// SubscriberURLs returns the active subscriber URLs of a host for one
// trigger.
func SubscriberURLs(conn *gorm.DB, userID uint, trigger types.WebhookTrigger) ([]string, error) {
	var hooks []models.Webhook
	err := conn.
		Model(&models.Webhook{}).
		Where(&models.Webhook{UserID: userID}).
		Where("active = ?", true).
		Find(&hooks).
		Error
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, hook := range hooks {
		for _, t := range hook.EventTriggers {
			if t == string(trigger) {
				urls = append(urls, hook.SubscriberURL)
				break
			}
		}
	}
	return urls, nil
}

// SendPayload posts one payload to one subscriber. A non-2xx response is an
// error for the caller to log; deliveries are never retried in the request
// path.
func SendPayload(ctx context.Context, trigger types.WebhookTrigger, subscriberURL string, body any) error {
	payload := Payload{
		TriggerEvent: trigger,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Payload:      body,
	}
	raw, err := json.Marshal(&payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscriberURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("subscriber %s returned status %d", subscriberURL, resp.StatusCode)
	}
	return nil
}

// dedupKey identifies one delivery attempt. opToken discriminates between
// operations on the same booking, so a later reschedule is a fresh delivery
// while a replay of the same operation is not.
func dedupKey(bookingUID, opToken string, trigger types.WebhookTrigger, subscriberURL string) string {
	sum := sha1.Sum([]byte(subscriberURL))
	return fmt.Sprintf("webhook:%s:%s:%s:%s", bookingUID, opToken, trigger, hex.EncodeToString(sum[:]))
}

// DispatchAll delivers one trigger to every subscriber of the host. It is
// called from a goroutine after the booking response is committed; every
// attempt is logged with its outcome and failures never touch the booking.
// When redis is available a SETNX guard enforces at-most-once per trigger,
// subscriber and booking operation; callers pass an opToken naming the
// operation (e.g. the reserved start time).
func DispatchAll(conn *gorm.DB, rdb *redis.Client, userID uint, trigger types.WebhookTrigger, bookingUID, opToken string, body any) {
	urls, err := SubscriberURLs(conn, userID, trigger)
	if err != nil {
		log.Printf("Could not load webhook subscribers for user %d: %s\n", userID, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout*2)
	defer cancel()
	for _, url := range urls {
		if rdb != nil {
			ok, err := rdb.SetNX(ctx, dedupKey(bookingUID, opToken, trigger, url), 1, dedupTTL).Result()
			if err != nil {
				log.Printf("Webhook dedup check failed for %s, delivering anyway: %s\n", url, err.Error())
			} else if !ok {
				log.Printf("Webhook %s for booking %s already delivered to %s, skipping\n", trigger, bookingUID, url)
				continue
			}
		}
		if err := SendPayload(ctx, trigger, url, body); err != nil {
			log.Printf("Error executing webhook for event %s, URL %s: %s\n", trigger, url, err.Error())
			continue
		}
		log.Printf("Delivered webhook %s for booking %s to %s\n", trigger, bookingUID, url)
	}
}
