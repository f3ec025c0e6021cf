package utils

import (
	"calbook/src/config"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
)

// NewBookingUID derives the idempotency key for a fresh booking. Retries of
// the same logical request carry the uid forward instead of deriving a new
// one.
func NewBookingUID(username string, start time.Time) string {
	seed := fmt.Sprintf("%s:%s:%d", username, start.UTC().Format(time.RFC3339), time.Now().UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// NewCancelSecret returns a random secret for attendee-side cancellation
// and the bcrypt hash the ledger stores. The plaintext leaves the system
// exactly once, in the booking response.
func NewCancelSecret() (secret string, hash []byte, err error) {
	raw := make([]byte, 16)
	if _, err = rand.Read(raw); err != nil {
		return "", nil, err
	}
	secret = hex.EncodeToString(raw)
	hash, err = bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	return secret, hash, nil
}

func CheckCancelSecret(hash []byte, secret string) bool {
	if len(hash) == 0 || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}

func Slugify(title string) string {
	return slug.Make(title)
}

func ParseRequestTime(value string) (time.Time, error) {
	return time.Parse(config.TIME_PARSE_FORMAT, value)
}
