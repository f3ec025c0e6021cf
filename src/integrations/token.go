package integrations

import (
	"calbook/src/config"
	"calbook/src/db"
	"calbook/src/models"
	"encoding/json"
	"log"

	"golang.org/x/oauth2"
)

// Concurrent refreshes are capped so a burst of bookings cannot stampede a
// provider's token endpoint.
const maxConcurrentRefreshes = 5

var refreshGate = make(chan struct{}, maxConcurrentRefreshes)

func acquireRefreshSlot() func() {
	refreshGate <- struct{}{}
	return func() { <-refreshGate }
}

func decryptToken(cred *models.Credential) (*oauth2.Token, error) {
	raw, err := SymmetricDecrypt(cred.Key, config.EncryptionKey())
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// persistToken re-encrypts and stores a refreshed token set. Concurrent
// refreshes of the same credential race; last writer wins, which is fine
// since every resulting token is a valid bearer.
func persistToken(cred *models.Credential, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	enc, err := SymmetricEncrypt(string(raw), config.EncryptionKey())
	if err != nil {
		return err
	}
	conn := db.GetDb()
	if err := conn.
		Model(&models.Credential{}).
		Where("id = ?", cred.ID).
		Update("key", enc).
		Error; err != nil {
		log.Printf("Could not persist refreshed token for credential %d: %s\n", cred.ID, err.Error())
		return err
	}
	cred.Key = enc
	return nil
}

// EncryptToken seals a token set for storage on a credential row. Used when
// an integration is first connected and by test fixtures.
func EncryptToken(tok *oauth2.Token) (string, error) {
	raw, err := json.Marshal(tok)
	if err != nil {
		return "", err
	}
	return SymmetricEncrypt(string(raw), config.EncryptionKey())
}
