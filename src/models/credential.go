package models

import "calbook/src/types"

// Credential stores a provider token set for one user. Key holds the
// AES-GCM encrypted token JSON; it is decrypted in memory only for the
// duration of an adapter call.
type Credential struct {
	ID     uint               `gorm:"primarykey" json:"id"`
	Type   types.ProviderKind `gorm:"index" json:"type"`
	Key    string             `json:"-"`
	UserID uint               `gorm:"index" json:"user_id,omitempty"`

	types.Timestamps
}
