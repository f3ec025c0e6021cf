package scopes

import (
	"time"

	"gorm.io/gorm"
)

func WithUID(uid string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("uid = ?", uid)
	}
}

func WithOwner(userId uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userId)
	}
}

func ConfirmedFuture(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", "confirmed").Where("start_time > ?", time.Now())
}
