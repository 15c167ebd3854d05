package scopes

import "gorm.io/gorm"

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithBooking(bookingID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("booking_id = ?", bookingID)
	}
}

func WithStatus(status string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", status)
	}
}

func ActiveExtensions(db *gorm.DB) *gorm.DB {
	return db.Where("status IN (?)", []string{"pending", "approved"})
}

func InLedgerOrder(db *gorm.DB) *gorm.DB {
	return db.Order("paid_at ASC, id ASC")
}
