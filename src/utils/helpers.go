package utils

import (
	"crms/src/config"
	"crms/src/db"
	"crms/src/ledger"
	"crms/src/lib"
	"crms/src/lib/mailer"
	"crms/src/models"
	"crms/src/types"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ParseTime accepts the full timestamp layout and falls back to a bare
// date for callers that only care about the day.
func ParseTime(value string) (time.Time, error) {
	t, err := time.Parse(config.TIME_PARSE_FORMAT, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(config.DATE_PARSE_FORMAT, value)
}

func GenerateBookingNumber() string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("BK-%s-%s", time.Now().Format("20060102"), short)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func CreateToken(user *models.User) (string, error) {
	claims := types.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
		Email: user.Email,
		Role:  user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func CarSlug(make, model, plate string) string {
	return slug.Make(fmt.Sprintf("%s %s %s", make, model, plate))
}

// CreateNewBooking opens an unpriced booking. Pricing happens at approval,
// so the booking starts with no total amount and a pending payment status.
func CreateNewBooking(params *types.CreateBookingRequestBody, customerID uint) (uint, error) {
	startDate, err := ParseTime(params.StartDate)
	if err != nil {
		log.Printf("Error parsing start_date: %s\n", err.Error())
		return 0, err
	}
	endDate, err := ParseTime(params.EndDate)
	if err != nil {
		log.Printf("Error parsing end_date: %s\n", err.Error())
		return 0, err
	}

	booking := models.Booking{
		BookingNumber:   GenerateBookingNumber(),
		Status:          types.BOOKING_PENDING,
		PaymentStatus:   types.PAYMENT_PENDING,
		StartDate:       startDate,
		EndDate:         endDate,
		PickupLocation:  params.PickupLocation,
		DropoffLocation: params.DropoffLocation,
		WithDriver:      params.WithDriver,
		Notes:           params.Notes,
		CustomerID:      customerID,
		CarID:           params.CarID,
	}

	conn := db.GetDb()
	err = conn.Transaction(func(tx *gorm.DB) error {
		var car models.Car
		if err := tx.Where(&models.Car{ID: params.CarID}).First(&car).Error; err != nil {
			return fmt.Errorf("car %d does not exist", params.CarID)
		}
		if car.Status == types.CAR_MAINTENANCE || car.Status == types.CAR_RETIRED {
			return errors.New("car is not available for rental")
		}
		var overlapping int64
		if err := tx.
			Model(&models.Booking{}).
			Where("car_id = ? AND status IN (?)", params.CarID, []types.BookingStatus{
				types.BOOKING_CONFIRMED,
				types.BOOKING_IN_PROGRESS,
			}).
			Where("start_date < ? AND end_date > ?", endDate, startDate).
			Count(&overlapping).
			Error; err != nil {
			return err
		}
		if overlapping > 0 {
			return errors.New("car is already booked for the requested dates")
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		event := models.EventLog{
			Type:      "booking.created",
			BookingID: &booking.ID,
			Initiator: "user",
			Metadata: types.JSONB{
				"booking_number": booking.BookingNumber,
				"car_id":         booking.CarID,
			},
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return 0, err
	}
	return booking.ID, nil
}

// ApproveBooking prices a pending booking and confirms it. The balance
// becomes collectible from here on.
func ApproveBooking(id uint, totalAmount decimal.Decimal, driverID *uint, approvedByID uint) error {
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return ledger.ErrInvalidAmount
	}
	conn := db.GetDb()
	var booking models.Booking
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Booking{ID: id}).First(&booking).Error; err != nil {
			return ledger.ErrBookingNotFound
		}
		if booking.Status != types.BOOKING_PENDING {
			return ledger.ErrInvalidTransition
		}
		if driverID != nil {
			var driver models.Driver
			if err := tx.Where(&models.Driver{ID: *driverID, Status: types.DRIVER_ACTIVE}).First(&driver).Error; err != nil {
				return errors.New("driver is not available")
			}
			assignment := models.DriverAssignment{
				DriverID:   *driverID,
				BookingID:  booking.ID,
				ShiftStart: booking.StartDate,
				ShiftEnd:   booking.EndDate,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: id}).
			Updates(map[string]any{
				"status":         types.BOOKING_CONFIRMED,
				"payment_status": types.PAYMENT_UNPAID,
				"total_amount":   totalAmount,
				"driver_id":      driverID,
			}).Error; err != nil {
			return err
		}
		event := models.EventLog{
			Type:      "booking.approved",
			BookingID: &booking.ID,
			Initiator: "user",
			Metadata: types.JSONB{
				"total_amount": totalAmount.String(),
			},
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}
	go NotifyBookingApproved(&booking, totalAmount)
	return nil
}

// CancelBooking aborts a booking that has not started. Money already taken
// is handled separately through the refund flow.
func CancelBooking(id uint, reason string, canceledByID uint) error {
	conn := db.GetDb()
	return conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Where(&models.Booking{ID: id}).First(&booking).Error; err != nil {
			return ledger.ErrBookingNotFound
		}
		if booking.Status != types.BOOKING_PENDING && booking.Status != types.BOOKING_CONFIRMED {
			return ledger.ErrInvalidTransition
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: id}).
			Update("status", types.BOOKING_CANCELED).
			Error; err != nil {
			return err
		}
		// pending extensions die with the booking
		if err := tx.
			Model(&models.Extension{}).
			Where(&models.Extension{BookingID: id, Status: types.EXTENSION_PENDING}).
			Update("status", types.EXTENSION_ADMIN_CANCELED).
			Error; err != nil {
			return err
		}
		event := models.EventLog{
			Type:      "booking.canceled",
			BookingID: &booking.ID,
			Initiator: "user",
			Metadata:  types.JSONB{"reason": reason},
		}
		return tx.Create(&event).Error
	})
}

// CompleteBooking closes out an in-progress rental and frees the car.
func CompleteBooking(id uint, completedByID uint) error {
	conn := db.GetDb()
	return conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Where(&models.Booking{ID: id}).First(&booking).Error; err != nil {
			return ledger.ErrBookingNotFound
		}
		if booking.Status != types.BOOKING_IN_PROGRESS {
			return ledger.ErrInvalidTransition
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: id}).
			Update("status", types.BOOKING_COMPLETED).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Car{}).
			Where("id = ? AND status = ?", booking.CarID, types.CAR_RENTED).
			Update("status", types.CAR_AVAILABLE).
			Error; err != nil {
			return err
		}
		event := models.EventLog{
			Type:      "booking.completed",
			BookingID: &booking.ID,
			Initiator: "user",
		}
		return tx.Create(&event).Error
	})
}

// BookingView flattens a booking into the API payload with derived ledger
// totals and the extension view fields.
func BookingView(booking *models.Booking) types.APIResponseBooking {
	totals := ledger.BookingTotals(booking)
	view := types.APIResponseBooking{
		ID:              booking.ID,
		BookingNumber:   booking.BookingNumber,
		Status:          string(booking.Status),
		PaymentStatus:   string(booking.PaymentStatus),
		TotalPaid:       totals.TotalPaid.String(),
		Balance:         totals.Balance.String(),
		StartDate:       &booking.StartDate,
		EndDate:         &booking.EndDate,
		PickupLocation:  booking.PickupLocation,
		DropoffLocation: booking.DropoffLocation,
		CustomerID:      booking.CustomerID,
		CarID:           booking.CarID,
		DriverID:        booking.DriverID,
		IsExtended:      booking.IsExtended(),
		Timestamps:      booking.Timestamps,
	}
	if booking.TotalAmount != nil {
		s := booking.TotalAmount.String()
		view.TotalAmount = &s
	}
	if active := booking.ActiveExtension(); active != nil {
		view.IsExtend = true
		view.NewEndDate = &active.NewEndDate
		view.IsPay = active.Status == types.EXTENSION_APPROVED &&
			booking.PaymentStatus != types.PAYMENT_PAID
	}
	return view
}

func NotifyBookingApproved(booking *models.Booking, totalAmount decimal.Decimal) {
	conn := db.GetDb()
	var customer models.User
	if err := conn.Where(&models.User{ID: booking.CustomerID}).First(&customer).Error; err != nil {
		log.Printf("Could not load customer %d: %s\n", booking.CustomerID, err.Error())
		return
	}
	if customer.Email == "" {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking %s has been approved. The rental total is %s. You can settle the balance in cash, GCash or bank transfer.\n",
		customer.Name, booking.BookingNumber, totalAmount.StringFixed(2),
	)
	input := lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: "Car Rentals",
		To:       []string{customer.Email},
		Subject:  fmt.Sprintf("Booking %s approved", booking.BookingNumber),
		Body:     body,
	}
	if err := mailer.NewMailerMessage(&input); err != nil {
		log.Printf("Failed to notify customer for booking %d: %s\n", booking.ID, err.Error())
	}
}

func NotifyPaymentReceived(booking *models.Booking, payment *models.Payment) {
	conn := db.GetDb()
	var customer models.User
	if err := conn.Where(&models.User{ID: booking.CustomerID}).First(&customer).Error; err != nil {
		log.Printf("Could not load customer %d: %s\n", booking.CustomerID, err.Error())
		return
	}
	if customer.Email == "" {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received your payment of %s for booking %s. Remaining balance: %s.\n",
		customer.Name, payment.Amount.StringFixed(2), booking.BookingNumber, payment.Balance.StringFixed(2),
	)
	input := lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: "Car Rentals",
		To:       []string{customer.Email},
		Subject:  fmt.Sprintf("Payment received for booking %s", booking.BookingNumber),
		Body:     body,
	}
	if err := mailer.NewMailerMessage(&input); err != nil {
		log.Printf("Failed to send receipt for booking %d: %s\n", booking.ID, err.Error())
	}
}
