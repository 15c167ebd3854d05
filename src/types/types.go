package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBAny struct {
	Inner any
}

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a JSONBAny) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a.Inner)
	return string(valueString), err
}
func (a *JSONBAny) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	var inner any
	if err := json.Unmarshal(b, &inner); err != nil {
		return err
	}
	a.Inner = inner
	return nil
}

type Metadata map[string]any

type BookingStatus string

const (
	BOOKING_PENDING     BookingStatus = "pending"
	BOOKING_CONFIRMED   BookingStatus = "confirmed"
	BOOKING_IN_PROGRESS BookingStatus = "in_progress"
	BOOKING_COMPLETED   BookingStatus = "completed"
	BOOKING_CANCELED    BookingStatus = "canceled"
)

// PaymentStatus is always derived from totals, never written directly by
// handlers. "unpaid" covers partial settlement: a priced booking with a
// positive balance is unpaid whether zero or some payments exist.
type PaymentStatus string

const (
	PAYMENT_PENDING  PaymentStatus = "pending" // booking not yet priced
	PAYMENT_UNPAID   PaymentStatus = "unpaid"  // priced, balance > 0
	PAYMENT_PAID     PaymentStatus = "paid"    // balance <= 0
	PAYMENT_REFUNDED PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	METHOD_CASH  PaymentMethod = "cash"
	METHOD_GCASH PaymentMethod = "gcash"
	METHOD_BANK  PaymentMethod = "bank_transfer"
)

// PaymentPurpose distinguishes the hand-over ("release") payment, which also
// moves the booking to in_progress, from an ordinary settlement payment.
type PaymentPurpose string

const (
	PURPOSE_PAYMENT PaymentPurpose = "payment"
	PURPOSE_RELEASE PaymentPurpose = "release"
)

type ExtensionStatus string

const (
	EXTENSION_PENDING        ExtensionStatus = "pending"
	EXTENSION_APPROVED       ExtensionStatus = "approved"
	EXTENSION_COMPLETED      ExtensionStatus = "completed"
	EXTENSION_REJECTED       ExtensionStatus = "rejected"
	EXTENSION_ADMIN_CANCELED ExtensionStatus = "admin_canceled"
)

type CarStatus string

const (
	CAR_AVAILABLE   CarStatus = "available"
	CAR_RENTED      CarStatus = "rented"
	CAR_MAINTENANCE CarStatus = "maintenance"
	CAR_RETIRED     CarStatus = "retired"
)

type DriverStatus string

const (
	DRIVER_ACTIVE   DriverStatus = "active"
	DRIVER_ON_LEAVE DriverStatus = "on_leave"
	DRIVER_INACTIVE DriverStatus = "inactive"
)

type UserRole string

const (
	ROLE_ADMIN    UserRole = "admin"
	ROLE_STAFF    UserRole = "staff"
	ROLE_CUSTOMER UserRole = "customer"
)

type Env string

const (
	Local      Env = "local"
	Test       Env = "test"
	Production Env = "production"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateBookingRequestBody struct {
	CarID           uint   `json:"car_id" binding:"required"`
	StartDate       string `json:"start_date" binding:"required,rentaldate"`
	EndDate         string `json:"end_date" binding:"required,rentaldate,gtdate=StartDate"`
	PickupLocation  string `json:"pickup_location" binding:"required"`
	DropoffLocation string `json:"dropoff_location" binding:"required"`
	WithDriver      bool   `json:"with_driver,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type ApproveBookingRequestBody struct {
	TotalAmount string `json:"total_amount" binding:"required"`
	DriverID    *uint  `json:"driver_id,omitempty"`
}

type RecordPaymentRequestBody struct {
	Amount          string  `json:"amount" binding:"required"`
	Method          string  `json:"method" binding:"required,oneof=cash gcash bank_transfer"`
	GCashNumber     *string `json:"gcash_number,omitempty"`
	ReferenceNumber *string `json:"reference_number,omitempty"`
	PaidAt          *string `json:"paid_at,omitempty"`
	IdempotencyKey  *string `json:"idempotency_key,omitempty"`
	ExtensionID     *uint   `json:"extension_id,omitempty"`
}

type RecordRefundRequestBody struct {
	Amount         string  `json:"amount" binding:"required"`
	Method         string  `json:"method" binding:"required,oneof=cash gcash bank_transfer"`
	Reason         string  `json:"reason,omitempty"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

type RequestExtensionRequestBody struct {
	NewEndDate string `json:"new_end_date" binding:"required,rentaldate"`
}

type ApproveExtensionRequestBody struct {
	Fee string `json:"fee" binding:"required"`
}

type RejectExtensionRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type CreateCarRequestBody struct {
	PlateNumber  string `json:"plate_number" binding:"required"`
	Make         string `json:"make" binding:"required"`
	Model        string `json:"model" binding:"required"`
	Year         uint   `json:"year" binding:"required"`
	Transmission string `json:"transmission,omitempty"`
	Seats        uint8  `json:"seats,omitempty"`
	DailyRate    string `json:"daily_rate" binding:"required"`
	TrackerID    string `json:"tracker_id,omitempty"`
}

type UpdateCarStatusRequestBody struct {
	Status string `json:"status" binding:"required,oneof=available rented maintenance retired"`
}

type CreateMaintenanceRequestBody struct {
	ServiceType string `json:"service_type" binding:"required"`
	Cost        string `json:"cost" binding:"required"`
	Odometer    uint   `json:"odometer,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ServicedAt  string `json:"serviced_at,omitempty"`
}

type CreateDriverRequestBody struct {
	Name          string `json:"name" binding:"required"`
	LicenseNumber string `json:"license_number" binding:"required"`
	Phone         string `json:"phone,omitempty"`
}

type CreateAssignmentRequestBody struct {
	BookingID  uint   `json:"booking_id" binding:"required"`
	ShiftStart string `json:"shift_start" binding:"required"`
	ShiftEnd   string `json:"shift_end" binding:"required,gtdate=ShiftStart"`
}

type TrackerPingRequestBody struct {
	TrackerID  string  `json:"tracker_id" binding:"required"`
	Latitude   float64 `json:"latitude" binding:"required"`
	Longitude  float64 `json:"longitude" binding:"required"`
	SpeedKph   float64 `json:"speed_kph,omitempty"`
	Heading    float64 `json:"heading,omitempty"`
	RecordedAt string  `json:"recorded_at,omitempty"`
}

type RegisterUserRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone,omitempty"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateSettingRequestBody struct {
	Key   string `json:"key" binding:"required"`
	Value any    `json:"value" binding:"required"`
	Group string `json:"group" binding:"required"`
}

type CancelBookingRequestBody struct {
	Reason string `json:"reason,omitempty"`
}

type BookingsQueryFilters struct {
	Status        string `form:"status,omitempty"`
	PaymentStatus string `form:"payment_status,omitempty"`
	CarID         uint   `form:"car,omitempty"`
	CustomerID    uint   `form:"customer,omitempty"`
}

// APIResponseBooking is the booking payload with ledger totals and the
// extension view fields derived from the extensions table. None of the
// derived fields are stored on the booking row.
type APIResponseBooking struct {
	ID              uint       `json:"id"`
	BookingNumber   string     `json:"booking_number,omitempty"`
	Status          string     `json:"status,omitempty"`
	PaymentStatus   string     `json:"payment_status,omitempty"`
	TotalAmount     *string    `json:"total_amount,omitempty"`
	TotalPaid       string     `json:"total_paid"`
	Balance         string     `json:"balance"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	PickupLocation  string     `json:"pickup_location,omitempty"`
	DropoffLocation string     `json:"dropoff_location,omitempty"`
	CustomerID      uint       `json:"customer_id,omitempty"`
	CarID           uint       `json:"car_id,omitempty"`
	DriverID        *uint      `json:"driver_id,omitempty"`

	IsExtend   bool       `json:"is_extend"`
	IsPay      bool       `json:"is_pay"`
	NewEndDate *time.Time `json:"new_end_date,omitempty"`
	IsExtended bool       `json:"is_extended"`

	Timestamps
}

type Handler func(payload string)
