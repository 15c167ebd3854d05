package ledger

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"crms/src/db"
	"crms/src/models"
	"crms/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a throwaway in-memory database and points the package
// singleton at it. The shared-cache DSN keeps gorm's pooled connections on
// the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Car{},
		&models.Driver{},
		&models.DriverAssignment{},
		&models.MaintenanceRecord{},
		&models.Booking{},
		&models.Payment{},
		&models.Extension{},
		&models.Refund{},
		&models.TrackerPing{},
		&models.Setting{},
		&models.EventLog{},
	))
	db.NewDB(conn)
	return conn
}

func seedBooking(t *testing.T, conn *gorm.DB, total string, status types.BookingStatus) *models.Booking {
	t.Helper()
	customer := models.User{Name: "Alice Reyes", Email: fmt.Sprintf("%s@example.com", uuid.NewString()), Role: types.ROLE_CUSTOMER}
	require.NoError(t, conn.Create(&customer).Error)
	car := models.Car{
		PlateNumber: fmt.Sprintf("ABC-%s", uuid.NewString()[:8]),
		Slug:        uuid.NewString(),
		Make:        "Toyota",
		Model:       "Vios",
		Year:        2022,
		DailyRate:   d("2500"),
	}
	require.NoError(t, conn.Create(&car).Error)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	booking := models.Booking{
		BookingNumber: fmt.Sprintf("BK-%s", uuid.NewString()[:8]),
		Status:        status,
		PaymentStatus: types.PAYMENT_PENDING,
		StartDate:     start,
		EndDate:       start.Add(4 * 24 * time.Hour),
		CustomerID:    customer.ID,
		CarID:         car.ID,
	}
	if total != "" {
		amount := d(total)
		booking.TotalAmount = &amount
		booking.PaymentStatus = types.PAYMENT_UNPAID
	}
	require.NoError(t, conn.Create(&booking).Error)
	return &booking
}

func TestRecordPaymentUpdatesBookingAndSnapshot(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_CONFIRMED)

	// WHEN a 4000 cash payment is recorded
	payment, err := RecordPayment(RecordPaymentInput{
		BookingID: booking.ID,
		Amount:    d("4000"),
		Method:    types.METHOD_CASH,
	})
	require.NoError(t, err)

	// THEN the payment snapshot and the booking agree on the balance
	require.True(t, payment.Balance.Equal(d("6000")))

	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.Equal(t, types.PAYMENT_UNPAID, got.PaymentStatus)
	require.Equal(t, types.BOOKING_CONFIRMED, got.Status)

	// AND the mutation left an audit row behind
	var events int64
	require.NoError(t, conn.Model(&models.EventLog{}).Where("type = ?", "payment.recorded").Count(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestRecordPaymentSettlesBooking(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_IN_PROGRESS)

	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_CASH})
	require.NoError(t, err)
	payment, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("6000"), Method: types.METHOD_CASH})
	require.NoError(t, err)

	require.True(t, payment.Balance.IsZero())
	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.Equal(t, types.PAYMENT_PAID, got.PaymentStatus)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_CONFIRMED)

	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("0"), Method: types.METHOD_CASH})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("-50"), Method: types.METHOD_CASH})
	require.ErrorIs(t, err, ErrInvalidAmount)

	// THEN nothing was written
	var count int64
	require.NoError(t, conn.Model(&models.Payment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRecordPaymentGCashRequiresReference(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_CONFIRMED)

	_, err := RecordPayment(RecordPaymentInput{
		BookingID:   booking.ID,
		Amount:      d("4000"),
		Method:      types.METHOD_GCASH,
		GCashNumber: "09171234567",
	})
	require.ErrorIs(t, err, ErrGCashReferenceRequired)

	// AND the reverse direction, a reference without a gcash number
	_, err = RecordPayment(RecordPaymentInput{
		BookingID:       booking.ID,
		Amount:          d("4000"),
		Method:          types.METHOD_GCASH,
		ReferenceNumber: "REF-001",
	})
	require.ErrorIs(t, err, ErrGCashNumberRequired)

	_, err = RecordPayment(RecordPaymentInput{
		BookingID:       booking.ID,
		Amount:          d("4000"),
		Method:          types.METHOD_GCASH,
		GCashNumber:     "09171234567",
		ReferenceNumber: "REF-001",
	})
	require.NoError(t, err)
}

func TestRecordPaymentOnUnpricedBooking(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "", types.BOOKING_PENDING)

	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("1000"), Method: types.METHOD_CASH})
	require.ErrorIs(t, err, ErrBookingNotPriced)
	require.Equal(t, http.StatusConflict, StatusForError(err))
	_ = conn
}

func TestRecordPaymentUnknownBooking(t *testing.T) {
	newTestDB(t)

	_, err := RecordPayment(RecordPaymentInput{BookingID: 9999, Amount: d("1000"), Method: types.METHOD_CASH})
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRecordPaymentDuplicateIdempotencyKey(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_CONFIRMED)
	key := uuid.NewString()

	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_CASH, IdempotencyKey: &key})
	require.NoError(t, err)
	_, err = RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_CASH, IdempotencyKey: &key})
	require.ErrorIs(t, err, ErrDuplicateIdempotencyKey)

	var count int64
	require.NoError(t, conn.Model(&models.Payment{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestReleasePaymentStartsRental(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_CONFIRMED)

	// WHEN the release payment is recorded at hand-over
	_, err := RecordPayment(RecordPaymentInput{
		BookingID: booking.ID,
		Amount:    d("5000"),
		Method:    types.METHOD_CASH,
		Purpose:   types.PURPOSE_RELEASE,
	})
	require.NoError(t, err)

	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.Equal(t, types.BOOKING_IN_PROGRESS, got.Status)
}

func TestReleasePaymentRequiresConfirmedBooking(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_PENDING)

	_, err := RecordPayment(RecordPaymentInput{
		BookingID: booking.ID,
		Amount:    d("5000"),
		Method:    types.METHOD_CASH,
		Purpose:   types.PURPOSE_RELEASE,
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReleasePaymentOnStartedRentalKeepsStatus(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_IN_PROGRESS)

	_, err := RecordPayment(RecordPaymentInput{
		BookingID: booking.ID,
		Amount:    d("5000"),
		Method:    types.METHOD_CASH,
		Purpose:   types.PURPOSE_RELEASE,
	})
	require.NoError(t, err)

	var got models.Booking
	require.NoError(t, conn.Where(&models.Booking{ID: booking.ID}).First(&got).Error)
	require.Equal(t, types.BOOKING_IN_PROGRESS, got.Status)
}

func TestRecordPaymentOnCanceledBooking(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_CANCELED)

	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("1000"), Method: types.METHOD_CASH})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecalculateRepairsDriftedSnapshots(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_IN_PROGRESS)

	p1, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_CASH})
	require.NoError(t, err)
	_, err = RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("3000"), Method: types.METHOD_CASH})
	require.NoError(t, err)

	// GIVEN a snapshot corrupted out-of-band
	require.NoError(t, conn.Model(&models.Payment{}).Where("id = ?", p1.ID).Update("balance", d("123.45")).Error)

	// WHEN the repair pass runs
	totals, err := RecalculateBalances(booking.ID)
	require.NoError(t, err)
	require.True(t, totals.Balance.Equal(d("3000")))

	// THEN the snapshots line up again, in ledger order
	var payments []*models.Payment
	require.NoError(t, conn.Where("booking_id = ?", booking.ID).Order("paid_at ASC, id ASC").Find(&payments).Error)
	require.Len(t, payments, 2)
	require.True(t, payments[0].Balance.Equal(d("6000")))
	require.True(t, payments[1].Balance.Equal(d("3000")))
}

func TestRecalculateIsIdempotent(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_IN_PROGRESS)
	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_CASH})
	require.NoError(t, err)

	first, err := RecalculateBalances(booking.ID)
	require.NoError(t, err)
	second, err := RecalculateBalances(booking.ID)
	require.NoError(t, err)

	require.True(t, first.Balance.Equal(second.Balance))
	require.Equal(t, first.Status, second.Status)
	_ = conn
}

func TestRecalculateAllSweepsPricedBookings(t *testing.T) {
	conn := newTestDB(t)
	b1 := seedBooking(t, conn, "10000", types.BOOKING_IN_PROGRESS)
	b2 := seedBooking(t, conn, "5000", types.BOOKING_CONFIRMED)
	seedBooking(t, conn, "", types.BOOKING_PENDING)

	_, err := RecordPayment(RecordPaymentInput{BookingID: b1.ID, Amount: d("10000"), Method: types.METHOD_CASH})
	require.NoError(t, err)
	_, err = RecordPayment(RecordPaymentInput{BookingID: b2.ID, Amount: d("1000"), Method: types.METHOD_CASH})
	require.NoError(t, err)

	repaired, err := RecalculateAll()
	require.NoError(t, err)
	require.Equal(t, 2, repaired)
}

func TestRequestExtension(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)

	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)
	require.Equal(t, types.EXTENSION_PENDING, ext.Status)

	// AND the booking total is untouched until approval
	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.True(t, got.TotalAmount.Equal(d("5000")))
}

func TestRequestExtensionRejectsSecondActive(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)

	_, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)
	_, err = RequestExtension(booking.ID, booking.EndDate.Add(72*time.Hour), 0)
	require.ErrorIs(t, err, ErrActiveExtensionExists)
}

func TestRequestExtensionRejectsEarlierDate(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)

	_, err := RequestExtension(booking.ID, booking.EndDate.Add(-24*time.Hour), 0)
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestApproveExtensionRaisesTotal(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)

	// GIVEN a fully paid booking with a pending extension
	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("5000"), Method: types.METHOD_CASH})
	require.NoError(t, err)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)

	// WHEN the extension is approved with a 2000 fee
	approved, err := ApproveExtension(ext.ID, d("2000"), 1)
	require.NoError(t, err)
	require.Equal(t, types.EXTENSION_APPROVED, approved.Status)

	// THEN the total rises to 7000, the booking flips back to unpaid,
	// and the end date has not moved yet
	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.True(t, got.TotalAmount.Equal(d("7000")))
	require.Equal(t, types.PAYMENT_UNPAID, got.PaymentStatus)
	require.WithinDuration(t, booking.EndDate, got.EndDate, time.Second)
}

func TestApproveExtensionRejectsNegativeFee(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)

	_, err = ApproveExtension(ext.ID, d("-100"), 1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCompleteExtensionRequiresFeePayment(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)
	_, err = ApproveExtension(ext.ID, d("2000"), 1)
	require.NoError(t, err)

	// WHEN completion is attempted before the fee is settled
	_, err = CompleteExtension(ext.ID, 1)
	require.ErrorIs(t, err, ErrExtensionFeeUnpaid)

	// WHEN the fee payment lands, linked to the extension
	_, err = RecordPayment(RecordPaymentInput{
		BookingID:   booking.ID,
		Amount:      d("2000"),
		Method:      types.METHOD_CASH,
		ExtensionID: &ext.ID,
	})
	require.NoError(t, err)
	completed, err := CompleteExtension(ext.ID, 1)
	require.NoError(t, err)
	require.Equal(t, types.EXTENSION_COMPLETED, completed.Status)

	// THEN the booking end date moved to the extension's new end date
	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.WithinDuration(t, ext.NewEndDate, got.EndDate, time.Second)
}

func TestApproveExtensionOnCanceledBookingFails(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)

	// WHEN the booking is canceled while the extension is still pending
	require.NoError(t, conn.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("status", types.BOOKING_CANCELED).Error)

	_, err = ApproveExtension(ext.ID, d("2000"), 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteExtensionOnCanceledBookingFails(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)
	_, err = ApproveExtension(ext.ID, d("2000"), 1)
	require.NoError(t, err)
	_, err = RecordPayment(RecordPaymentInput{
		BookingID:   booking.ID,
		Amount:      d("2000"),
		Method:      types.METHOD_CASH,
		ExtensionID: &ext.ID,
	})
	require.NoError(t, err)

	// WHEN the booking is canceled after the fee was settled
	require.NoError(t, conn.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("status", types.BOOKING_CANCELED).Error)

	_, err = CompleteExtension(ext.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// THEN the canceled booking's end date has not moved
	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.WithinDuration(t, booking.EndDate, got.EndDate, time.Second)
}

func TestCompleteExtensionRequiresApproval(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)

	_, err = CompleteExtension(ext.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectExtension(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)

	rejected, err := RejectExtension(ext.ID, "car already booked", 1)
	require.NoError(t, err)
	require.Equal(t, types.EXTENSION_REJECTED, rejected.Status)

	// AND a new extension can be requested afterwards
	_, err = RequestExtension(booking.ID, booking.EndDate.Add(24*time.Hour), 0)
	require.NoError(t, err)
}

func TestCancelApprovedExtensionRollsBackFee(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "5000", types.BOOKING_IN_PROGRESS)
	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("5000"), Method: types.METHOD_CASH})
	require.NoError(t, err)
	ext, err := RequestExtension(booking.ID, booking.EndDate.Add(48*time.Hour), 0)
	require.NoError(t, err)
	_, err = ApproveExtension(ext.ID, d("2000"), 1)
	require.NoError(t, err)

	canceled, err := CancelExtension(ext.ID, 1)
	require.NoError(t, err)
	require.Equal(t, types.EXTENSION_ADMIN_CANCELED, canceled.Status)

	// THEN the fee is rolled back out of the total and the booking is
	// fully paid again
	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.True(t, got.TotalAmount.Equal(d("5000")))
	require.Equal(t, types.PAYMENT_PAID, got.PaymentStatus)
}

func TestRecordRefundCapsAtPaidAmount(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_IN_PROGRESS)
	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_CASH})
	require.NoError(t, err)

	_, err = RecordRefund(RecordRefundInput{BookingID: booking.ID, Amount: d("5000"), Method: types.METHOD_CASH})
	require.ErrorIs(t, err, ErrRefundExceedsPaid)

	refund, err := RecordRefund(RecordRefundInput{BookingID: booking.ID, Amount: d("1000"), Method: types.METHOD_CASH})
	require.NoError(t, err)
	require.True(t, refund.Amount.Equal(d("1000")))
}

func TestFullRefundOnCanceledBooking(t *testing.T) {
	conn := newTestDB(t)
	booking := seedBooking(t, conn, "10000", types.BOOKING_CONFIRMED)
	_, err := RecordPayment(RecordPaymentInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_CASH})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("status", types.BOOKING_CANCELED).Error)

	_, err = RecordRefund(RecordRefundInput{BookingID: booking.ID, Amount: d("4000"), Method: types.METHOD_GCASH, Reason: "trip canceled"})
	require.NoError(t, err)

	var got models.Booking
	require.NoError(t, conn.First(&got, booking.ID).Error)
	require.Equal(t, types.PAYMENT_REFUNDED, got.PaymentStatus)

	// AND recalculation keeps the refunded status
	totals, err := RecalculateBalances(booking.ID)
	require.NoError(t, err)
	require.Equal(t, types.PAYMENT_REFUNDED, totals.Status)
}
