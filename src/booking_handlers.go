package main

import (
	"crms/src/db"
	"crms/src/ledger"
	"crms/src/models"
	"crms/src/models/scopes"
	"crms/src/types"
	"crms/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			customerId := ctx.GetUint("id")
			id, err := utils.CreateNewBooking(&body, customerId)
			if err != nil {
				log.Printf("Error creating Booking: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		GET("/bookings", func(ctx *gin.Context) {
			var filters types.BookingsQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			q := db.Model(&models.Booking{}).Preload("Payments").Preload("Extensions")
			if filters.Status != "" {
				q = q.Scopes(scopes.WithStatus(filters.Status))
			}
			if filters.PaymentStatus != "" {
				q = q.Where("payment_status = ?", filters.PaymentStatus)
			}
			if filters.CarID > 0 {
				q = q.Where("car_id = ?", filters.CarID)
			}
			if filters.CustomerID > 0 {
				q = q.Where("customer_id = ?", filters.CustomerID)
			}
			role := types.UserRole(ctx.GetString("role"))
			if role == types.ROLE_CUSTOMER {
				q = q.Where("customer_id = ?", ctx.GetUint("id"))
			}
			var bookings []*models.Booking
			if err := q.Order("created_at DESC").Limit(50).Find(&bookings).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			views := make([]types.APIResponseBooking, 0, len(bookings))
			for _, b := range bookings {
				views = append(views, utils.BookingView(b))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": views})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Model(&models.Booking{}).
				Preload("Payments").
				Preload("Extensions").
				Preload("Car").
				Where(&models.Booking{ID: params.ID}).
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": utils.BookingView(&booking)})
		}).
		GET("/bookings/:id/ledger", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Where(&models.Booking{ID: params.ID}).
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
				return
			}
			var payments []*models.Payment
			if err := db.
				Where(&models.Payment{BookingID: booking.ID}).
				Scopes(scopes.InLedgerOrder).
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			totals := ledger.ComputeTotals(booking.TotalAmount, payments)
			ctx.JSON(http.StatusOK, gin.H{
				"data": gin.H{
					"payments":       payments,
					"total_paid":     totals.TotalPaid.String(),
					"balance":        totals.Balance.String(),
					"payment_status": totals.Status,
				},
			})
		}).
		POST("/bookings/:id/approve", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ApproveBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			totalAmount, err := decimal.NewFromString(body.TotalAmount)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid total_amount"})
				return
			}
			if err := utils.ApproveBooking(params.ID, totalAmount, body.DriverID, ctx.GetUint("id")); err != nil {
				log.Printf("Error approving Booking: %s\n", err.Error())
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"status": "confirmed"})
		}).
		POST("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CancelBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.CancelBooking(params.ID, body.Reason, ctx.GetUint("id")); err != nil {
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"status": "canceled"})
		}).
		POST("/bookings/:id/complete", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.CompleteBooking(params.ID, ctx.GetUint("id")); err != nil {
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"status": "completed"})
		}).
		POST("/bookings/:id/recalculate", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			totals, err := ledger.RecalculateBalances(params.ID)
			if err != nil {
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"data": gin.H{
					"total_paid":     totals.TotalPaid.String(),
					"balance":        totals.Balance.String(),
					"payment_status": totals.Status,
				},
			})
		}).
		POST("/bookings/recalculate", func(ctx *gin.Context) {
			repaired, err := ledger.RecalculateAll()
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"recalculated": repaired})
		})
	return g
}
