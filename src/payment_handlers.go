package main

import (
	"crms/src/db"
	"crms/src/ledger"
	"crms/src/models"
	"crms/src/types"
	"crms/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func bindPaymentInput(ctx *gin.Context, purpose types.PaymentPurpose) (*ledger.RecordPaymentInput, bool) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	var body types.RecordPaymentRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return nil, false
	}
	input := ledger.RecordPaymentInput{
		BookingID:      params.ID,
		Amount:         amount,
		Method:         types.PaymentMethod(body.Method),
		Purpose:        purpose,
		IdempotencyKey: body.IdempotencyKey,
		ExtensionID:    body.ExtensionID,
		RecordedByID:   ctx.GetUint("id"),
	}
	if body.GCashNumber != nil {
		input.GCashNumber = *body.GCashNumber
	}
	if body.ReferenceNumber != nil {
		input.ReferenceNumber = *body.ReferenceNumber
	}
	if body.PaidAt != nil {
		paidAt, err := utils.ParseTime(*body.PaidAt)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid paid_at"})
			return nil, false
		}
		input.PaidAt = &paidAt
	}
	return &input, true
}

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings/:id/payments", func(ctx *gin.Context) {
			input, ok := bindPaymentInput(ctx, types.PURPOSE_PAYMENT)
			if !ok {
				return
			}
			payment, err := ledger.RecordPayment(*input)
			if err != nil {
				log.Printf("Error recording payment: %s\n", err.Error())
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			go notifyReceipt(payment)
			ctx.JSON(http.StatusCreated, gin.H{"data": payment})
		}).
		POST("/bookings/:id/release", func(ctx *gin.Context) {
			input, ok := bindPaymentInput(ctx, types.PURPOSE_RELEASE)
			if !ok {
				return
			}
			payment, err := ledger.RecordPayment(*input)
			if err != nil {
				log.Printf("Error recording release payment: %s\n", err.Error())
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			go notifyReceipt(payment)
			ctx.JSON(http.StatusCreated, gin.H{"data": payment})
		}).
		POST("/bookings/:id/refunds", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.RecordRefundRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			amount, err := decimal.NewFromString(body.Amount)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
				return
			}
			refund, err := ledger.RecordRefund(ledger.RecordRefundInput{
				BookingID:      params.ID,
				Amount:         amount,
				Method:         types.PaymentMethod(body.Method),
				Reason:         body.Reason,
				IdempotencyKey: body.IdempotencyKey,
				RecordedByID:   ctx.GetUint("id"),
			})
			if err != nil {
				log.Printf("Error recording refund: %s\n", err.Error())
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": refund})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var payment models.Payment
			if err := db.
				Where(&models.Payment{ID: params.ID}).
				First(&payment).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		})
	return g
}

func notifyReceipt(payment *models.Payment) {
	conn := db.GetDb()
	var booking models.Booking
	if err := conn.Where(&models.Booking{ID: payment.BookingID}).First(&booking).Error; err != nil {
		log.Printf("Could not load booking %d: %s\n", payment.BookingID, err.Error())
		return
	}
	utils.NotifyPaymentReceived(&booking, payment)
}
