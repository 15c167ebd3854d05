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

func extensionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings/:id/extensions", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.RequestExtensionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			newEndDate, err := utils.ParseTime(body.NewEndDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid new_end_date"})
				return
			}
			ext, err := ledger.RequestExtension(params.ID, newEndDate, ctx.GetUint("id"))
			if err != nil {
				log.Printf("Error requesting extension: %s\n", err.Error())
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": ext})
		}).
		GET("/bookings/:id/extensions", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var extensions []*models.Extension
			if err := db.
				Where(&models.Extension{BookingID: params.ID}).
				Order("created_at DESC").
				Find(&extensions).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": extensions})
		}).
		POST("/extensions/:id/approve", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ApproveExtensionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			fee, err := decimal.NewFromString(body.Fee)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid fee"})
				return
			}
			ext, err := ledger.ApproveExtension(params.ID, fee, ctx.GetUint("id"))
			if err != nil {
				log.Printf("Error approving extension: %s\n", err.Error())
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ext})
		}).
		POST("/extensions/:id/complete", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ext, err := ledger.CompleteExtension(params.ID, ctx.GetUint("id"))
			if err != nil {
				log.Printf("Error completing extension: %s\n", err.Error())
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ext})
		}).
		POST("/extensions/:id/reject", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.RejectExtensionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ext, err := ledger.RejectExtension(params.ID, body.Reason, ctx.GetUint("id"))
			if err != nil {
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ext})
		}).
		POST("/extensions/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ext, err := ledger.CancelExtension(params.ID, ctx.GetUint("id"))
			if err != nil {
				ctx.JSON(ledger.StatusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ext})
		})
	return g
}
