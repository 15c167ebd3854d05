package main

import (
	"context"
	"crms/src/db"
	"crms/src/lib"
	"crms/src/models"
	"crms/src/types"
	"crms/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func carHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/cars", func(ctx *gin.Context) {
			var body types.CreateCarRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dailyRate, err := decimal.NewFromString(body.DailyRate)
			if err != nil || dailyRate.LessThanOrEqual(decimal.Zero) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid daily_rate"})
				return
			}
			car := models.Car{
				PlateNumber:  body.PlateNumber,
				Slug:         utils.CarSlug(body.Make, body.Model, body.PlateNumber),
				Make:         body.Make,
				Model:        body.Model,
				Year:         body.Year,
				Transmission: body.Transmission,
				Seats:        body.Seats,
				DailyRate:    dailyRate,
				Status:       types.CAR_AVAILABLE,
				TrackerID:    body.TrackerID,
			}
			db := db.GetDb()
			if err := db.Create(&car).Error; err != nil {
				log.Printf("Error creating Car: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": car.ID})
		}).
		GET("/cars", func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Car{})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			var cars []*models.Car
			if err := q.Order("created_at DESC").Find(&cars).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": cars})
		}).
		GET("/cars/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var car models.Car
			if err := db.
				Preload("MaintenanceRecords").
				Where(&models.Car{ID: params.ID}).
				First(&car).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": car})
		}).
		PATCH("/cars/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateCarStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			res := db.
				Model(&models.Car{}).
				Where(&models.Car{ID: params.ID}).
				Update("status", types.CarStatus(body.Status))
			if res.Error != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"status": body.Status})
		}).
		POST("/cars/:id/maintenance", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CreateMaintenanceRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			cost, err := decimal.NewFromString(body.Cost)
			if err != nil || cost.IsNegative() {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid cost"})
				return
			}
			record := models.MaintenanceRecord{
				CarID:       params.ID,
				ServiceType: body.ServiceType,
				Cost:        cost,
				Odometer:    body.Odometer,
				Notes:       body.Notes,
			}
			if body.ServicedAt != "" {
				servicedAt, err := utils.ParseTime(body.ServicedAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid serviced_at"})
					return
				}
				record.ServicedAt = servicedAt
			}
			db := db.GetDb()
			var car models.Car
			if err := db.Where(&models.Car{ID: params.ID}).First(&car).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
				return
			}
			if err := db.Create(&record).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": record.ID})
		}).
		GET("/cars/:id/maintenance", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var records []*models.MaintenanceRecord
			if err := db.
				Where(&models.MaintenanceRecord{CarID: params.ID}).
				Order("serviced_at DESC").
				Find(&records).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": records})
		}).
		GET("/cars/:id/position", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			position, err := lib.GetCarPosition(context.Background(), params.ID)
			if err == redis.Nil {
				// fall back to the durable trail
				db := db.GetDb()
				var car models.Car
				if err := db.Where(&models.Car{ID: params.ID}).First(&car).Error; err != nil {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "car not found"})
					return
				}
				var ping models.TrackerPing
				if err := db.
					Where(&models.TrackerPing{CarID: params.ID}).
					Order("recorded_at DESC").
					First(&ping).
					Error; err != nil {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "no position recorded"})
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": ping})
				return
			}
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": position})
		})
	return g
}
