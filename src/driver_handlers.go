package main

import (
	"crms/src/db"
	"crms/src/models"
	"crms/src/types"
	"crms/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func driverHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/drivers", func(ctx *gin.Context) {
			var body types.CreateDriverRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			driver := models.Driver{
				Name:          body.Name,
				LicenseNumber: body.LicenseNumber,
				Phone:         body.Phone,
				Status:        types.DRIVER_ACTIVE,
			}
			db := db.GetDb()
			if err := db.Create(&driver).Error; err != nil {
				log.Printf("Error creating Driver: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": driver.ID})
		}).
		GET("/drivers", func(ctx *gin.Context) {
			db := db.GetDb()
			q := db.Model(&models.Driver{})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			var drivers []*models.Driver
			if err := q.Order("name ASC").Find(&drivers).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": drivers})
		}).
		GET("/drivers/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var driver models.Driver
			if err := db.
				Preload("Assignments").
				Where(&models.Driver{ID: params.ID}).
				First(&driver).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "driver not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": driver})
		}).
		POST("/drivers/:id/assignments", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CreateAssignmentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			shiftStart, err := utils.ParseTime(body.ShiftStart)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid shift_start"})
				return
			}
			shiftEnd, err := utils.ParseTime(body.ShiftEnd)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid shift_end"})
				return
			}
			db := db.GetDb()
			var driver models.Driver
			if err := db.Where(&models.Driver{ID: params.ID, Status: types.DRIVER_ACTIVE}).First(&driver).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "driver not found or not active"})
				return
			}
			var booking models.Booking
			if err := db.Where(&models.Booking{ID: body.BookingID}).First(&booking).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
				return
			}
			var overlapping int64
			if err := db.
				Model(&models.DriverAssignment{}).
				Where("driver_id = ? AND shift_start < ? AND shift_end > ?", params.ID, shiftEnd, shiftStart).
				Count(&overlapping).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if overlapping > 0 {
				ctx.JSON(http.StatusConflict, gin.H{"error": "driver already has an assignment in this window"})
				return
			}
			assignment := models.DriverAssignment{
				DriverID:   params.ID,
				BookingID:  body.BookingID,
				ShiftStart: shiftStart,
				ShiftEnd:   shiftEnd,
			}
			if err := db.Create(&assignment).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": assignment.ID})
		})
	return g
}
