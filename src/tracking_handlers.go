package main

import (
	"context"
	"crms/src/common"
	"crms/src/db"
	"crms/src/models"
	"crms/src/types"
	"crms/src/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// trackingHandlers is the HTTP ingest path for GPS fixes. Trackers that
// speak kafka go through the gps-pings consumer instead; both paths share
// common.StorePing.
func trackingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/tracking/pings", func(ctx *gin.Context) {
			var body types.TrackerPingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			recordedAt := time.Now()
			if body.RecordedAt != "" {
				t, err := utils.ParseTime(body.RecordedAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid recorded_at"})
					return
				}
				recordedAt = t
			}
			ping := models.TrackerPing{
				TrackerID:  body.TrackerID,
				Latitude:   body.Latitude,
				Longitude:  body.Longitude,
				SpeedKph:   body.SpeedKph,
				Heading:    body.Heading,
				RecordedAt: recordedAt,
			}
			if err := common.StorePing(context.Background(), &ping); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": ping.ID})
		}).
		GET("/tracking/pings", func(ctx *gin.Context) {
			trackerId := ctx.Query("tracker")
			if trackerId == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "tracker query parameter is required"})
				return
			}
			db := db.GetDb()
			var pings []*models.TrackerPing
			if err := db.
				Where(&models.TrackerPing{TrackerID: trackerId}).
				Order("recorded_at DESC").
				Limit(100).
				Find(&pings).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": pings})
		})
	return g
}
