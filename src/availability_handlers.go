package main

import (
	"calbook/src/availability"
	"calbook/src/db"
	"calbook/src/integrations"
	"calbook/src/models"
	"calbook/src/types"
	"calbook/src/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// availabilityHandlers exposes the same busy-time aggregation the booking
// flow runs, for troubleshooting "why is this slot blocked".
func availabilityHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/availability", func(ctx *gin.Context) {
			var params types.AvailabilityRequestParams
			if err := ctx.ShouldBindQuery(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dateFrom, err := utils.ParseRequestTime(params.DateFrom)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dateTo, err := utils.ParseRequestTime(params.DateTo)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !dateTo.After(dateFrom) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "date_to must be after date_from"})
				return
			}

			conn := db.GetDb()
			var user models.User
			err = conn.
				Model(&models.User{}).
				Preload("Credentials").
				Where("username = ?", params.Username).
				First(&user).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "user.notFound"})
				return
			}

			busyByHost, degradations := availability.AggregateBusy(ctx, integrations.DefaultRegistry(), []*models.User{&user}, dateFrom, dateTo)
			busy := busyByHost[user.ID]
			if busy == nil {
				busy = []types.BusyInterval{}
			}
			degraded := make([]string, 0, len(degradations))
			for _, d := range degradations {
				degraded = append(degraded, string(d.Provider))
			}

			ctx.JSON(http.StatusOK, gin.H{"busy": busy, "degraded": degraded})
		})
	return g
}
