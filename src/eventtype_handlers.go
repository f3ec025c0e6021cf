package main

import (
	"calbook/src/config"
	"calbook/src/db"
	"calbook/src/models"
	"calbook/src/types"
	"calbook/src/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func parsePeriodDate(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	parsed, err := time.Parse(config.TIME_PARSE_FORMAT, *value)
	if err != nil {
		return nil
	}
	return &parsed
}

func eventTypeHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/event-types", func(ctx *gin.Context) {
			var body types.CreateEventTypeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("user")

			eventType := models.EventType{
				Title:                   body.Title,
				Slug:                    utils.Slugify(body.Title),
				Description:             body.Description,
				Length:                  body.Length,
				SchedulingType:          types.SchedulingType(body.SchedulingType),
				PeriodType:              types.PeriodType(body.PeriodType),
				PeriodDays:              body.PeriodDays,
				PeriodCountCalendarDays: body.PeriodCountCalendarDays,
				PeriodStartDate:         parsePeriodDate(body.PeriodStartDate),
				PeriodEndDate:           parsePeriodDate(body.PeriodEndDate),
				RequiresConfirmation:    body.RequiresConfirmation,
				AdvisoryConflicts:       body.AdvisoryConflicts,
				BufferMinutes:           body.BufferMinutes,
				Price:                   body.Price,
				Currency:                body.Currency,
				OwnerID:                 userId,
			}
			if eventType.SchedulingType == "" {
				eventType.SchedulingType = types.SCHEDULING_SINGLE
			}
			if eventType.PeriodType == "" {
				eventType.PeriodType = types.PERIOD_UNLIMITED
			}

			conn := db.GetDb()
			err := conn.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&eventType).Error; err != nil {
					return err
				}
				hostIds := body.HostIDs
				if len(hostIds) == 0 {
					hostIds = []uint{userId}
				}
				for i, hostId := range hostIds {
					link := models.EventTypeHost{
						EventTypeID: eventType.ID,
						UserID:      hostId,
						Position:    uint(i),
					}
					if err := tx.Create(&link).Error; err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": eventType})
		}).
		GET("/event-types", func(ctx *gin.Context) {
			userId := ctx.GetUint("user")
			var eventTypes []models.EventType
			conn := db.GetDb()
			err := conn.
				Model(&models.EventType{}).
				Preload("HostLinks", func(tx *gorm.DB) *gorm.DB {
					return tx.Order("position asc")
				}).
				Preload("HostLinks.User").
				Where("owner_id = ?", userId).
				Order("created_at desc").
				Find(&eventTypes).
				Error
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": eventTypes})
		}).
		PATCH("/event-types/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateEventTypeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("user")

			updates := map[string]any{}
			if body.Title != nil {
				updates["title"] = *body.Title
				updates["slug"] = utils.Slugify(*body.Title)
			}
			if body.Description != nil {
				updates["description"] = *body.Description
			}
			if body.Length != nil {
				updates["length"] = *body.Length
			}
			if body.AdvisoryConflicts != nil {
				updates["advisory_conflicts"] = *body.AdvisoryConflicts
			}
			if body.Hidden != nil {
				updates["hidden"] = *body.Hidden
			}
			if len(updates) == 0 {
				ctx.Status(http.StatusNoContent)
				return
			}

			conn := db.GetDb()
			res := conn.
				Model(&models.EventType{}).
				Where("id = ? AND owner_id = ?", params.ID, userId).
				Updates(updates)
			if res.Error != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "eventType.notFound"})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
