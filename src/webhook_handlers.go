package main

import (
	"calbook/src/db"
	"calbook/src/models"
	"calbook/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func webhookHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/webhooks", func(ctx *gin.Context) {
			var body types.CreateWebhookRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("user")
			webhook := models.Webhook{
				SubscriberURL: body.SubscriberURL,
				EventTriggers: body.EventTriggers,
				Active:        true,
				UserID:        userId,
			}
			conn := db.GetDb()
			if err := conn.Create(&webhook).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": webhook})
		}).
		GET("/webhooks", func(ctx *gin.Context) {
			userId := ctx.GetUint("user")
			var hooks []models.Webhook
			conn := db.GetDb()
			err := conn.
				Model(&models.Webhook{}).
				Where("user_id = ?", userId).
				Order("created_at desc").
				Find(&hooks).
				Error
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": hooks})
		}).
		DELETE("/webhooks/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("user")
			conn := db.GetDb()
			res := conn.
				Where("id = ? AND user_id = ?", params.ID, userId).
				Delete(&models.Webhook{})
			if res.Error != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"message": "webhook.notFound"})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}

// integrationHandlers lists the caller's connected credentials. Key material
// stays encrypted at rest and is never serialized.
func integrationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/integrations", func(ctx *gin.Context) {
			userId := ctx.GetUint("user")
			var creds []models.Credential
			conn := db.GetDb()
			err := conn.
				Model(&models.Credential{}).
				Where("user_id = ?", userId).
				Find(&creds).
				Error
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": creds})
		})
	return g
}
