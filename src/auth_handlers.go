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

func authHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/auth/register", func(ctx *gin.Context) {
			var body types.RegisterUserRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			hash, err := utils.HashPassword(body.Password)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			user := models.User{
				Name:         body.Name,
				Email:        body.Email,
				Phone:        body.Phone,
				Role:         types.ROLE_CUSTOMER,
				PasswordHash: hash,
			}
			db := db.GetDb()
			if err := db.Create(&user).Error; err != nil {
				log.Printf("Error creating User: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "email is already registered"})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": user.ID})
		}).
		POST("/auth/login", func(ctx *gin.Context) {
			var body types.LoginRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var user models.User
			if err := db.Where(&models.User{Email: body.Email}).First(&user).Error; err != nil {
				ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			if !utils.CheckPassword(user.PasswordHash, body.Password) {
				ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			token, err := utils.CreateToken(&user)
			if err != nil {
				log.Printf("Error signing token: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"token": token})
		})
	return g
}

func meHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.GET("/auth/me", func(ctx *gin.Context) {
		db := db.GetDb()
		var user models.User
		if err := db.Where(&models.User{ID: ctx.GetUint("id")}).First(&user).Error; err != nil {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": user})
	})
	return g
}
