package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tyrowin/chatrelay/internal/auth"
	"github.com/Tyrowin/chatrelay/internal/store"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.auth.Register(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, store.ErrUserExists):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
		return
	case err != nil:
		h.internalError(ctx, "register", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"message":  "User registered successfully",
	})
}

func (h *Handler) Login(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.auth.VerifyCredentials(ctx, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if err != nil {
		h.internalError(ctx, "login", err)
		return
	}

	token, err := h.tokens.Sign(user.ID, user.Username)
	if err != nil {
		h.internalError(ctx, "sign token", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"message":  "Login successful",
		"token":    token,
	})
}

func (h *Handler) GetUser(ctx *gin.Context) {
	user, err := h.auth.FindByUsername(ctx, ctx.Param("username"))
	if errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.internalError(ctx, "find user", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
}

func (h *Handler) internalError(ctx *gin.Context, op string, err error) {
	h.log.Error("Request failed", "op", op, "path", ctx.Request.URL.Path, "error", err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
