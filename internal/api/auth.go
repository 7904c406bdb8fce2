package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduverse/typehub/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,min=6"`
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if !a.bind(c, &req) {
		return
	}

	sess, err := a.as.Register(c.Request.Context(), auth.RegisterRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusCreated, sess)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if !a.bind(c, &req) {
		return
	}

	sess, err := a.as.Login(c.Request.Context(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, sess)
}

func (a *API) me(c *gin.Context) {
	u, err := a.as.Me(c.Request.Context(), userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, u)
}

type updateProfileRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=50"`
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
}

func (a *API) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !a.bind(c, &req) {
		return
	}

	u, err := a.as.UpdateProfile(c.Request.Context(), auth.UpdateProfileRequest{
		UserID:   userID(c),
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, u)
}
