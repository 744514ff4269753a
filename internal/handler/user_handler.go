package handler

import (
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	users := router.Group("/api/users", middleware.RequireAuth())
	{
		users.GET("/me", h.Me)
		users.GET("", middleware.RequireRole(model.RoleAdmin), h.ListUsers)
	}
}

// Register creates a new user account
// @Summary      Register user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateUserRequest  true  "Register Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login exchanges credentials for a JWT
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Payload"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	token, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid email or password"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, token))
}

// Me returns the authenticated user's profile
// @Summary      Current user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ListUsers returns all users (admin only)
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
