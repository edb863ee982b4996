package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

// UserRequest is the registration payload. Validation happens here, at the
// boundary, before anything is persisted or published.
type UserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	Contact         string `json:"contact" binding:"required"`
	Address         string `json:"address"`
	DOB             string `json:"dob"`
	IdentifierType  string `json:"identifierType" binding:"required"`
	IdentifierValue string `json:"identifierValue" binding:"required"`
}

// UserUseCaseInterface defines the interface the handlers depend on.
type UserUseCaseInterface interface {
	Register(ctx context.Context, req UserRequest) (*User, error)
	Details(ctx context.Context, contact string) (*User, error)
}

// UserHandler contains the HTTP handlers of the user service.
type UserHandler struct {
	useCase UserUseCaseInterface
	tracer  trace.Tracer
}

func NewUserHandler(useCase UserUseCaseInterface, tracer trace.Tracer) *UserHandler {
	return &UserHandler{useCase: useCase, tracer: tracer}
}

// AddUser registers a new user. Public route.
func (h *UserHandler) AddUser(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "add_user")
	defer span.End()

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.String("contact", req.Contact))

	u, err := h.useCase.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrContactTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "contact already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Int64("user_id", u.ID))
	c.JSON(http.StatusCreated, u)
}

// UserDetails returns the credential hash and authorities for a contact.
// Restricted to service/admin principals; the transaction service calls it
// to resolve the acting user.
func (h *UserHandler) UserDetails(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "user_details")
	defer span.End()

	contact := c.Query("contact")
	if contact == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contact query parameter is required"})
		return
	}

	u, err := h.useCase.Details(ctx, contact)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":    u.Contact,
		"password":    u.Password,
		"authorities": u.AuthorityList(),
	})
}

// RequireAuthority authenticates the request with basic auth against the
// user store and checks that the principal holds one of the required
// authorities. Anything short of a full match fails closed.
func (h *UserHandler) RequireAuthority(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="user-service"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		u, err := h.useCase.Details(c.Request.Context(), username)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if !u.HasAnyAuthority(required...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient authority"})
			return
		}

		c.Set("contact", u.Contact)
		c.Next()
	}
}

// HealthCheck reports service liveness.
func (h *UserHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "user-service",
	})
}
