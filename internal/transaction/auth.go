package transaction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

// UserDetails is the authority view returned by the user service's read
// endpoint. Password carries the bcrypt hash, never the plaintext.
type UserDetails struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Authorities []string `json:"authorities"`
}

// UserDetailsClient resolves a user's credential hash and authorities. This
// is the one synchronous cross-service call in the system; it must separate
// "not found" from transport failure so the middleware can report both as a
// clean 401 while the logs tell them apart.
type UserDetailsClient interface {
	Lookup(ctx context.Context, contact string) (*UserDetails, error)
}

// RestUserDetailsClient implements UserDetailsClient against the user
// service over HTTP with a bounded timeout.
type RestUserDetailsClient struct {
	client  *resty.Client
	baseURL string
}

func NewRestUserDetailsClient(baseURL, serviceUser, servicePassword string, timeout time.Duration) *RestUserDetailsClient {
	client := resty.New().
		SetTimeout(timeout).
		SetBasicAuth(serviceUser, servicePassword)
	return &RestUserDetailsClient{client: client, baseURL: baseURL}
}

func (c *RestUserDetailsClient) Lookup(ctx context.Context, contact string) (*UserDetails, error) {
	var details UserDetails
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("contact", contact).
		SetResult(&details).
		Get(c.baseURL + "/user/userDetails")
	if err != nil {
		return nil, fmt.Errorf("calling user service: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &details, nil
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("user service returned status %d", resp.StatusCode())
	}
}

// RequireAuthority authenticates the caller with basic auth, resolving the
// acting user through the user service. Timeouts, transport errors, and
// unknown users all fail closed: no resolution, no authorization.
func RequireAuthority(client UserDetailsClient, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="txn-service"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		details, err := client.Lookup(c.Request.Context(), username)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(details.Password), []byte(password)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if !hasAnyAuthority(details.Authorities, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient authority"})
			return
		}

		c.Set("username", details.Username)
		c.Next()
	}
}

func hasAnyAuthority(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
