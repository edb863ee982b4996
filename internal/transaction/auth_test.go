package transaction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// fakeUserDetailsClient scripts the user service's answers.
type fakeUserDetailsClient struct {
	details *UserDetails
	err     error
}

func (f *fakeUserDetailsClient) Lookup(ctx context.Context, contact string) (*UserDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

func authedRouter(client UserDetailsClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/txn/initTxn", RequireAuthority(client, "ROLE_USER"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sender": c.GetString("username")})
	})
	return r
}

func doAuthedRequest(r *gin.Engine, user, pass string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/txn/initTxn", nil)
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	r.ServeHTTP(w, req)
	return w
}

func userDetailsFor(password, authority string) *UserDetails {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &UserDetails{Username: "+1000", Password: string(hash), Authorities: []string{authority}}
}

func TestRequireAuthority_AllowsValidUser(t *testing.T) {
	r := authedRouter(&fakeUserDetailsClient{details: userDetailsFor("pw", "ROLE_USER")})

	w := doAuthedRequest(r, "+1000", "pw")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "+1000")
}

func TestRequireAuthority_MissingCredentials(t *testing.T) {
	r := authedRouter(&fakeUserDetailsClient{details: userDetailsFor("pw", "ROLE_USER")})

	w := doAuthedRequest(r, "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthority_WrongPassword(t *testing.T) {
	r := authedRouter(&fakeUserDetailsClient{details: userDetailsFor("pw", "ROLE_USER")})

	w := doAuthedRequest(r, "+1000", "wrong")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthority_UnknownUserFailsClosed(t *testing.T) {
	// "Not found" is an authentication failure, not a crash.
	r := authedRouter(&fakeUserDetailsClient{err: ErrUserNotFound})

	w := doAuthedRequest(r, "ghost", "pw")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthority_TimeoutFailsClosed(t *testing.T) {
	// The user service being slow or unreachable must deny, never hang or
	// wave the request through.
	r := authedRouter(&fakeUserDetailsClient{err: context.DeadlineExceeded})

	w := doAuthedRequest(r, "+1000", "pw")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthority_TransportErrorFailsClosed(t *testing.T) {
	r := authedRouter(&fakeUserDetailsClient{err: errors.New("connection refused")})

	w := doAuthedRequest(r, "+1000", "pw")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthority_MissingAuthority(t *testing.T) {
	// A service account can authenticate but must not initiate transfers.
	r := authedRouter(&fakeUserDetailsClient{details: userDetailsFor("pw", "ROLE_SERVICE")})

	w := doAuthedRequest(r, "+1000", "pw")

	assert.Equal(t, http.StatusForbidden, w.Code)
}
