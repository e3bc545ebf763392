package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/util"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	service *Service
	user    *models.User
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := database.OpenInMemory()
	require.NoError(suite.T(), err)

	users := repository.NewUserRepository(db)
	suite.user = &models.User{Name: "player"}
	require.NoError(suite.T(), users.Create(context.Background(), suite.user))

	suite.service = NewService([]byte("test-secret"), time.Hour, users)
}

func TestAuthServiceSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(AuthServiceTestSuite))
}

func (suite *AuthServiceTestSuite) TestIssueAndValidate() {
	token, err := suite.service.IssueToken(suite.user.ID)
	suite.Require().NoError(err)

	user, err := suite.service.ValidateToken(context.Background(), token)
	suite.Require().NoError(err)
	suite.Equal(suite.user.ID, user.ID)
}

func (suite *AuthServiceTestSuite) TestExpiredToken() {
	token, err := suite.service.IssueToken(suite.user.ID)
	suite.Require().NoError(err)

	suite.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = suite.service.ParseToken(token)
	suite.ErrorIs(err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestWrongSecret() {
	other := NewService([]byte("other-secret"), time.Hour, nil)
	token, err := other.IssueToken(suite.user.ID)
	suite.Require().NoError(err)

	_, err = suite.service.ParseToken(token)
	suite.ErrorIs(err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestRejectsNoneAlgorithm() {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: suite.user.ID})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	suite.Require().NoError(err)

	_, err = suite.service.ParseToken(signed)
	suite.ErrorIs(err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestUnknownUser() {
	token, err := suite.service.IssueToken("ghost")
	suite.Require().NoError(err)
	_, err = suite.service.ValidateToken(context.Background(), token)
	suite.ErrorIs(err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestMiddleware() {
	token, err := suite.service.IssueToken(suite.user.ID)
	suite.Require().NoError(err)

	router := gin.New()
	router.GET("/optional", suite.service.OptionalAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, util.CurrentUserID(c))
	})
	router.GET("/required", suite.service.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, util.CurrentUserID(c))
	})

	do := func(path string, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("/optional", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Empty(w.Body.String())

	w = do("/optional?ut=garbage", "")
	suite.Equal(http.StatusOK, w.Code, "a bad token on an optional route is anonymous")

	w = do("/optional?ut="+token, "")
	suite.Equal(suite.user.ID, w.Body.String())

	w = do("/required", "")
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = do("/required", "Bearer garbage")
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = do("/required", "Bearer "+token)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal(suite.user.ID, w.Body.String())
}

func TestPartnerGuard(t *testing.T) {
	hash, err := HashPartnerToken("partner-token")
	require.NoError(t, err)

	g := NewPartnerGuard([]string{"", hash})
	assert.True(t, g.Verify("partner-token"))
	assert.False(t, g.Verify("other"))
	assert.False(t, g.Verify(""))

	var none *PartnerGuard
	assert.False(t, none.Verify("partner-token"))
}
