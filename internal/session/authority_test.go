package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"authclient/internal/domain"
)

const (
	seedUsername = "alice"
	seedPassword = "pw"
	tokenTTL     = time.Hour
)

// fakeAuthority is an in-process stand-in for the remote authentication
// service: it validates credentials against bcrypt hashes, issues signed
// JWTs, and tracks a cookie session the way the real authority does.
type fakeAuthority struct {
	server *httptest.Server
	secret []byte

	mu           sync.Mutex
	nextID       int64
	users        map[string]*authorityUser
	current      string
	sessionValid bool
	logoutSeen   chan struct{}
}

type authorityUser struct {
	record       domain.User
	passwordHash []byte
}

func newFakeAuthority(t *testing.T) *fakeAuthority {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash seed password: %v", err)
	}

	a := &fakeAuthority{
		secret:     []byte("test-signing-secret"),
		nextID:     2,
		logoutSeen: make(chan struct{}, 8),
		users: map[string]*authorityUser{
			seedUsername: {
				record: domain.User{
					ID:        1,
					UUID:      uuid.New(),
					Username:  seedUsername,
					FirstName: "Alice",
					LastName:  "Doe",
					Email:     "alice@example.com",
					Phone:     "+15550000001",
				},
				passwordHash: hash,
			},
		},
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/login", a.handleLogin)
		api.POST("/register", a.handleRegister)
		api.POST("/logout", a.handleLogout)
		api.GET("/user", a.handleUser)
	}

	a.server = httptest.NewServer(router)
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeAuthority) baseURL() string {
	return a.server.URL + "/api/"
}

// expireSessions invalidates every outstanding credential, as if the
// server-side session timed out.
func (a *fakeAuthority) expireSessions() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionValid = false
}

// setEmail mutates a stored user record out of band, so refresh tests can
// observe the change propagating.
func (a *fakeAuthority) setEmail(username, email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[username]; ok {
		u.record.Email = email
	}
}

func (a *fakeAuthority) awaitLogout(t *testing.T) {
	t.Helper()
	select {
	case <-a.logoutSeen:
	case <-time.After(5 * time.Second):
		t.Fatal("authority never received the logout request")
	}
}

func (a *fakeAuthority) handleLogin(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	user, ok := a.users[strings.TrimSpace(req.Identifier)]
	if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	a.openSession(c, user.record.Username)
	c.JSON(http.StatusOK, gin.H{"user": user.record, "token": a.issueToken(c, user.record)})
}

func (a *fakeAuthority) handleRegister(c *gin.Context) {
	profile := domain.Profile{}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		profile.Username = c.PostForm("username")
		profile.FirstName = c.PostForm("firstName")
		profile.LastName = c.PostForm("lastName")
		profile.Email = c.PostForm("email")
		profile.Phone = c.PostForm("phone")
		profile.Password = c.PostForm("password")
	} else if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if profile.Username == "" || profile.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.users[profile.Username]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(profile.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password"})
		return
	}

	user := &authorityUser{
		record: domain.User{
			ID:        a.nextID,
			UUID:      uuid.New(),
			Username:  profile.Username,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Email:     profile.Email,
			Phone:     profile.Phone,
		},
		passwordHash: hash,
	}
	a.nextID++
	a.users[profile.Username] = user

	a.openSession(c, user.record.Username)
	c.JSON(http.StatusOK, gin.H{"user": user.record, "token": a.issueToken(c, user.record)})
}

func (a *fakeAuthority) handleLogout(c *gin.Context) {
	a.mu.Lock()
	a.sessionValid = false
	a.current = ""
	a.mu.Unlock()

	select {
	case a.logoutSeen <- struct{}{}:
	default:
	}
	c.JSON(http.StatusOK, gin.H{"message": "bye"})
}

func (a *fakeAuthority) handleUser(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cookie, err := c.Cookie("session")
	if err != nil || cookie == "" || !a.sessionValid || a.current == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	user, ok := a.users[a.current]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.record, "token": a.issueToken(c, user.record)})
}

// openSession marks the session live and hands the client its cookie.
// Callers must hold a.mu.
func (a *fakeAuthority) openSession(c *gin.Context, username string) {
	a.sessionValid = true
	a.current = username
	c.SetCookie("session", uuid.NewString(), 3600, "/", "", false, true)
}

func (a *fakeAuthority) issueToken(c *gin.Context, user domain.User) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "fake-authority",
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sign token"})
		return ""
	}
	return token
}
