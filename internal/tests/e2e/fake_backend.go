package e2e

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// fakeBackend is an in-process stand-in for the rate service backend. It
// implements the OTP flow, the bearer-protected rate and admin endpoints,
// device registration and the websocket event feed, with enough control
// hooks to script conflicts, revocations and forced logouts.
type fakeBackend struct {
	t      *testing.T
	Server *httptest.Server

	mu       sync.Mutex
	otps     map[string]string // phone -> pending code
	sessions map[string]string // token -> phone, issued and not revoked
	active   map[string]bool   // phone -> has a competing session
	users    map[string]fakeUser
	devices  map[string]string // userId -> device token
	wsConns  []*websocket.Conn

	SendOTPCalls int
	Broadcasts   []map[string]interface{}
}

type fakeUser struct {
	ID           string
	Name         string
	Role         string
	WholesalerID string
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &fakeBackend{
		t:        t,
		otps:     make(map[string]string),
		sessions: make(map[string]string),
		active:   make(map[string]bool),
		devices:  make(map[string]string),
		users: map[string]fakeUser{
			"9876543210": {ID: "17", Name: "Asha Mehta", Role: "WHOLESALER", WholesalerID: "17"},
			"9123456780": {ID: "31", Name: "Ravi Kumar", Role: "RETAILER", WholesalerID: "17"},
			"9000000001": {ID: "1", Name: "Root Admin", Role: "ADMIN"},
		},
	}

	router := gin.New()
	router.POST("/api/auth/send-otp", b.handleSendOTP)
	router.POST("/api/auth/verify-otp", b.handleVerifyOTP)
	router.POST("/register-device", b.requireAuth, b.handleRegisterDevice)
	router.POST("/clear-device-token", b.requireAuth, b.handleClearDevice)
	router.GET("/api/liveRates", b.requireAuth, b.handleLiveRates)
	router.POST("/api/wholesaler/broadcastRate", b.requireAuth, b.handleBroadcast)
	router.GET("/api/wholesaler/myRates", b.requireAuth, b.handleMyRates)
	router.GET("/api/retailer/getGoldRates", b.requireAuth, b.handleRetailerRates)
	router.GET("/socket", b.handleSocket)

	b.Server = httptest.NewServer(router)
	t.Cleanup(func() {
		b.mu.Lock()
		for _, conn := range b.wsConns {
			conn.Close()
		}
		b.mu.Unlock()
		b.Server.Close()
	})
	return b
}

func (b *fakeBackend) URL() string { return b.Server.URL }

func (b *fakeBackend) WSURL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/socket"
}

// MarkActiveSession makes the next non-forced send-otp for the phone answer
// with a session conflict
func (b *fakeBackend) MarkActiveSession(phone string) {
	b.mu.Lock()
	b.active[phone] = true
	b.mu.Unlock()
}

// RevokeAll invalidates every issued token so the next authenticated call
// returns 401
func (b *fakeBackend) RevokeAll() {
	b.mu.Lock()
	b.sessions = make(map[string]string)
	b.mu.Unlock()
}

// PushForceLogout sends a force_logout event over every open websocket
func (b *fakeBackend) PushForceLogout() {
	b.pushEvent(`{"event": "force_logout"}`)
}

// PushRateUpdate sends a rateUpdated event over every open websocket
func (b *fakeBackend) PushRateUpdate(payload string) {
	b.pushEvent(`{"event": "rateUpdated", "payload": ` + payload + `}`)
}

func (b *fakeBackend) pushEvent(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, conn := range b.wsConns {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
	}
}

// DeviceToken returns the registered device token for a user, if any
func (b *fakeBackend) DeviceToken(userID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	token, ok := b.devices[userID]
	return token, ok
}

// WSConnCount returns how many websocket clients connected so far
func (b *fakeBackend) WSConnCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.wsConns)
}

func (b *fakeBackend) issueToken(phone string) string {
	claims := jwt.MapClaims{
		"phone": phone,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("fake-backend-secret"))
	if err != nil {
		b.t.Fatalf("failed to sign token: %v", err)
	}
	b.sessions[token] = phone
	return token
}

func (b *fakeBackend) handleSendOTP(c *gin.Context) {
	var req struct {
		Mobile string `json:"mobile"`
		Force  bool   `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "bad request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.SendOTPCalls++

	if _, ok := b.users[req.Mobile]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "user not found"})
		return
	}
	if b.active[req.Mobile] && !req.Force {
		c.JSON(http.StatusConflict, gin.H{"conflict": true, "message": "You are already logged in on another device"})
		return
	}
	if req.Force {
		delete(b.active, req.Mobile)
	}

	b.otps[req.Mobile] = "123456"
	c.JSON(http.StatusOK, gin.H{"success": true, "msg": "OTP sent", "info": gin.H{"otp": "123456"}})
}

func (b *fakeBackend) handleVerifyOTP(c *gin.Context) {
	var req struct {
		Mobile string `json:"mobile"`
		OTP    string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "bad request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	code, pending := b.otps[req.Mobile]
	if !pending || code != req.OTP {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid otp"})
		return
	}
	delete(b.otps, req.Mobile)

	user := b.users[req.Mobile]
	payload := gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"phone": req.Mobile,
		"role":  user.Role,
	}
	if user.WholesalerID != "" {
		payload["wholesalerId"] = user.WholesalerID
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   b.issueToken(req.Mobile),
		"user":    payload,
	})
}

func (b *fakeBackend) handleRegisterDevice(c *gin.Context) {
	var req struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}
	b.mu.Lock()
	b.devices[req.UserID] = req.Token
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *fakeBackend) handleClearDevice(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}
	b.mu.Lock()
	delete(b.devices, req.UserID)
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *fakeBackend) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}

	b.mu.Lock()
	_, ok := b.sessions[token]
	b.mu.Unlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "session expired"})
		return
	}
	c.Next()
}

func (b *fakeBackend) handleLiveRates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"timestamp": time.Now().Format(time.RFC3339),
		"rates": gin.H{
			"goldPrice24K": 78500.0,
			"goldPrice22K": 72000.0,
			"silverPrice":  980.0,
		},
	})
}

func (b *fakeBackend) handleBroadcast(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}
	b.mu.Lock()
	b.Broadcasts = append(b.Broadcasts, body)
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (b *fakeBackend) handleMyRates(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{
		{"id": 1, "rate": 78500.0, "purity": "24K", "wholesalerId": c.Query("wholesalerId")},
	})
}

func (b *fakeBackend) handleRetailerRates(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{
		{"id": 1, "rate": 78500.0, "purity": "24K", "wholesalerId": 17},
		{"id": 2, "rate": 72000.0, "purity": "22K", "wholesalerId": 17},
	})
}

func (b *fakeBackend) handleSocket(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.wsConns = append(b.wsConns, conn)
	b.mu.Unlock()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
