package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/galaxy-explorer/internal/catalog"
	"github.com/wfunc/galaxy-explorer/internal/config"
	"github.com/wfunc/galaxy-explorer/internal/game"
	"github.com/wfunc/galaxy-explorer/internal/repository"
	"github.com/wfunc/galaxy-explorer/internal/service"
	ws "github.com/wfunc/galaxy-explorer/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterTestSuite 基于内存数据库的接口测试
type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *Router
	hub    *ws.Hub
	stop   func()
	token  string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = repository.SetupTestDB()

	rules := game.DefaultRules()
	rules.TravelDuration = 0
	rules.Location = time.UTC

	s.hub = ws.NewHub(zap.NewNop())
	sessions := game.NewSessionManager(&game.SessionConfig{
		Gateway:  game.NewDatabaseGateway(s.db),
		Catalog:  catalog.Default(),
		Rules:    rules,
		Notifier: s.hub,
	})
	services := service.NewServices(s.db, sessions, &service.Config{
		JWTSecret:          "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s.hub.SetMessageHandler(ws.NewGameMessageHandler(ctx, services.Game, zap.NewNop()))
	go s.hub.Run(ctx)
	s.stop = cancel

	s.router = NewRouter(s.db, services, s.hub, &config.WebSocketConfig{Path: "/ws"}, zap.NewNop())
	s.token = s.register("pilot_one", "secret1")
}

func (s *RouterTestSuite) TearDownTest() {
	s.stop()
	repository.CleanupTestDB(s.db)
}

func (s *RouterTestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.GetEngine().ServeHTTP(w, req)

	var resp map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func (s *RouterTestSuite) register(username, password string) string {
	w, resp := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username":         username,
		"password":         password,
		"confirm_password": password,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	token, _ := resp["access_token"].(string)
	s.Require().NotEmpty(token)
	return token
}

func data(resp map[string]interface{}) map[string]interface{} {
	d, _ := resp["data"].(map[string]interface{})
	return d
}

func (s *RouterTestSuite) TestHealth() {
	w, resp := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("healthy", resp["status"])
}

func (s *RouterTestSuite) TestOpenAPI() {
	w, resp := s.do(http.MethodGet, "/openapi", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("2.0", resp["swagger"])
	paths := resp["paths"].(map[string]interface{})
	s.Contains(paths, "/game/travel")

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	rec := httptest.NewRecorder()
	s.router.GetEngine().ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterTestSuite) TestNotFound() {
	w, resp := s.do(http.MethodGet, "/api/v1/nothing", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(false, resp["success"])
}

func (s *RouterTestSuite) TestGameRequiresAuth() {
	w, _ := s.do(http.MethodGet, "/api/v1/game/state", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/game/state", "garbage", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterTestSuite) TestPublicCatalogAndShop() {
	w, resp := s.do(http.MethodGet, "/api/v1/catalog", "", nil)
	s.Equal(http.StatusOK, w.Code)
	bodies, _ := resp["data"].([]interface{})
	s.Len(bodies, len(catalog.Default().Bodies()))

	w, resp = s.do(http.MethodGet, "/api/v1/shop", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(data(resp)["credits"])
}

func (s *RouterTestSuite) TestGameFlow() {
	w, resp := s.do(http.MethodGet, "/api/v1/game/state", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	state := data(resp)["state"].(map[string]interface{})
	s.Equal(catalog.HomeBodyID, state["current_body_id"])
	s.EqualValues(1000, state["credits"])

	w, resp = s.do(http.MethodPost, "/api/v1/game/travel", s.token, gin.H{"body_id": "mars"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, resp["success"])
	s.Equal("Arrived at Mars!", resp["message"])

	// 校验拒绝不是HTTP错误
	w, resp = s.do(http.MethodPost, "/api/v1/game/travel", s.token, gin.H{"body_id": "mars"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, resp["success"])
	s.Equal(string(game.ReasonAlreadyAtDestination), resp["reason"])

	w, _ = s.do(http.MethodPost, "/api/v1/game/travel", s.token, gin.H{})
	s.Equal(http.StatusBadRequest, w.Code)

	w, resp = s.do(http.MethodPost, "/api/v1/game/explore", s.token, gin.H{"body_id": "mars"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, resp["success"])
	s.NotEmpty(data(resp)["discovery_name"])

	w, resp = s.do(http.MethodPost, "/api/v1/game/claim", s.token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, resp["success"])

	w, resp = s.do(http.MethodGet, "/api/v1/game/claim", s.token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, data(resp)["can_claim"])

	w, resp = s.do(http.MethodPost, "/api/v1/game/purchase/credits", s.token, gin.H{"pack_id": "starter"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("Purchased 100 credits!", resp["message"])

	w, _ = s.do(http.MethodPost, "/api/v1/game/purchase/credits", s.token, gin.H{"pack_id": "missing"})
	s.Equal(http.StatusNotFound, w.Code)

	w, resp = s.do(http.MethodPost, "/api/v1/game/purchase/fuel", s.token, gin.H{"pack_id": "quick-fill"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, resp["success"])

	w, resp = s.do(http.MethodPost, "/api/v1/game/refuel", s.token, gin.H{"body_id": "mars"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal(string(game.ReasonTankFull), resp["reason"])

	// 进度已落库
	w, resp = s.do(http.MethodGet, "/api/v1/auth/profile", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	profile := data(resp)["profile"].(map[string]interface{})
	s.Equal("mars", profile["current_planet"])
	s.EqualValues(1, profile["total_discoveries"])
	explorations := data(resp)["explorations"].([]interface{})
	s.Require().Len(explorations, 1)
	s.Equal("mars", explorations[0].(map[string]interface{})["planet_id"])
}

func (s *RouterTestSuite) TestAuthEndpoints() {
	w, _ := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "pilot_one", "password": "secret1", "confirm_password": "secret1",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "pilot_one", "password": "wrong-pass"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, resp := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "pilot_one", "password": "secret1"})
	s.Require().Equal(http.StatusOK, w.Code)
	refresh := resp["refresh_token"].(string)

	w, resp = s.do(http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": refresh})
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotEmpty(resp["access_token"])

	w, _ = s.do(http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": s.token})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, resp = s.do(http.MethodPut, "/api/v1/auth/profile", s.token, gin.H{"nickname": "  Nova  "})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Nova", data(resp)["nickname"])

	w, _ = s.do(http.MethodPut, "/api/v1/auth/password", s.token, gin.H{
		"old_password": "secret1", "new_password": "secret2", "confirm_password": "secret2",
	})
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "pilot_one", "password": "secret2"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterTestSuite) TestWebSocket() {
	server := httptest.NewServer(s.router.Handler())
	defer server.Close()
	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	s.Require().Error(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+s.token, nil)
	s.Require().NoError(err)
	defer conn.Close()

	var msg ws.Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal(ws.MessageTypeConnected, msg.Type)

	s.Require().NoError(conn.WriteJSON(ws.Message{Type: ws.MessageTypeGetState, RequestID: "1"}))
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal(ws.MessageTypeGetState, msg.Type)
	s.Equal("1", msg.RequestID)

	w, body := s.do(http.MethodGet, "/api/v1/online", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(1, data(body)["online_count"])
}

func TestRespondErrorDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotZero(t, resp.Code)
}
