package routing

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const providersPathPrefix = "/routing/v1/providers"

// MockServer emulates the provider-query endpoint of the delegated
// routing HTTP contract. Every provider query is answered immediately
// with 404 "no providers found"; the server is stateless, so identical
// requests always produce identical responses regardless of ordering or
// concurrency.
type MockServer struct {
	server  *http.Server
	baseURL string
	port    int
}

// NewMockServer binds a listener on addr and starts serving in the
// background. Binding failures surface here, before the daemon is ever
// started. Use ":0" in tests to pick a free port.
func NewMockServer(addr string) (*MockServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().(*net.TCPAddr)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, false))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// CORS preflight is accepted for any path, with no body.
	router.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET(providersPathPrefix+"/*cid", handleProviders)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"Message": "not found"})
	})

	m := &MockServer{
		server:  &http.Server{Handler: router},
		baseURL: fmt.Sprintf("http://%s", actualAddr.String()),
		port:    actualAddr.Port,
	}

	go func() {
		zap.S().Infof("mock routing server started on %s", actualAddr.String())
		if err := m.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			zap.S().Errorf("mock routing server error: %v", err)
		}
	}()

	return m, nil
}

// handleProviders answers any provider query for any content identifier
// with the fixed "no providers found" response, with no artificial delay.
func handleProviders(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusNotFound, gin.H{"Message": "no providers found"})
}

// Stop closes the listener; connections already accepted are allowed to
// finish within the shutdown grace period.
func (m *MockServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}

// BaseURL returns the server's base URL.
func (m *MockServer) BaseURL() string {
	return m.baseURL
}

// Port returns the bound port.
func (m *MockServer) Port() int {
	return m.port
}
