package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-broadcast-relay/internal/application/facade"
	"go-broadcast-relay/internal/infrastructure/hub"
	"go-broadcast-relay/internal/infrastructure/logger"
)

func waitForConnectionCount(h *hub.Hub, expected int) bool {
	for range 400 {
		if h.ConnectionCount() == expected {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// readUntil scans SSE lines until one equals want or the deadline passes.
func readUntil(t *testing.T, lines <-chan string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended before %q", want)
			if line == want {
				return
			}
		case <-timeout:
			t.Fatalf("did not receive %q", want)
		}
	}
}

func TestSSE_StreamsBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	h := hub.New(log, nil, nil)
	relay := facade.NewRelayApplicationService(h, 0, log)

	router := gin.New()
	InitSSERouter(NewServerSentEventHandler(relay, 0, log), router.Group(""))
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	readUntil(t, lines, "event:connected")
	require.True(t, waitForConnectionCount(h, 1))

	_, err = relay.Push(context.Background(), "hello sse")
	require.NoError(t, err)
	readUntil(t, lines, "event:broadcast")
	readUntil(t, lines, "data:hello sse")

	cancel()
	assert.True(t, waitForConnectionCount(h, 0))
}

func TestSSE_RejectsWhenHubStopped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	h := hub.New(log, nil, nil)
	require.NoError(t, h.Shutdown(context.Background()))
	relay := facade.NewRelayApplicationService(h, 0, log)

	router := gin.New()
	InitSSERouter(NewServerSentEventHandler(relay, 0, log), router.Group(""))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sse", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// Run with -race: broadcasts racing client hang-ups must never write to a
// response whose handler has already returned.
func TestSSE_PushWhileClientsDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	h := hub.New(log, nil, nil)
	relay := facade.NewRelayApplicationService(h, 0, log)

	router := gin.New()
	InitSSERouter(NewServerSentEventHandler(relay, 0, log), router.Group(""))
	server := httptest.NewServer(router)
	defer server.Close()

	stop := make(chan struct{})
	var pushers sync.WaitGroup
	for range 4 {
		pushers.Add(1)
		go func() {
			defer pushers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_, _ = relay.Push(context.Background(), "tick")
			}
		}()
	}

	var clients sync.WaitGroup
	for range 100 {
		clients.Add(1)
		go func() {
			defer clients.Done()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/sse", nil)
			if !assert.NoError(t, err) {
				return
			}
			resp, err := http.DefaultClient.Do(req)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				if scanner.Text() == "event:connected" {
					break
				}
			}
			cancel()
		}()
	}
	clients.Wait()
	close(stop)
	pushers.Wait()

	assert.True(t, waitForConnectionCount(h, 0))
}
