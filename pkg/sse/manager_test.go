package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestManager_DeliversEventsToUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	go m.Run()
	defer m.Stop()

	r := gin.New()
	r.GET("/events/:user", func(c *gin.Context) {
		m.ServeHTTP(c, c.Param("user"))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/u1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	assert.Equal(t, "connected", name)

	m.SendToUser("u2", "email_update", map[string]string{"email_id": "other"})
	m.SendToUser("u1", "email_update", map[string]string{"email_id": "m1"})
	name, data := readEvent(t, reader)
	assert.Equal(t, "email_update", name)
	assert.Contains(t, data, `"m1"`)
	assert.Equal(t, 1, m.Connected("u1"))
}

func TestManager_SendWithoutClients(t *testing.T) {
	m := NewManager()
	go m.Run()
	m.SendToUser("nobody", "board_update", nil)
	m.Stop()
	m.Stop()
	assert.Zero(t, m.Connected("nobody"))
}
