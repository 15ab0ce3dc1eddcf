package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/coldfront/provider"
)

func ndjsonServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_ConcatenatesChunks(t *testing.T) {
	srv := ndjsonServer(t,
		`{"message":{"role":"assistant","content":"Hello"},"done":false}`,
		`{"message":{"role":"assistant","content":" world"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	)

	c := New(srv.URL, "test-model", time.Second)
	out, err := c.Generate(context.Background(), []provider.Message{
		{Role: provider.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestGenerate_ServerError(t *testing.T) {
	srv := ndjsonServer(t, `{"error":"model not found"}`)

	c := New(srv.URL, "missing", time.Second)
	_, err := c.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerate_BackendUnavailable(t *testing.T) {
	// Nothing listens on this port.
	c := New("http://127.0.0.1:1", "m", time.Second)
	_, err := c.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrBackendUnavailable)
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server cancels r.Context() when the
		// client disconnects; otherwise Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, "m", 50*time.Millisecond)
	_, err := c.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrTimeout)
}

func TestStream_DeliversChunksThenDone(t *testing.T) {
	srv := ndjsonServer(t,
		`{"message":{"content":"a"},"done":false}`,
		`{"message":{"content":"b"},"done":true}`,
	)

	c := New(srv.URL, "m", time.Second)
	ch, err := c.Stream(context.Background(), nil)
	require.NoError(t, err)

	var texts []string
	var done bool
	for chunk := range ch {
		if chunk.Done {
			done = true
			continue
		}
		texts = append(texts, chunk.Text)
	}
	assert.Equal(t, []string{"a", "b"}, texts)
	assert.True(t, done)
}

func TestNew_Defaults(t *testing.T) {
	c := New("", "", 0)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultModel, c.model)
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Equal(t, "ollama", c.Name())
}
