package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	// 型付きの nil (*http.Response) をモック側で返す必要がある
	return args.Get(0).(*http.Response), args.Error(1)
}

func TestNew(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		client := New(0)
		assert.Equal(t, DefaultHTTPTimeout, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("custom timeout", func(t *testing.T) {
		client := New(2 * time.Second)
		assert.Equal(t, 2*time.Second, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("keep-alives disabled", func(t *testing.T) {
		client := New(time.Second)
		transport, ok := client.httpClient.(*http.Client).Transport.(*http.Transport)
		require.True(t, ok)
		assert.True(t, transport.DisableKeepAlives)
	})
	t.Run("with HTTP client option", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		client := New(time.Second, WithHTTPClient(mockClient))
		assert.Equal(t, mockClient, client.httpClient)
	})
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantBody   string
	}{
		{"ok", http.StatusOK, "<html><body>hello</body></html>", "<html><body>hello</body></html>"},
		{"not found", http.StatusNotFound, "missing", ""},
		{"server error", http.StatusInternalServerError, "boom", ""},
		{"redirect without location", http.StatusMovedPermanently, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(tt.statusCode)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			res := New(time.Second).Fetch(context.Background(), server.URL)

			require.NoError(t, res.Err)
			assert.True(t, res.OK())
			assert.Equal(t, tt.statusCode, res.StatusCode)
			assert.Equal(t, tt.wantBody, string(res.Body))
		})
	}
}

func TestFetch_DecodesCharset(t *testing.T) {
	// "café" を ISO-8859-1 でエンコード
	latin1 := []byte{'c', 'a', 'f', 0xe9}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(latin1)
	}))
	defer server.Close()

	res := New(time.Second).Fetch(context.Background(), server.URL)

	require.NoError(t, res.Err)
	assert.Equal(t, "café", string(res.Body))
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := New(time.Minute).Fetch(ctx, server.URL)

	require.Error(t, res.Err)
	assert.False(t, res.OK())

	var fetchErr *FetchError
	require.True(t, errors.As(res.Err, &fetchErr))
	assert.Equal(t, server.URL, fetchErr.URL)
	assert.True(t, fetchErr.Timeout())
}

func TestFetch_TransportError(t *testing.T) {
	mockClient := new(MockHTTPClient)
	var resp *http.Response
	mockClient.On("Do", mock.Anything).Return(resp, errors.New("connection refused"))

	res := New(time.Second, WithHTTPClient(mockClient)).Fetch(context.Background(), "http://broken.test/b")

	require.Error(t, res.Err)
	assert.Zero(t, res.StatusCode)
	assert.Contains(t, res.Err.Error(), "connection refused")

	var fetchErr *FetchError
	require.True(t, errors.As(res.Err, &fetchErr))
	assert.False(t, fetchErr.Timeout())
	mockClient.AssertExpectations(t)
}

func TestFetch_InvalidURL(t *testing.T) {
	res := New(time.Second).Fetch(context.Background(), "http://[::1")
	assert.Error(t, res.Err)
}

func TestFetch_BodyLimit(t *testing.T) {
	mockClient := new(MockHTTPClient)
	big := bytes.Repeat([]byte("a"), int(MaxBodySize)+10)
	mockClient.On("Do", mock.Anything).Return(&http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       io.NopCloser(bytes.NewReader(big)),
	}, nil)

	res := New(time.Second, WithHTTPClient(mockClient)).Fetch(context.Background(), "http://big.test")

	require.NoError(t, res.Err)
	assert.Len(t, res.Body, int(MaxBodySize))
}

func TestFetch_NoConnectionReuse(t *testing.T) {
	var (
		mu       sync.Mutex
		newConns int
		closed   int
	)
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>ok</body></html>")
	}))
	server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		mu.Lock()
		defer mu.Unlock()
		switch state {
		case http.StateNew:
			newConns++
		case http.StateClosed:
			closed++
		}
	}
	server.Start()
	defer server.Close()

	client := New(time.Second)
	for i := 0; i < 2; i++ {
		res := client.Fetch(context.Background(), server.URL)
		require.NoError(t, res.Err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return closed == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, newConns)
}
