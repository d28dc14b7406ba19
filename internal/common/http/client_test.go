package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		switch r.URL.Path {
		case "/echo":
			_ = json.NewEncoder(w).Encode(in)
		case "/broken":
			w.Write([]byte("{not json"))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}
	}))
	defer server.Close()

	client := NewClient(2 * time.Second)
	ctx := context.Background()

	var out map[string]interface{}
	require.NoError(t, client.PostJSON(ctx, server.URL+"/echo", map[string]string{"a": "b"}, &out))
	assert.Equal(t, "b", out["a"])

	err := client.PostJSON(ctx, server.URL+"/missing", map[string]string{}, &out)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", statusErr.Body)

	assert.Error(t, client.PostJSON(ctx, server.URL+"/broken", map[string]string{}, &out))
	assert.NoError(t, client.PostJSON(ctx, server.URL+"/echo", map[string]string{}, nil))
}
