package client

import (
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgavro/requests-client/objpath"
)

func TestResponseAccessors(t *testing.T) {
	resp := testResponse("GET", 200, "http://api.test/users", `{"users":[{"id":1}]}`)
	resp.Headers.Set("Content-Type", "application/json; charset=utf-8")
	resp.Data = map[string]any{"users": []any{map[string]any{"id": float64(1)}}}

	assert.Equal(t, `{"users":[{"id":1}]}`, resp.Text())
	assert.Equal(t, "application/json; charset=utf-8", resp.ContentType())

	var decoded struct {
		Users []struct {
			ID int `json:"id"`
		} `json:"users"`
	}
	require.NoError(t, resp.DecodeJSON(&decoded))
	require.Len(t, decoded.Users, 1)
	assert.Equal(t, 1, decoded.Users[0].ID)

	v, err := resp.DataPath("users.0.id")
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)
}

func TestResponseFieldAccess(t *testing.T) {
	resp := testResponse("POST", 201, "http://api.test/users", "created")
	resp.Headers.Set("X-Request-Id", "abc")

	v, err := objpath.Resolve(resp, "status_code")
	require.NoError(t, err)
	assert.Equal(t, 201, v)

	v, err = objpath.Resolve(resp, "headers.X-Request-Id")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	_, err = objpath.Resolve(resp, "nonexistent")
	assert.Error(t, err)
}

func TestResponseNilHeaderContentType(t *testing.T) {
	resp := &Response{}
	assert.Empty(t, resp.ContentType())
	assert.Empty(t, resp.Text())

	_, ok := resp.AccessField("method")
	assert.True(t, ok)
	_, ok = resp.AccessField("bogus")
	assert.False(t, ok)

	assert.Equal(t, nethttp.Header(nil), resp.Headers)
}
