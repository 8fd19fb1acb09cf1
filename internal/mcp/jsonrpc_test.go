package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondertwin-ai/blogcheck/internal/client"
)

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		line string
		code int
	}{
		{`{"jsonrpc":"2.0","id":1,"method":"ping"}`, 0},
		{`{"jsonrpc":"1.0","id":1,"method":"ping"}`, ErrCodeInvalidReq},
		{`{"id":1,"method":"ping"}`, ErrCodeInvalidReq},
		{`{"jsonrpc":"2.0","id":1}`, ErrCodeInvalidReq},
	}
	for _, tc := range cases {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(tc.line), &req))
		err := req.validate()
		if tc.code == 0 {
			assert.Nil(t, err, tc.line)
			continue
		}
		require.NotNil(t, err, tc.line)
		assert.Equal(t, tc.code, err.Code, tc.line)
	}
}

func TestDecodeToolsCall(t *testing.T) {
	p, err := decodeToolsCall(json.RawMessage(`{"name":"blogcheck_reset","arguments":{"target":"http://x"}}`))
	require.Nil(t, err)
	assert.Equal(t, "blogcheck_reset", p.Name)
	assert.JSONEq(t, `{"target":"http://x"}`, string(p.Arguments))

	_, err = decodeToolsCall(json.RawMessage(`{"arguments":{}}`))
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInvalidParams, err.Code)

	_, err = decodeToolsCall(json.RawMessage(`[1,2]`))
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInvalidParams, err.Code)
}

func TestInvalidEnvelopesGetErrors(t *testing.T) {
	_, c, _ := startTwin(t)
	s, err := NewServer([]*client.Client{c}, nil, WithLogger(quiet()))
	require.NoError(t, err)

	resps := exchange(t, s,
		`{"jsonrpc":"1.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{}}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)
	require.Len(t, resps, 3)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, ErrCodeInvalidReq, resps[0].Error.Code)
	assert.JSONEq(t, `1`, string(resps[0].ID))
	require.NotNil(t, resps[1].Error)
	assert.Equal(t, ErrCodeInvalidParams, resps[1].Error.Code)
	assert.Nil(t, resps[2].Error)
}
