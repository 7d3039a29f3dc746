package auth_test

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"io"
	"net"
	"testing"

	"github.com/Alia5/keybridge/apitypes"
	"github.com/Alia5/keybridge/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadClientNonce(t *testing.T) {
	valid := make([]byte, 32)
	for i := range valid {
		valid[i] = byte(i)
	}
	tests := []struct {
		name        string
		input       []byte
		expected    []byte
		expectedErr string
	}{
		{name: "valid nonce", input: valid, expected: valid},
		{name: "short input", input: []byte{1, 2, 3}, expectedErr: "read client nonce: unexpected EOF"},
		{name: "empty input", input: []byte{}, expectedErr: "read client nonce: EOF"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nonce, err := auth.ReadClientNonce(bytes.NewBuffer(tc.input))
			if tc.expectedErr != "" {
				assert.EqualError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, nonce)
		})
	}
}

func TestWriteServerHello(t *testing.T) {
	var buf bytes.Buffer
	nonce, err := auth.WriteServerHello(&buf)
	require.NoError(t, err)
	assert.Len(t, nonce, 32)
	assert.Equal(t, "OK\x00", buf.String()[:3])
	assert.Equal(t, nonce, buf.Bytes()[3:])

	_, err = auth.WriteServerHello(nil)
	assert.EqualError(t, err, "write response: nil writer")

	_, w := io.Pipe()
	_ = w.Close()
	_, err = auth.WriteServerHello(w)
	assert.EqualError(t, err, "write response: io: read/write on closed pipe")
}

func TestIsHandshake(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    bool
		expectedErr string
	}{
		{name: "handshake", input: auth.Magic, expected: true},
		{name: "plain request", input: "status\x00", expected: false},
		{name: "incomplete", input: "eK", expectedErr: "EOF"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := auth.IsHandshake(bufio.NewReader(bytes.NewBufferString(tc.input)))
			if tc.expectedErr != "" {
				assert.EqualError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestServerHandshake(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	wrong, err := auth.DeriveKey("wrongpass")
	require.NoError(t, err)

	nonce := make([]byte, 32)
	for i := range nonce {
		nonce[i] = byte(i)
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte("KeyBridge-Auth-v1"))
	_, _ = mac.Write(nonce)
	hello := append([]byte(auth.Magic), nonce...)
	hello = append(hello, mac.Sum(nil)...)

	tests := []struct {
		name        string
		input       []byte
		writer      io.Writer
		key         []byte
		expectedErr string
	}{
		{name: "success", input: hello, writer: &bytes.Buffer{}, key: key},
		{name: "short nonce", input: append([]byte(auth.Magic), "short"...), writer: &bytes.Buffer{}, key: key, expectedErr: "read client nonce: unexpected EOF"},
		{name: "missing mac", input: append([]byte(auth.Magic), nonce...), writer: &bytes.Buffer{}, key: key, expectedErr: "read client auth: EOF"},
		{name: "no magic", input: []byte("sh"), writer: &bytes.Buffer{}, key: key, expectedErr: "discard handshake magic: EOF"},
		{name: "nil writer", input: hello, writer: nil, key: key, expectedErr: "write response: nil writer"},
		{name: "wrong password", input: hello, writer: &bytes.Buffer{}, key: wrong, expectedErr: "401 Unauthorized: invalid password"},
		{name: "missing key", input: hello, writer: &bytes.Buffer{}, key: nil, expectedErr: "handshake: missing key"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cn, sn, err := auth.ServerHandshake(bufio.NewReader(bytes.NewBuffer(tc.input)), tc.writer, tc.key)
			if tc.expectedErr != "" {
				assert.EqualError(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, nonce, cn)
			assert.Len(t, sn, 32)
		})
	}
}

func TestSecureRoundTrip(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	type result struct {
		conn net.Conn
		err  error
	}
	srv := make(chan result, 1)
	go func() {
		r := bufio.NewReader(s)
		ok, err := auth.IsHandshake(r)
		if err != nil || !ok {
			srv <- result{err: err}
			return
		}
		conn, err := auth.SecureServer(s, r, key)
		srv <- result{conn, err}
	}()

	cc, err := auth.SecureClient(c, key)
	require.NoError(t, err)
	res := <-srv
	require.NoError(t, res.err)

	go func() { _, _ = cc.Write([]byte("ping\x00")) }()
	buf := make([]byte, 5)
	_, err = io.ReadFull(res.conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping\x00", string(buf))
}

func TestClientHandshakeRejected(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)

	reply := bufio.NewReader(bytes.NewBufferString(`{"status":401,"title":"Unauthorized","detail":"invalid password"}` + "\n"))
	_, _, err = auth.ClientHandshake(reply, io.Discard, key)
	var apiErr *apitypes.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)

	reply = bufio.NewReader(bytes.NewBufferString("garbage\n"))
	_, _, err = auth.ClientHandshake(reply, io.Discard, key)
	assert.ErrorContains(t, err, "invalid handshake response")
}
