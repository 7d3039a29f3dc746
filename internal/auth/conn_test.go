package auth_test

import (
	"bytes"
	"net"
	"testing"

	"github.com/Alia5/keybridge/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server, err = ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func TestConn(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	other, err := auth.DeriveKey("123test")
	require.NoError(t, err)

	tests := []struct {
		name        string
		clientKey   []byte
		serverKey   []byte
		input       []byte
		expectedErr string
	}{
		{name: "round trip", clientKey: key, serverKey: key, input: []byte("Hello, World!")},
		{name: "report frame", clientKey: key, serverKey: key, input: []byte{0, 0, 4, 0, 0, 0, 0, 0}},
		{name: "differing keys", clientKey: key, serverKey: other, input: []byte("x"), expectedErr: "message authentication failed"},
		{name: "bad client key length", clientKey: []byte{1, 2, 3}, serverKey: key, input: []byte("x"), expectedErr: "bad key length"},
		{name: "bad server key length", clientKey: key, serverKey: []byte{1, 2, 3}, input: []byte("x"), expectedErr: "bad key length"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, s := tcpPair(t)
			sc, err := auth.WrapConn(s, tc.serverKey)
			if err != nil {
				assert.ErrorContains(t, err, tc.expectedErr)
				return
			}
			cc, err := auth.WrapConn(c, tc.clientKey)
			if err != nil {
				assert.ErrorContains(t, err, tc.expectedErr)
				return
			}

			_, err = cc.Write(tc.input)
			require.NoError(t, err)

			buf := make([]byte, len(tc.input))
			_, err = sc.Read(buf)
			if tc.expectedErr != "" {
				assert.ErrorContains(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.input, buf)
		})
	}
}

func TestConnSmallReads(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	c, s := tcpPair(t)
	cc, _ := auth.WrapConn(c, key)
	sc, _ := auth.WrapConn(s, key)

	_, err = cc.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = cc.Write([]byte("def"))
	require.NoError(t, err)

	var got bytes.Buffer
	one := make([]byte, 1)
	for got.Len() < 6 {
		n, err := sc.Read(one)
		require.NoError(t, err)
		got.Write(one[:n])
	}
	assert.Equal(t, "abcdef", got.String())
}

func TestConnClosedPeer(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	c, s := tcpPair(t)
	sc, _ := auth.WrapConn(s, key)
	_ = c.Close()

	_, err = sc.Read(make([]byte, 8))
	assert.Error(t, err)
}
