package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Alia5/keybridge/apitypes"
	"github.com/Alia5/keybridge/internal/apierror"
)

// Wire layout:
//
//	client -> server: Magic | client_nonce[32] | HMAC-SHA256(key, authContext | client_nonce)
//	server -> client: "OK\0" | server_nonce[32]
//
// On failure the server answers with a problem+json line instead of "OK\0".
const (
	Magic     = "eKB1\x00"
	NonceSize = 32

	authContext = "KeyBridge-Auth-v1"
	okPrefix    = "OK\x00"
)

// IsHandshake peeks at r and reports whether the next bytes are Magic.
func IsHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(Magic))
	if err != nil {
		return false, err
	}
	return string(b) == Magic, nil
}

func clientMAC(key, nonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(nonce)
	return mac.Sum(nil)
}

// ReadClientNonce reads the client nonce. Magic must already be consumed.
func ReadClientNonce(r io.Reader) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, fmt.Errorf("read client nonce: %w", err)
	}
	return nonce, nil
}

// WriteServerHello generates the server nonce and sends the OK response.
func WriteServerHello(w io.Writer) ([]byte, error) {
	if w == nil {
		return nil, fmt.Errorf("write response: nil writer")
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate server nonce: %w", err)
	}
	if _, err := w.Write(append([]byte(okPrefix), nonce...)); err != nil {
		return nil, fmt.Errorf("write response: %w", err)
	}
	return nonce, nil
}

// ServerHandshake verifies a client hello read from r and answers on w.
// A wrong password yields a 401 *apitypes.ApiError.
func ServerHandshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("handshake: missing key")
	}
	if _, err := r.Discard(len(Magic)); err != nil {
		return nil, nil, fmt.Errorf("discard handshake magic: %w", err)
	}
	if clientNonce, err = ReadClientNonce(r); err != nil {
		return nil, nil, err
	}
	got := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, got); err != nil {
		return nil, nil, fmt.Errorf("read client auth: %w", err)
	}
	if !hmac.Equal(got, clientMAC(key, clientNonce)) {
		return nil, nil, apierror.ErrUnauthorized("invalid password")
	}
	if serverNonce, err = WriteServerHello(w); err != nil {
		return nil, nil, err
	}
	return clientNonce, serverNonce, nil
}

// ClientHandshake sends the client hello on w and reads the answer from r.
func ClientHandshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("handshake: missing key")
	}
	clientNonce = make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, nil, fmt.Errorf("generate client nonce: %w", err)
	}
	msg := append([]byte(Magic), clientNonce...)
	msg = append(msg, clientMAC(key, clientNonce)...)
	if _, err := w.Write(msg); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(okPrefix))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != okPrefix {
		rest, _ := r.ReadString('\n')
		line := strings.TrimSuffix(string(prefix)+rest, "\n")
		var apiErr apitypes.ApiError
		if json.Unmarshal([]byte(line), &apiErr) == nil && (apiErr.Status != 0 || apiErr.Title != "") {
			return nil, nil, &apiErr
		}
		return nil, nil, fmt.Errorf("invalid handshake response: %q", line)
	}
	serverNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, nil, fmt.Errorf("read server nonce: %w", err)
	}
	return clientNonce, serverNonce, nil
}

// SecureClient runs ClientHandshake on conn and returns the encrypted
// connection.
func SecureClient(conn net.Conn, key []byte) (net.Conn, error) {
	cn, sn, err := ClientHandshake(bufio.NewReader(conn), conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, DeriveSessionKey(key, sn, cn))
}

// SecureServer runs ServerHandshake on a connection whose first bytes are
// buffered in r. The client sends nothing after its hello until it has read
// the server's answer, so r holds no ciphertext when this returns.
func SecureServer(conn net.Conn, r *bufio.Reader, key []byte) (net.Conn, error) {
	cn, sn, err := ServerHandshake(r, conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, DeriveSessionKey(key, sn, cn))
}
