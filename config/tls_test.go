package config

import (
	"crypto/tls"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/fhe2048/crypto/certgen"
)

func TestEmptyTLSMeansPlain(t *testing.T) {
	srv, err := ServerTLS(nil)
	require.NoError(t, err)
	assert.Nil(t, srv)
	cli, err := ClientTLS(&TLSConfig{})
	require.NoError(t, err)
	assert.Nil(t, cli)
}

func TestServerTLSNeedsKeyPair(t *testing.T) {
	_, err := ServerTLS(&TLSConfig{CA: "ca.crt"})
	assert.Error(t, err)
}

// handshake serves one TLS connection with srv and dials it with cli.
func handshake(t *testing.T, srv, cli *tls.Config) error {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", srv)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.(*tls.Conn).Handshake()
		_, _ = conn.Write([]byte{1})
	}()

	conn, err := tls.Dial("tcp", ln.Addr().String(), cli)
	if err != nil {
		return err
	}
	defer conn.Close()
	// TLS 1.3 reports a rejected client certificate on first read.
	_, err = io.ReadFull(conn, make([]byte, 1))
	return err
}

func TestMutualTLS(t *testing.T) {
	files, err := certgen.Generate(t.TempDir())
	require.NoError(t, err)

	srv, err := ServerTLS(&TLSConfig{CA: files.CACert, Cert: files.ServerCert, Key: files.ServerKey})
	require.NoError(t, err)
	require.Equal(t, tls.RequireAndVerifyClientCert, srv.ClientAuth)

	cli, err := ClientTLS(&TLSConfig{CA: files.CACert, Cert: files.ClientCert, Key: files.ClientKey})
	require.NoError(t, err)
	assert.NoError(t, handshake(t, srv, cli))

	anonymous, err := ClientTLS(&TLSConfig{CA: files.CACert})
	require.NoError(t, err)
	assert.Error(t, handshake(t, srv, anonymous))
}

func TestServerOnlyTLS(t *testing.T) {
	files, err := certgen.Generate(t.TempDir(), "10.0.0.7", "node.local")
	require.NoError(t, err)

	srv, err := ServerTLS(&TLSConfig{Cert: files.ServerCert, Key: files.ServerKey})
	require.NoError(t, err)
	assert.Equal(t, tls.NoClientCert, srv.ClientAuth)

	cli, err := ClientTLS(&TLSConfig{CA: files.CACert})
	require.NoError(t, err)
	assert.NoError(t, handshake(t, srv, cli))

	// Without the private CA the server is not trusted.
	assert.Error(t, handshake(t, srv, &tls.Config{MinVersion: tls.VersionTLS13}))
}

func TestClientTLSBadCA(t *testing.T) {
	_, err := ClientTLS(&TLSConfig{CA: "/nonexistent/ca.crt"})
	assert.Error(t, err)
}
