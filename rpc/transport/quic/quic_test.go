package quic

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/stretchr/testify/require"
	"math/big"
	"net"
	"testing"
	"time"
)

func generateKeyPair(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

// generateCertificate creates a self-signed CA and a leaf for 127.0.0.1
func generateCertificate(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()
	caKey := generateKeyPair(t)
	leafKey := generateKeyPair(t)

	serial := func() *big.Int {
		n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
		require.NoError(t, err)
		return n
	}

	caTmpl := x509.Certificate{
		Subject:               pkix.Name{CommonName: "self-signed"},
		SerialNumber:          serial(),
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, &caTmpl, &caTmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	ca, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	leafTmpl := x509.Certificate{
		Subject:               pkix.Name{CommonName: "asyncsock"},
		SerialNumber:          serial(),
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		IPAddresses:           []net.IP{{127, 0, 0, 1}},
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, &leafTmpl, ca, &leafKey.PublicKey, caKey)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(ca)

	return tls.Certificate{Certificate: [][]byte{leafDER}, PrivateKey: leafKey}, pool
}

func TestQUICTransportExchange(t *testing.T) {
	cert, pool := generateCertificate(t)

	srv := NewQUICServerTransport(WithTLSConfig(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}))

	accepted := make(chan transport.Adapter, 1)
	srv.RegisterAcceptor(func(a transport.Adapter) {
		_ = a.OnMessage(func(frame []byte) {
			_ = a.Send(append([]byte("re:"), frame...))
		})
		accepted <- a
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen(common.ServerConfig{
			Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0"},
		})
	}()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	client, err := NewQUICClientTransport(WithTLSConfig(&tls.Config{
		RootCAs:    pool,
		ServerName: "127.0.0.1",
		MinVersion: tls.VersionTLS13,
	})).Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoint: srv.Addr().String()},
	})
	require.NoError(t, err)

	received := make(chan string, 2)
	require.NoError(t, client.OnMessage(func(frame []byte) { received <- string(frame) }))

	for _, msg := range []string{"one", "two"} {
		require.NoError(t, client.Send([]byte(msg)))
		select {
		case got := <-received:
			require.Equal(t, "re:"+msg, got)
		case <-time.After(5 * time.Second):
			t.Fatal("no reply received")
		}
	}

	// closing the client is seen as disconnect on the server side
	serverSide := <-accepted
	disconnected := make(chan error, 1)
	serverSide.OnDisconnect(func(err error) { disconnected <- err })
	require.NoError(t, client.Close())

	select {
	case err := <-disconnected:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect not reported")
	}

	require.NoError(t, srv.Close())
	require.NoError(t, <-listenErr)
}

func TestQUICRequiresTLS(t *testing.T) {
	srv := NewQUICServerTransport()
	srv.RegisterAcceptor(func(transport.Adapter) {})

	err := srv.Listen(common.ServerConfig{
		Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0"},
	})
	require.ErrorIs(t, err, common.ErrNoTLSConfig)
}
