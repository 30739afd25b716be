package quic

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/quic-go/quic-go"
	"os"
	"time"
)

// ALPN is the application protocol negotiated by both sides
const ALPN = "asyncsock"

type options struct {
	tlsConf  *tls.Config
	quicConf *quic.Config
}

// Option configures a QUIC transport
type Option func(*options)

// WithTLSConfig sets the tls.Config used instead of the certificate files of
// the transport configuration. The ALPN is always overwritten.
func WithTLSConfig(tlsConf *tls.Config) Option {
	return func(o *options) {
		o.tlsConf = tlsConf
	}
}

// WithQuicConfig sets the quic.Config, the defaults are used otherwise
func WithQuicConfig(quicConf *quic.Config) Option {
	return func(o *options) {
		o.quicConf = quicConf
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.quicConf == nil {
		o.quicConf = &quic.Config{
			MaxIdleTimeout:  time.Minute,
			KeepAlivePeriod: 15 * time.Second,
		}
	}
	return o
}

// serverTLSConfig returns the tls configuration of the acceptor side
func (o options) serverTLSConfig(conf common.TLSConf) (*tls.Config, error) {
	if o.tlsConf != nil {
		return withALPN(o.tlsConf), nil
	}
	if conf.CertFile == "" || conf.KeyFile == "" {
		return nil, common.ErrNoTLSConfig
	}

	cert, err := tls.LoadX509KeyPair(conf.CertFile, conf.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}

	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}

	// a CA enables verification of client certificates
	if conf.CAFile != "" {
		pool, err := loadCertPool(conf.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConf.ClientCAs = pool
		tlsConf.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return withALPN(tlsConf), nil
}

// clientTLSConfig returns the tls configuration of the initiator side
func (o options) clientTLSConfig(conf common.TLSConf) (*tls.Config, error) {
	if o.tlsConf != nil {
		return withALPN(o.tlsConf), nil
	}

	tlsConf := &tls.Config{
		InsecureSkipVerify: conf.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS13,
	}

	if conf.CAFile != "" {
		pool, err := loadCertPool(conf.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConf.RootCAs = pool
	}

	// client certificate for mTLS
	if conf.CertFile != "" && conf.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(conf.CertFile, conf.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load key pair: %w", err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}

	return withALPN(tlsConf), nil
}

func withALPN(tlsConf *tls.Config) *tls.Config {
	c := tlsConf.Clone()
	c.NextProtos = []string{ALPN}
	return c
}

func loadCertPool(file string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificate found in %s", file)
	}
	return pool, nil
}
