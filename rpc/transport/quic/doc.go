// Package quic implements the QUIC binding of the transport layer using
// quic-go. TLS 1.3 is mandatory; both sides negotiate the ALPN "asyncsock".
//
// Every connection carries exactly one bidirectional stream which is opened
// by the initiator. Since QUIC announces a stream only once data was sent on
// it, the initiator writes a short preamble first. The stream is then exposed
// as net.Conn and framed by the base package, so QUIC peers behave exactly
// like TCP or Unix peers.
//
// TLS material is taken from common.TLSConf (certificate, key and CA files)
// unless a tls.Config is passed with WithTLSConfig.
package quic
