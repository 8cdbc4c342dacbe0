// Package tlsconf converts TLS server and client material.
//
// Certificates and private keys are given inline as PEM or as a path to a
// PEM file. Relative paths resolve against the directory of the main
// configuration file:
//
//	tls_server:
//	  cert: certs/proxy.crt
//	  key: certs/proxy.key
//	  enable_client_auth: true
//	  ca_certificate: certs/clients-ca.crt
//	  protocols: [tls1.2, tls1.3]
//	  alpn_protocols: [h2, http/1.1]
//
// The backend key picks the TLS library the proxy links: rustls or openssl.
// Without it the first linked backend is used, preferring rustls. Naming a
// backend that is not linked fails with yamlconf.ErrUnsupportedFeature.
//
// Converted values carry parsed certificates and can produce a
// *crypto/tls.Config for Go based consumers with Build.
package tlsconf
