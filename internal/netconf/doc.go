// Package netconf converts the network building blocks shared by every
// server and escaper configuration: addresses, endpoints, listen sockets,
// socket speed limits, TCP socket options and QUIC transport settings.
//
// Endpoints are written either as a scalar:
//
//	upstream: "backend.example.net:443"
//	upstream: "[2001:db8::1]:8443"
//
// or as a mapping, which also selects when the host is resolved:
//
//	upstream:
//	  host: backend.example.net
//	  port: 443
//	  resolve: eager
//
// Listen sockets accept a bare port, an "address:port" scalar or a mapping
// with the socket options:
//
//	listen: 8080
//	listen:
//	  address: "[::]:8080"
//	  backlog: 1024
//	  ipv6_only: true
//	  instance: 4
package netconf
