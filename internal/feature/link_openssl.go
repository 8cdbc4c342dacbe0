//go:build g3_openssl && cgo

package feature

func init() { link(OpenSSL) }
