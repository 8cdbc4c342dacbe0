//go:build !g3_no_rustls

package feature

func init() { link(Rustls) }
