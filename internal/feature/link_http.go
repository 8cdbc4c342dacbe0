//go:build !g3_no_http

package feature

func init() { link(HTTP) }
