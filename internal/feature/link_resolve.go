//go:build !g3_no_resolve

package feature

func init() { link(Resolve) }
