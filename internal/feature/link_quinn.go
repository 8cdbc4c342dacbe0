//go:build !g3_no_quinn

package feature

func init() { link(Quinn) }
