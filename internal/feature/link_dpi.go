//go:build !g3_no_dpi

package feature

func init() { link(DPI) }
