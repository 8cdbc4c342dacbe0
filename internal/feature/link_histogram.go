//go:build !g3_no_histogram

package feature

func init() { link(Histogram) }
