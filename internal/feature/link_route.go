//go:build !g3_no_route

package feature

func init() { link(Route) }
