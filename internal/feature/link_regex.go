//go:build !g3_no_regex

package feature

func init() { link(Regex) }
