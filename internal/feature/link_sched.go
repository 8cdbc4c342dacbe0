//go:build !g3_no_sched

package feature

func init() { link(Sched) }
