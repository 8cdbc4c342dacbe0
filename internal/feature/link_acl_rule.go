//go:build !g3_no_acl_rule

package feature

func init() { link(ACLRule) }
