//go:build !g3_no_geoip

package feature

func init() { link(GeoIP) }
