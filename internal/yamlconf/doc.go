// Package yamlconf converts parsed YAML documents into validated values.
//
// The package is the shared base of every configuration builder in g3. It
// provides a read-only document Node, the scalar converters for the value
// grammars used across the configuration (durations, sizes, domain names,
// URLs, regular expressions), and the Context that records the key path of
// the node being converted so every failure can say where it happened.
//
// # Basic Usage
//
// Parse a document and hand its root to a builder chosen by the caller:
//
//	root, err := yamlconf.Parse(data)
//	if err != nil {
//		return err
//	}
//	ep, err := yamlconf.Convert(root, netconf.ParseEndpoint)
//	if err != nil {
//		// host: invalid domain name: empty label in "example..com" (line 1, column 7)
//		return err
//	}
//
// # Writing a Builder
//
// A builder walks a mapping with ForEachKV, dispatches on the normalized key
// and rejects keys it does not know. Keys with more than one accepted
// spelling are listed in an Aliases table and walked through it, so the
// switch only sees canonical names:
//
//	var _limitKeys = yamlconf.NewAliases([]string{"burst_size", "burst"})
//
//	func ParseLimit(c *yamlconf.Context, v yamlconf.Node) (Limit, error) {
//		var l Limit
//		err := _limitKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
//			var err error
//			switch k {
//			case "max":
//				l.Max, err = yamlconf.AsUint32(v)
//			case "burst_size":
//				l.Burst, err = yamlconf.AsSizeInt(v)
//			default:
//				err = yamlconf.UnknownKey(k, v)
//			}
//			return err
//		})
//		return l, err
//	}
//
// # Keys
//
// Mapping keys are normalized before dispatch: lower case with dashes turned
// into underscores, so "Max-Idle" and "max_idle" name the same key. Two keys
// of one mapping that normalize to the same spelling, or that are aliases of
// one canonical key, fail with ErrDuplicateKey at the second; a value is
// never silently overwritten.
//
// # Error Handling
//
// Every failure is an *Error matching one reason with errors.Is:
//   - ErrTypeMismatch: wrong node variant or scalar grammar
//   - ErrDuplicateKey, ErrUnknownKey, ErrMissingKey: mapping shape
//   - ErrInvalidDuration, ErrInvalidSize, ErrInvalidDomainName, ErrInvalidURL,
//     ErrInvalidRegex, ErrInvalidAddress: scalar grammars
//   - ErrNonMonotonicBuckets, ErrOutOfRange, ErrInvalidValue: semantic checks
//   - ErrInvalidCertificate, ErrInvalidPrivateKey: key material
//   - ErrUnsupportedFeature: the capability is not linked into the binary
//
// Conversion is fail-fast. The first error aborts the call and is returned
// with its full path, e.g. "servers.0.tls.cert: invalid certificate".
//
// # Thread Safety
//
// Nodes are never modified and may be converted from several goroutines at
// once. A Context belongs to one goroutine; Fork it to convert branches of a
// document in parallel.
package yamlconf
