// Package resolver converts DNS resolver definitions and provides the client
// used to resolve eager upstream endpoints once a configuration is loaded.
//
// # Configuration
//
//	resolvers:
//	  - name: public
//	    servers: [1.1.1.1, "8.8.8.8:53", "[2606:4700:4700::1111]:53"]
//	    timeout: 3s
//	    retries: 2
//
// A server without a port uses port 53. Conversion never sends a query.
//
// # Lookups
//
// A Client built from a Config sends A and AAAA queries concurrently to a
// random configured server, retrying each query up to Retries more times:
//
//	client := resolver.New(cfg)
//	addrs, err := client.LookupEndpoint(ctx, upstream)
//	if errors.Is(err, resolver.ErrNoRecords) {
//		// the name exists but has no address records
//	}
//
// Results of both queries are merged; an error is returned only when both
// fail, aggregating the two causes with go.uber.org/multierr.
//
// # Thread Safety
//
// A Client is safe for concurrent use.
package resolver
