// Package config loads the g3 configuration file.
//
// A Provider reads the document, converts it through the builders of the
// value packages (netconf, tlsconf, acl, dpi, ...) and returns an immutable
// Config. The default provider reads ~/.g3/g3.yaml.
//
// # Configuration Structure
//
//	runtime:
//	  thread_number: 4
//	  worker_affinity: [0-3]
//	log: info
//	resolvers:
//	  - name: public
//	    servers: [1.1.1.1, 8.8.8.8]
//	routes:
//	  main:
//	    default_next: direct
//	servers:
//	  - name: tls-in
//	    type: tls_stream
//	    escaper: direct
//	    listen: "[::]:8443"
//	    upstream: {host: backend.example.net, port: 8080, resolve: eager}
//	    tls:
//	      cert: tls/server.crt
//	      key: tls/server.key
//
// Relative file references, such as the certificate above, resolve against
// the directory of the configuration file.
//
// # Basic Usage
//
//	provider := config.NewWithPath(filesys.OS(), "/etc/g3/g3.yaml")
//	cfg, err := provider.Load()
//	if err != nil {
//		// invalid configuration: servers.0.tls.cert: invalid certificate: ... (line 17, column 13)
//		log.Fatal(err)
//	}
//
// # Server Entries
//
// The type of a server decides which keys it accepts; a key valid for
// another type fails with yamlconf.ErrUnknownKey. Deprecated spellings of
// tcp_sock_speed_limit are accepted with a warning.
// task_idle_check_duration is lowered to 30 minutes when set higher.
//
// Servers are converted concurrently. Parse stops at the first failing
// entry in document order; ParsePartial keeps the entries that convert and
// returns the others' errors combined.
//
// # Reload
//
// A Store holds the current snapshot. A Watcher reloads the file when it
// changes, swaps the Store only if the new document converts, and logs the
// DiffAction of every server:
//   - NoAction: the entry did not change
//   - ReloadNoRespawn: the entry changed but its listen config did not
//   - ReloadAndRespawn: the listen config changed
//   - SpawnNew: the server is new or changed type
//
// # Error Handling
//
//   - ErrNoConfig: the file does not exist; there is no default document
//   - ErrInvalidConfig: the document does not convert; the wrapped
//     *yamlconf.Error carries the key path
package config
