// Package config provides the server configuration and the loading of stub
// mapping files.
//
// ServerConfiguration holds the server settings: ports, TLS, root directory,
// proxying, journal and logging options. Load reads it with viper from
// defaults, an optional stubd.yaml, STUBD_* environment variables and bound
// command-line flags, in increasing order of precedence.
//
// Mapping files:
//
// MappingLoader reads every .json, .yaml and .yml file below the mappings
// directory (root-dir/mappings) plus any extra glob patterns. A file holds a
// single mapping, a list of mappings, or an object with a "mappings" list:
//
//	{
//	  "mappings": [
//	    {
//	      "request": {"method": "GET", "urlPath": "/api/users"},
//	      "response": {"status": 200, "body": "[]"}
//	    }
//	  ]
//	}
//
// Each document is checked against an embedded JSON Schema before decoding.
// Watcher reloads the mappings when files in the directory change.
package config
