// Package engine is the stub server core.
//
// A request flows through four parts:
//
//	HTTP request
//	     │
//	     ▼
//	┌──────────┐   Serve    ┌──────────────┐
//	│ Handler  │──────────▶│ StubMappings │  priority, then registration order;
//	└──────────┘            └──────────────┘  scenario state; captures and random values
//	     │ ResponseDefinition
//	     ▼
//	┌──────────┐  delay, then body/file/proxy
//	│ Renderer │──────────▶ Response ──▶ written, or a connection fault
//	└──────────┘
//	     │
//	     ▼
//	request journal
//
// The admin API (Admin, under AdminPrefix) registers and removes mappings,
// resets scenarios, changes global settings and queries the journal.
// Server wires both to HTTP and HTTPS listeners, loads mapping files and
// reloads them on change.
//
// # Concurrency
//
// Serving never holds a lock while matching: StubMappings scans an immutable
// snapshot of the mapping set, scenario states are atomic cells, and global
// settings are swapped atomically. Registration and reset serialize on a
// mutex. A response delay blocks only the goroutine serving that request.
package engine
