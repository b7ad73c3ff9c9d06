// Package requestlog keeps the request journal: a record of the requests the
// stub server received, which mapping answered them and with what status.
//
// The journal is distinct from operational logging (log/slog). It serves the
// admin API, which lists journal entries and counts or finds the requests
// matching a request pattern.
//
//	journal := requestlog.NewMemoryStore(1000)
//	journal.Log(requestlog.NewEntry(req))
//	n, err := journal.CountMatching(pattern)
//
// A Disabled journal records nothing and answers queries with ErrDisabled.
package requestlog
