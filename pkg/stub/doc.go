// Package stub defines stub mappings and the response definitions they serve.
//
// A Mapping pairs a request predicate with a ResponseDefinition and carries
// the optional priority, scenario gate, captures, placeholder delimiters and
// random values that shape how it is selected and rendered. Mappings are
// decoded from JSON or YAML documents and validated once, at registration;
// after that they are treated as immutable apart from the scenario link and
// insertion index the store assigns.
//
// Response is the concrete, rendered result handed to the transport.
package stub
