// Package scope turns the scope of an export request into an ordered
// catalog query.
//
// Filters arrive as loosely typed maps decoded from JSON task payloads.
// Every value is coerced to its typed form before the query is built:
// id lists and numbers through spf13/cast, date bounds with the date-only
// layout and date-time bounds as ISO-8601. A value that cannot be coerced,
// or a key the filter does not know, fails with export.MalformedScope
// before any export file exists.
package scope
