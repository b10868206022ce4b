// Package noderest exposes content nodes of a given type as flat JSON records.
//
// A Service builds a store query from a content type and a set of equality
// filters, executes it with a fixed privileged account, and hands the
// resulting node IDs to a Formatter. The Formatter flattens each node into an
// OutputRecord according to a per-type FormatterConfig: plain and rich text
// fields are cleaned, links pass through, images resolve to public URLs,
// entity references collapse into either a comma-joined list of taxonomy term
// names or a list of rendered entities, and metatags are appended as meta_*
// keys.
//
// Every platform capability the Formatter touches (entity loading, field
// definitions, aliases, files, rendering, metatags) is an interface injected
// through functional options. Implementations live in subpackages: stores
// under repo/ (memory, Postgres, SQLite), file URL strategies under files/,
// templates under view/ and metatags under metatag/.
package noderest
