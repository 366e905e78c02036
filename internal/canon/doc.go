// Package canon provides canonical JSON encoding and content-addressed ids
// for trace records.
//
// Canonical JSON follows RFC 8785: object keys sorted by UTF-16 code units,
// no HTML escaping, NFC-normalized strings. Floats are rejected; ordinates
// encode as their reduced decimal string so 1000 and 1e3 hash alike.
package canon
