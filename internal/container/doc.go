// Package container reads and writes the zip container that backs a vault.
//
// The container is a plain zip archive. Entries are either the reserved
// manifest entry or project files stored under a namespace prefix; this
// package knows nothing about either and only deals in entry names and bytes.
//
// Writers can copy an entry from an open Reader verbatim (compressed bytes,
// CRC and header) with CopyRaw, so unchanged entries are never
// decompressed during a rewrite.
//
// Three compression methods are supported for new entries: deflate (the
// default), store and zstd. zstd entries use the WinZip method id (93) and
// are readable by any Reader opened through this package.
package container
