// Package demux implements the FastCGI record demultiplexer: a
// buffered reader that splits the single byte stream shared with a web
// server into typed, length-delimited content channels belonging to
// one or more multiplexed requests.
//
// The central type is [Reader], which serves one logical channel at a
// time from an [io.Reader] transport. It reconstructs record
// boundaries, steps over padding, drains records addressed to other
// requests, and surfaces end-of-channel as [io.EOF]. Header
// interpretation is delegated to a [HeaderDecoder]; [Decoder] is the
// protocol-conformant default.
package demux
