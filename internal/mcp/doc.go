// Package mcp implements the Model Context Protocol (MCP) server surface.
//
// The server exposes four tools to MCP clients over stdio:
//   - index_codebase: index a project directory for retrieval
//   - search_code: query the index and return fused, ranked results
//   - clear_index: drop everything and start over
//   - get_status: report index statistics and stack health
//
// MCP is JSON-RPC 2.0 over stdio, so stdout carries protocol traffic only;
// anything the server wants to log goes to stderr. Tool handlers translate
// between MCP arguments and the searcher API, returning indented JSON as
// the tool result text.
//
// Error codes:
//   - -32602: invalid params (missing/invalid arguments)
//   - -32603: internal error (storage, filesystem)
//   - -32002: indexing already in progress
//   - -32003: no retrieval source available (nothing indexed)
//   - -32004: empty query
package mcp
