// Package symbols extracts named declarations from source files for the
// symbol retrieval source. Go gets full AST extraction; Python, Rust,
// JavaScript, TypeScript, and Java get line-pattern scans. Unsupported
// languages produce no symbols and no error.
package symbols
