// Package textproc normalizes text into the term stream shared by indexing
// and querying.
//
// The pipeline is: word extraction, identifier splitting on case and
// underscore boundaries (getUserById -> get, user, by, id), case folding,
// stop-word removal, and optional Porter stemming. Documents and queries run
// through the same pipeline so the lexical index and search vocabulary agree.
package textproc
