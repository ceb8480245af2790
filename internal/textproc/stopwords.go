package textproc

// stopWords are high-frequency prose terms excluded from the term stream.
// Code keywords are deliberately not listed: "func" or "return" in a query
// is usually a meaningful signal in a source corpus. "by" and "id" are kept
// because identifier splitting produces them constantly (getUserById).
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "were": {}, "which": {}, "will": {}, "with": {},
}
