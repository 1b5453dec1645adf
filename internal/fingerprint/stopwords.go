package fingerprint

// stopWords are excluded from normalized titles and key-phrase tokens.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true, "s": true,
	"she": true, "t": true, "that": true, "the": true, "their": true,
	"they": true, "this": true, "to": true, "was": true, "were": true,
	"will": true, "with": true,
}
