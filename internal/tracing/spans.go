package tracing

// Span names.
const (
	SpanEpisodeFlush = "episode.flush"
	SpanPrefixHTTP   = "http."
)

// Span attribute keys.
const (
	AttrEpisodeID    = "episode.id"
	AttrEpisodeEdits = "episode.edits"
	AttrDocument     = "document"
	AttrInsertChars  = "insert.chars"
	AttrTokens       = "tokens"
	AttrEnergyJoules = "energy_joules"
	AttrOutcome      = "outcome"

	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"
)

// Span events.
const (
	EventDeltaExtracted = "delta.extracted"
	EventTokensCounted  = "tokens.counted"
	EventEstimated      = "usage.estimated"
	EventSinkFailed     = "sink.failed"
)
