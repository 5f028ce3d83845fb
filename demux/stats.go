package demux

// Stats is a point-in-time snapshot of a reader's record counters,
// exposed for diagnostics.
type Stats struct {
	RecordsRead    int64 `json:"recordsRead"`
	RecordsSkipped int64 `json:"recordsSkipped"`
	BytesDelivered int64 `json:"bytesDelivered"`
	ProtocolErrors int64 `json:"protocolErrors"`
}

// Stats returns a snapshot of the reader's counters. Like all reader
// methods it must be called from the goroutine driving the reads.
func (r *Reader) Stats() Stats {
	return Stats{
		RecordsRead:    r.records,
		RecordsSkipped: r.skipped,
		BytesDelivered: r.delivered,
		ProtocolErrors: r.protoErrs,
	}
}
