package record

// ClientRecord is a record reported by a remote client. Side is always
// SideClient and Count is the number of occurrences it stands for.
type ClientRecord struct {
	Record
	Count int
}

// NewClientRecord wraps r as a single client occurrence.
func NewClientRecord(r Record) ClientRecord {
	r.Side = SideClient
	return ClientRecord{Record: r, Count: 1}
}

// SameSource reports whether c and o describe the same fault: equal Level
// and StackTrace. Message and Time are ignored so bursts of one fault with
// varying text can be coalesced.
func (c ClientRecord) SameSource(o ClientRecord) bool {
	return c.Level == o.Level && c.StackTrace == o.StackTrace
}

// Occurrences returns Count, treating values below one as one.
func (c ClientRecord) Occurrences() int {
	if c.Count < 1 {
		return 1
	}
	return c.Count
}
