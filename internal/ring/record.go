// Package ring parses `nodetool ring` output into per-node status
// records and maps the textual status/state tokens to numeric codes
// suitable for alerting.
package ring

// NodeStatus is one data row of ring output. Status and State keep the
// tool's original casing; Load, Owns and Token are passed through as
// opaque strings.
type NodeStatus struct {
	Address    string
	Datacenter string
	Rack       string
	Status     string
	State      string
	Load       string
	Owns       string
	Token      string
}

// CodedNodeStatus is a NodeStatus with its numeric codes attached.
// Health is 1 only when the node is both Up and Normal.
type CodedNodeStatus struct {
	NodeStatus
	StatusCode int
	StateCode  int
	Health     int
}

// Warning records a skipped input line. Warnings are non-fatal; the
// parser keeps going.
type Warning struct {
	Line   int    // 1-based line number in the raw output
	Text   string // the offending line, trimmed
	Reason string
}

// Result is the outcome of one parse. Records preserve input order.
type Result struct {
	Records  []NodeStatus
	Warnings []Warning
}
