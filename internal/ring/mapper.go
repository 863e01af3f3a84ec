package ring

import "strings"

// Numeric codes for the connectivity status column. Anything that is
// not recognizably "up" degrades to StatusDown so alerting on
// "value < 1" catches unknown output as well as real outages.
const (
	StatusDown = 0
	StatusUp   = 1
)

// Numeric codes for the lifecycle state column. Unknown tokens map to
// StateUnknown for the same reason.
const (
	StateUnknown = 0
	StateNormal  = 1
	StateLeaving = 2
	StateJoining = 3
)

// StatusCode maps a raw status token to its numeric code. Pure, total
// and case-insensitive.
func StatusCode(token string) int {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "up":
		return StatusUp
	case "down":
		return StatusDown
	default:
		return StatusDown
	}
}

// StateCode maps a raw state token to its numeric code. Pure, total
// and case-insensitive.
func StateCode(token string) int {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "normal":
		return StateNormal
	case "leaving":
		return StateLeaving
	case "joining":
		return StateJoining
	default:
		return StateUnknown
	}
}

// Encode attaches the numeric codes to a parsed record.
func Encode(ns NodeStatus) CodedNodeStatus {
	coded := CodedNodeStatus{
		NodeStatus: ns,
		StatusCode: StatusCode(ns.Status),
		StateCode:  StateCode(ns.State),
	}
	if coded.StatusCode == StatusUp && coded.StateCode == StateNormal {
		coded.Health = 1
	}
	return coded
}

// EncodeAll encodes every record, preserving order. The result always
// has exactly one coded record per input record.
func EncodeAll(records []NodeStatus) []CodedNodeStatus {
	coded := make([]CodedNodeStatus, 0, len(records))
	for _, rec := range records {
		coded = append(coded, Encode(rec))
	}
	return coded
}
