package ring

import (
	"regexp"
	"strings"
)

// minDataFields is the column contract floor: address, datacenter,
// rack, status, state. Anything past that is descriptive.
const minDataFields = 5

// hostLikePattern accepts IPv4, IPv6 and hostname tokens. It is
// deliberately loose; its job is to reject wrapped continuation lines,
// not to validate DNS.
var hostLikePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9_.:-]*[A-Za-z0-9])?$`)

// tokenLinePattern matches the orphan partition-token line nodetool
// prints above the first data row.
var tokenLinePattern = regexp.MustCompile(`^-?[0-9]+$`)

// headerKeywords are first-column tokens of known non-data lines.
var headerKeywords = map[string]struct{}{
	"Address":     {},
	"Datacenter:": {},
	"Note:":       {},
	"Warning:":    {},
}

// Parse converts raw `nodetool ring` output into an ordered sequence
// of node records. It never fails: malformed rows are skipped and
// reported as Warnings, and empty or header-only input yields an
// empty Result.
func Parse(raw string) *Result {
	res := &Result{}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isSeparatorLine(trimmed) || isHeaderLine(trimmed) {
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) == 1 && tokenLinePattern.MatchString(fields[0]) {
			// orphan token line, expected noise
			continue
		}
		if len(fields) < minDataFields {
			res.warn(lineNo, trimmed, "too few fields for a data row")
			continue
		}
		if !hostLikePattern.MatchString(fields[0]) {
			res.warn(lineNo, trimmed, "address field is not host-like")
			continue
		}

		res.Records = append(res.Records, buildRecord(fields))
	}

	return res
}

func (r *Result) warn(line int, text, reason string) {
	r.Warnings = append(r.Warnings, Warning{Line: line, Text: text, Reason: reason})
}

func isSeparatorLine(line string) bool {
	for _, r := range line {
		if r != '-' && r != '=' && r != ' ' {
			return false
		}
	}
	return true
}

func isHeaderLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	if _, ok := headerKeywords[fields[0]]; ok {
		return true
	}
	// Localized or reordered headers still carry the column names.
	return strings.Contains(line, "Address") && strings.Contains(line, "Status")
}

// buildRecord maps fixed leading columns and best-effort trailing
// columns onto a NodeStatus. Extra trailing columns from newer
// nodetool versions are tolerated.
func buildRecord(fields []string) NodeStatus {
	rec := NodeStatus{
		Address:    fields[0],
		Datacenter: fields[1],
		Rack:       fields[2],
		Status:     fields[3],
		State:      fields[4],
	}

	rest := fields[minDataFields:]
	if len(rest) == 0 {
		return rec
	}

	// Load is printed as "<value> <unit>"; rejoin when the unit token
	// is recognized, otherwise take the single column as-is.
	if len(rest) >= 2 && isLoadUnit(rest[1]) {
		rec.Load = rest[0] + " " + rest[1]
		rest = rest[2:]
	} else {
		rec.Load = rest[0]
		rest = rest[1:]
	}

	if len(rest) > 0 && strings.HasSuffix(rest[0], "%") {
		rec.Owns = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		rec.Token = rest[len(rest)-1]
	}
	return rec
}

func isLoadUnit(token string) bool {
	switch strings.ToUpper(token) {
	case "KB", "MB", "GB", "TB", "KIB", "MIB", "GIB", "TIB", "BYTES":
		return true
	}
	return false
}
