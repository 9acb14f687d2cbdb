package aggregate

import "strconv"

// SuccessCode is the result code the authentication service writes for a
// successful attempt.
const SuccessCode = "0"

// CompareResultCodes orders result codes for display: the success code sorts
// strictly first, numeric codes follow in ascending numeric order, and
// non-numeric codes come last in lexicographic order. Returns -1, 0, or 1.
func CompareResultCodes(a, b string) int {
	if a == b {
		return 0
	}
	if a == SuccessCode {
		return -1
	}
	if b == SuccessCode {
		return 1
	}
	an, aNum := parseCode(a)
	bn, bNum := parseCode(b)
	switch {
	case aNum && bNum:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		// Codes like "01" and "1" parse to the same integer; fall back
		// to the raw strings so distinct codes never compare equal.
		if a < b {
			return -1
		}
		return 1
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		if a < b {
			return -1
		}
		return 1
	}
}

func parseCode(code string) (int64, bool) {
	n, err := strconv.ParseInt(code, 10, 64)
	return n, err == nil
}
