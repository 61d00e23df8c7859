package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a
// filter value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Key         string // Filter key or placeholder name that failed the check
	Value       any    // The value that was checked
}

// CheckValueForInjection uses libinjection to detect SQL injection patterns
// in a filter value before it reaches any SQL text or bind slot.
//
// Only string values are checked; numbers, booleans, and other types cannot
// carry SQL injection patterns and return nil (no injection detected).
func CheckValueForInjection(key string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			Key:         key,
			Value:       value,
		}
	}

	return nil
}

// CheckAllValues validates every filter value for SQL injection attempts.
// Returns one InjectionCheckResult per offending value; empty if all clean.
func CheckAllValues(values map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for key, value := range values {
		if result := CheckValueForInjection(key, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
