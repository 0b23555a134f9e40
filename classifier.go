package xssbench

// Classify fuses a Signals bag into a single terminal Outcome. Precedence,
// highest first:
//
//  1. adapter_status == adapter_error  -> error
//  2. adapter_status == unsupported_config -> skip
//  3. xss, if any of: dialog fired; a dangerous-URL probe hit; a script
//     resource attempt recorded by the Network Guard. A dangerous
//     javascript: navigation target is caught as a dangerous-URL probe
//     hit; there is no separate navigation check.
//  4. external, if a non-script external attempt occurred (and none of
//     the stronger conditions hold).
//  5. pass, otherwise.
//
// Classify is pure: identical Signals always yield identical Outcome. A
// plain benign navigation (e.g. following <a href="https://...">) is not,
// by itself, xss — it only contributes to external unless the Network
// guard also caught a script fetch or the URL probe flagged the
// destination scheme.
func Classify(s Signals) Outcome {
	if s.AdapterStatus == AdapterError {
		return OutcomeError
	}
	if s.AdapterStatus == AdapterUnsupportedConfig {
		return OutcomeSkip
	}

	if isXSS(s) {
		return OutcomeXSS
	}
	if s.NonScriptExternalAttempt {
		return OutcomeExternal
	}
	return OutcomePass
}

func isXSS(s Signals) bool {
	if s.DialogFired {
		return true
	}
	if len(s.DangerousURLHits) > 0 {
		return true
	}
	if s.ExternalScriptAttempted {
		return true
	}
	return false
}
