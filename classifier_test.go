package xssbench

import "testing"

func TestClassify_Precedence(t *testing.T) {
	tests := []struct {
		name string
		in   Signals
		want Outcome
	}{
		{
			name: "adapter error wins over everything",
			in: Signals{
				AdapterStatus:           AdapterError,
				DialogFired:             true,
				NonScriptExternalAttempt: true,
			},
			want: OutcomeError,
		},
		{
			name: "unsupported config wins over xss/external",
			in: Signals{
				AdapterStatus:           AdapterUnsupportedConfig,
				DialogFired:             true,
				NonScriptExternalAttempt: true,
			},
			want: OutcomeSkip,
		},
		{
			name: "dialog fired is xss",
			in:   Signals{AdapterStatus: AdapterOK, DialogFired: true},
			want: OutcomeXSS,
		},
		{
			name: "dangerous url hit is xss",
			in: Signals{
				AdapterStatus:    AdapterOK,
				DangerousURLHits: []URLHit{{Tag: "a", Attr: "href", Value: "javascript:alert(1)"}},
			},
			want: OutcomeXSS,
		},
		{
			name: "external script attempt is xss, not external",
			in: Signals{
				AdapterStatus:           AdapterOK,
				ExternalScriptAttempted: true,
				NonScriptExternalAttempt: true,
			},
			want: OutcomeXSS,
		},
		{
			name: "non-script external attempt alone is external",
			in:   Signals{AdapterStatus: AdapterOK, NonScriptExternalAttempt: true},
			want: OutcomeExternal,
		},
		{
			name: "plain navigation with nothing else is pass",
			in:   Signals{AdapterStatus: AdapterOK, NavigationOccurred: true},
			want: OutcomePass,
		},
		{
			name: "no signals at all is pass",
			in:   Signals{AdapterStatus: AdapterOK},
			want: OutcomePass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			if got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify_NavigationAloneIsNotXSS(t *testing.T) {
	// Clicking a plain https link is not XSS by itself. Only a dangerous
	// scheme hit or a blocked script fetch promotes it.
	s := Signals{AdapterStatus: AdapterOK, NavigationOccurred: true, NonScriptExternalAttempt: true}
	if got := Classify(s); got != OutcomeExternal {
		t.Errorf("plain navigation + non-script external attempt = %v, want external", got)
	}
}
