package devices

import "strings"

// Name substrings that immediately disqualify a headphone-class route.
// Generic accessories, computers and cars present headphone ports too;
// treating them as DACs changes the wire format and produces audible
// noise, so the deny list runs before any allow rule.
var denySubstrings = []string{
	"macbook",
	"imac",
	"mac mini",
	"mac studio",
	"iphone",
	"ipad",
	"speaker",
	"internal",
	"built-in",
	"builtin",
	"default",
	"generic",
	"car",
	"handsfree",
	"hands-free",
}

// Known dedicated-audio-hardware brands seen on headphone-class ports.
var allowBrandSubstrings = []string{
	"topping",
	"chord",
	"mojo",
	"hugo",
	"ifi",
	"fiio",
	"schiit",
	"dragonfly",
	"audioquest",
	"rme",
	"mytek",
	"benchmark",
	"questyle",
	"cayin",
	"shanling",
	"hiby",
	"astell",
	"luxury & precision",
	"earmen",
	"ddhifi",
}

// Standalone tokens that mark dedicated audio hardware regardless of brand.
var allowKeywordTokens = []string{
	"dac",
	"dsd",
}

// Wireless codec keywords that imply a high-resolution capable receiver.
var wirelessHiResKeywords = []string{
	"ldac",
	"aptx hd",
	"aptx-hd",
	"lhdc",
}

// QualifiesAsDAC classifies whether any current output route is a
// dedicated external DAC. Rules apply in order, first match wins; the
// heuristic is deliberately conservative because a false positive is
// worse than a false negative (see denySubstrings).
func QualifiesAsDAC(routes Routes) bool {
	for _, r := range routes {
		if qualifies(r) {
			return true
		}
	}
	return false
}

func qualifies(r Route) bool {
	name := strings.ToLower(r.Name)

	switch r.PortType {
	case PortUSBAudio, PortLineOut:
		return true

	case PortHeadphones:
		for _, deny := range denySubstrings {
			if strings.Contains(name, deny) {
				return false
			}
		}
		for _, brand := range allowBrandSubstrings {
			if strings.Contains(name, brand) {
				return true
			}
		}
		if containsToken(name, allowKeywordTokens...) {
			return true
		}
		if strings.Contains(name, "headphone amplifier") || strings.Contains(name, "headphone amp") {
			return true
		}
		return false

	case PortBluetooth, PortAirPlay:
		for _, kw := range wirelessHiResKeywords {
			if strings.Contains(name, kw) {
				return true
			}
		}
		return false
	}

	if !r.PortType.BuiltIn() {
		if containsToken(name, "dac", "external") {
			return true
		}
	}
	return false
}

// containsToken reports whether name contains any of the tokens as a
// standalone word. Substring matching would misfire on names like
// "Cascade" for "dac".
func containsToken(name string, tokens ...string) bool {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	for _, f := range fields {
		for _, tok := range tokens {
			if f == tok {
				return true
			}
		}
	}
	return false
}
