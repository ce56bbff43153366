package conversation

import (
	"regexp"
	"strings"
)

// The reply gate catches the model claiming success it did not have. A reply
// that announces a booked, cancelled, moved or charged outcome is only let
// through when the matching tool actually succeeded in this exchange.

type claimPattern struct {
	re      *regexp.Regexp
	allowed func(Effects) bool
}

var claimPatterns = []claimPattern{
	{
		re: regexp.MustCompile(`(?i)(turno|cita)\s+(confirmad|agendad|reservad)|te\s+(agend|reserv)é|quedó\s+(agendad|reservad|confirmad)`),
		allowed: func(e Effects) bool {
			return e.Booked || e.Moved
		},
	},
	{
		re: regexp.MustCompile(`(?i)(turno|cita)\s+cancelad|cancelé\s+(tu|el)\s+(turno|cita)|quedó\s+cancelad`),
		allowed: func(e Effects) bool {
			return e.Cancelled
		},
	},
	{
		re: regexp.MustCompile(`(?i)(turno|cita)\s+movid|moví\s+(tu|el)\s+(turno|cita)|reprogramad`),
		allowed: func(e Effects) bool {
			return e.Moved
		},
	},
	{
		re: regexp.MustCompile(`(?i)link\s+de\s+pago|mercado\s*pago\.com`),
		allowed: func(e Effects) bool {
			return e.LinkSent
		},
	},
}

const unearnedClaimReply = "Todavía no pude completar esa operación. ¿Querés que lo intente de nuevo?"

// GateReply passes a model reply through the claim check. It returns the
// text to send and whether the original was suppressed.
func GateReply(reply string, effects Effects) (string, bool) {
	if strings.TrimSpace(reply) == "" {
		return reply, false
	}
	for _, p := range claimPatterns {
		if p.re.MatchString(reply) && !p.allowed(effects) {
			return unearnedClaimReply, true
		}
	}
	return reply, false
}
