package retention

// Resolve maps a countdown, hold status and policy to the action label
// shown in the schedule. Legal hold is checked before any date logic.
func Resolve(countdown Countdown, onHold bool, p *Policy) string {
	switch {
	case onHold:
		return LabelOnLegalHold
	case countdown.Indefinite:
		return LabelPermanent
	case countdown.Days <= 0:
		return string(p.ActionOnExpiry)
	case p.NotifyBeforeDays != nil && countdown.Days <= *p.NotifyBeforeDays:
		return LabelApproachingExpiry
	default:
		return LabelNoActionRequired
	}
}
