package storeauth

import "regexp"

// The deactivation marker is a letter followed by the same letter repeated five
// times ("axxxxx"). The repeated character must itself be a letter so that
// derived default secrets (one letter + five zip digits, e.g. "a11803") can
// never be mistaken for a deactivated account.
//
// Go's RE2 engine has no backreferences, so "the same letter five times"
// (`([A-Za-z])\1{4}`) is written as an explicit alternation over every letter.
var deactivationPattern = regexp.MustCompile(`^[A-Za-z](?:a{5}|b{5}|c{5}|d{5}|e{5}|f{5}|g{5}|h{5}|i{5}|j{5}|k{5}|l{5}|m{5}|n{5}|o{5}|p{5}|q{5}|r{5}|s{5}|t{5}|u{5}|v{5}|w{5}|x{5}|y{5}|z{5}|A{5}|B{5}|C{5}|D{5}|E{5}|F{5}|G{5}|H{5}|I{5}|J{5}|K{5}|L{5}|M{5}|N{5}|O{5}|P{5}|Q{5}|R{5}|S{5}|T{5}|U{5}|V{5}|W{5}|X{5}|Y{5}|Z{5})$`)

// deactivationDetector recognizes the reserved secret shape that marks an
// administratively disabled account, minus the configured exemptions.
type deactivationDetector struct {
	exempt map[string]struct{}
}

func newDeactivationDetector(cfg DeactivationConfig) *deactivationDetector {
	d := &deactivationDetector{
		exempt: make(map[string]struct{}, len(cfg.ExemptSecrets)),
	}
	for _, s := range cfg.ExemptSecrets {
		d.exempt[s] = struct{}{}
	}
	return d
}

// Matches reports whether secret is a deactivation marker. Exempt literals are
// compared case-sensitively and never match regardless of shape.
func (d *deactivationDetector) Matches(secret string) bool {
	if _, ok := d.exempt[secret]; ok {
		return false
	}
	return deactivationPattern.MatchString(secret)
}
