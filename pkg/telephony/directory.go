package telephony

import "strings"

// Directory resolves a hotline target name to a phone number.
type Directory struct {
	numbers  map[string]string
	fallback string
	override string
}

// NewDirectory builds a directory from target-to-number entries. The
// fallback number is used for unknown targets. A non-empty override
// redirects every lookup, which keeps test runs off real hotlines.
func NewDirectory(numbers map[string]string, fallback, override string) *Directory {
	normalized := make(map[string]string, len(numbers))
	for target, number := range numbers {
		normalized[strings.ToLower(strings.TrimSpace(target))] = number
	}
	return &Directory{numbers: normalized, fallback: fallback, override: override}
}

// Lookup returns the dialable number for a target.
func (d *Directory) Lookup(target string) string {
	if d.override != "" {
		return d.override
	}
	if number, ok := d.numbers[strings.ToLower(strings.TrimSpace(target))]; ok {
		return number
	}
	return d.fallback
}

// Targets lists the known target names.
func (d *Directory) Targets() []string {
	out := make([]string, 0, len(d.numbers))
	for target := range d.numbers {
		out = append(out, target)
	}
	return out
}
