package market

import (
	"fmt"
	"strings"
)

// Kind enumerates latent-state families.
type Kind int

const (
	KindFunding Kind = iota + 1
	KindForward
	KindCredit
	KindFX
	KindGovvie
	KindRecovery
	KindCustomMetric
)

var kindNames = map[Kind]string{
	KindFunding:      "FUNDING",
	KindForward:      "FORWARD",
	KindCredit:       "CREDIT",
	KindFX:           "FX",
	KindGovvie:       "GOVVIE",
	KindRecovery:     "RECOVERY",
	KindCustomMetric: "CUSTOM",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// Label identifies one latent state: its family plus the currency, index,
// reference entity or metric name it is keyed by.
type Label struct {
	Kind Kind
	ID   string
}

// String renders the label as KIND::ID. Merge labels on constraints use this form.
func (l Label) String() string {
	return l.Kind.String() + "::" + l.ID
}

// IsZero reports whether the label is unset.
func (l Label) IsZero() bool {
	return l.Kind == 0 && l.ID == ""
}

// ParseLabel is the inverse of Label.String.
func ParseLabel(s string) (Label, error) {
	kind, id, ok := strings.Cut(s, "::")
	if !ok || id == "" {
		return Label{}, fmt.Errorf("parse label %q: missing ::ID", s)
	}
	for k, name := range kindNames {
		if name == kind {
			return Label{Kind: k, ID: id}, nil
		}
	}
	return Label{}, fmt.Errorf("parse label %q: unknown kind %q", s, kind)
}

func FundingLabel(currency string) Label  { return Label{Kind: KindFunding, ID: currency} }
func ForwardLabel(idx Index) Label        { return Label{Kind: KindForward, ID: idx.Name} }
func CreditLabel(name string) Label       { return Label{Kind: KindCredit, ID: name} }
func GovvieLabel(currency string) Label   { return Label{Kind: KindGovvie, ID: currency} }
func RecoveryLabel(name string) Label     { return Label{Kind: KindRecovery, ID: name} }
func CustomMetricLabel(name string) Label { return Label{Kind: KindCustomMetric, ID: name} }

// FXLabel keys an FX latent state by currency pair, e.g. "EUR/USD".
func FXLabel(base, quote string) Label {
	return Label{Kind: KindFX, ID: base + "/" + quote}
}

// PairKey is an order-independent key for symmetric quantities such as
// correlations: PairKeyOf(a, b) == PairKeyOf(b, a).
type PairKey struct {
	first, second Label
}

// PairKeyOf returns the canonical key for the unordered pair {a, b}.
func PairKeyOf(a, b Label) PairKey {
	if b.String() < a.String() {
		a, b = b, a
	}
	return PairKey{first: a, second: b}
}

// Labels returns the pair members in canonical order.
func (p PairKey) Labels() (Label, Label) {
	return p.first, p.second
}

func (p PairKey) String() string {
	return p.first.String() + "@#" + p.second.String()
}
