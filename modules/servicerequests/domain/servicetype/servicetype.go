package servicetype

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
)

var ErrUnknown = errors.New("unknown service type")

type Type string

const (
	ABNRegistration          Type = "abn-registration"
	GSTRegistration          Type = "gst-registration"
	TFNRegistration          Type = "tfn-registration"
	BusinessNameRegistration Type = "business-name-registration"
	TaxReturnCopy            Type = "tax-return-copy"
	BASLodgementCopy         Type = "bas-lodgement-copy"
	ATOPortalCopy            Type = "ato-portal-copy"
	NoticeOfAssessmentCopy   Type = "notice-of-assessment-copy"
	PaymentPlan              Type = "payment-plan"
	UpdateAddress            Type = "update-address"
)

type Group string

const (
	GroupRegistration  Group = "registration"
	GroupDocumentation Group = "documentation"
	GroupManagement    Group = "management"
)

type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
)

// Field is one required entry of a service form. Rule is a validator tag
// applied after the presence check.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
	Rule  string `json:"-"`
}

type Definition struct {
	Type        Type                  `json:"type"`
	Group       Group                 `json:"group"`
	Title       string                `json:"title"`
	Collection  string                `json:"collection"`
	Fields      []Field               `json:"fields"`
	Declaration bool                  `json:"declaration"`
	Labels      servicerequest.Labels `json:"labels"`
}

// PayloadKey is the JSON key the submit body nests the form under,
// e.g. "paymentPlanData" for payment-plan.
func (d Definition) PayloadKey() string {
	return PayloadKey(d.Type)
}

func (d Definition) Display(status servicerequest.Status) servicerequest.DisplayState {
	return servicerequest.DisplayFor(status, d.Labels)
}

func PayloadKey(t Type) string {
	var b strings.Builder
	upper := false
	for _, r := range string(t) {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	b.WriteString("Data")
	return b.String()
}

func Parse(v string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(v)))
	if _, ok := byType[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknown, v)
	}
	return t, nil
}

func Lookup(t Type) (Definition, error) {
	d, ok := byType[t]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknown, string(t))
	}
	return d, nil
}

// All returns the definitions in display order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

var byType = func() map[Type]Definition {
	m := make(map[Type]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Type] = d
	}
	return m
}()
