package guard

import "wmguard/internal/model"

// NotifyTamperThreshold is the tampering ratio (percent) above which a
// verification by a third party raises a forgery alert instead of a
// provenance confirmation.
const NotifyTamperThreshold = 5.0

// NotificationKind is what the calling layer should raise. Rendering
// and delivery live outside this core.
type NotificationKind string

const (
	NotifyNone         NotificationKind = "none"
	NotifyForgeryAlert NotificationKind = "forgery-alert"
	NotifyConfirmation NotificationKind = "provenance-confirmation"
)

// Notification is the decision handed to the delivery layer.
type Notification struct {
	Kind         NotificationKind
	OwnerContact string
	Token        string
	Filename     string
	Ratio        float64
}

// NotificationPolicy decides which notification a verification outcome
// warrants. Implementations consume the decision; they never send from
// inside this core.
type NotificationPolicy interface {
	Decide(outcome *Outcome) Notification
}

// DefaultNotificationPolicy implements the standing policy: third-party
// verifications notify the asset owner — an alert above the tamper
// threshold, a confirmation otherwise. Owners verifying their own
// assets, and verifications that recovered nothing, stay silent.
type DefaultNotificationPolicy struct{}

var _ NotificationPolicy = DefaultNotificationPolicy{}

func (DefaultNotificationPolicy) Decide(outcome *Outcome) Notification {
	n := Notification{
		Kind:         NotifyNone,
		OwnerContact: outcome.OwnerContact,
		Token:        outcome.Token,
		Filename:     outcome.Filename,
		Ratio:        outcome.Ratio,
	}
	if outcome.Relation != model.RelationOther || !outcome.Marked {
		return n
	}
	if outcome.Ratio > NotifyTamperThreshold {
		n.Kind = NotifyForgeryAlert
	} else {
		n.Kind = NotifyConfirmation
	}
	return n
}
