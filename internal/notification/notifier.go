package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwalitptl/followup-api/internal/email"
	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/service/event"
	"github.com/jwalitptl/followup-api/pkg/logger"
)

// Notifier mails the care team when a follow-up completes with an abnormal
// result. Its Hook is registered on the outbox processor.
type Notifier struct {
	sender   email.Sender
	careTeam []string
	logger   *logger.Logger
}

func NewNotifier(sender email.Sender, careTeam []string, l *logger.Logger) *Notifier {
	if l == nil {
		l = logger.Nop()
	}
	return &Notifier{sender: sender, careTeam: careTeam, logger: l}
}

func (n *Notifier) Hook(ctx context.Context, evt *model.OutboxEvent) error {
	if evt.EventType != event.FollowUpCompleted {
		return nil
	}

	var env event.Envelope
	if err := json.Unmarshal(evt.Payload, &env); err != nil {
		return fmt.Errorf("failed to decode event envelope: %w", err)
	}
	var f model.FollowUp
	if err := json.Unmarshal(env.Data, &f); err != nil {
		return fmt.Errorf("failed to decode follow-up: %w", err)
	}
	if f.Result != model.ResultAbnormal {
		return nil
	}

	subject, body := abnormalResultMessage(&f)
	if err := n.sender.Send(ctx, n.careTeam, subject, body); err != nil {
		return fmt.Errorf("failed to notify care team: %w", err)
	}

	n.logger.Info("Care team notified of abnormal result",
		"followup_id", f.ID.String(),
		"patient_id", f.PatientID.String())
	return nil
}

func abnormalResultMessage(f *model.FollowUp) (string, string) {
	subject := fmt.Sprintf("Abnormal %s follow-up result for patient %s", f.Type, f.PatientID)

	var b strings.Builder
	fmt.Fprintf(&b, "Follow-up %s for patient %s was completed with an abnormal result.\n\n", f.ID, f.PatientID)
	if f.CompletedDate != nil {
		fmt.Fprintf(&b, "Completed: %s\n", f.CompletedDate.Format("2006-01-02 15:04"))
	}
	if f.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", f.Notes)
	}
	b.WriteString("\nRecommended tests:\n")
	for _, test := range f.RecommendedTests {
		fmt.Fprintf(&b, "  - %s\n", test)
	}
	return subject, b.String()
}
