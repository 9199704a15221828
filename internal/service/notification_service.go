package service

import (
	"context"
	"fmt"
	"log"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/notify"
)

// DeliverySummary reports the result of one notification fan-out.
// Failures are informational only; they never roll back the state
// transition that fired the batch.
type DeliverySummary struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// NotificationService composes kind-specific push messages and fans them
// out through the external gateway.
type NotificationService interface {
	// Dispatch sends one message per recipient. Recipients without a
	// device token count as failed without a delivery attempt.
	Dispatch(ctx context.Context, kind domain.NotificationKind, plan *domain.Plan, recipients []domain.User) DeliverySummary
}

type notificationService struct {
	gateway notify.Gateway
}

// NewNotificationService creates a new instance of notificationService.
func NewNotificationService(gateway notify.Gateway) NotificationService {
	return &notificationService{gateway: gateway}
}

func (s *notificationService) Dispatch(ctx context.Context, kind domain.NotificationKind, plan *domain.Plan, recipients []domain.User) DeliverySummary {
	title, body := composeMessage(kind, plan)
	data := map[string]string{
		"kind":   string(kind),
		"planId": plan.ID.Hex(),
	}

	var summary DeliverySummary
	for _, recipient := range recipients {
		if recipient.PushToken == "" {
			summary.Failed++
			continue
		}
		err := s.gateway.Send(ctx, notify.Message{
			Token: recipient.PushToken,
			Title: title,
			Body:  body,
			Data:  data,
		})
		if err != nil {
			log.Printf("WARN: push delivery to %s failed: %v", recipient.ID.Hex(), err)
			summary.Failed++
			continue
		}
		summary.Sent++
	}

	if summary.Failed > 0 {
		log.Printf("notification %s for plan %s: %d sent, %d failed", kind, plan.ID.Hex(), summary.Sent, summary.Failed)
	}
	return summary
}

func composeMessage(kind domain.NotificationKind, plan *domain.Plan) (title, body string) {
	when := plan.PlannedDate.Format("Mon Jan 2, 15:04")
	switch kind {
	case domain.NotifyPlanInvite:
		return fmt.Sprintf("New plan: %s", plan.EventTitle),
			fmt.Sprintf("Your group is planning %s on %s. Are you in?", plan.EventTitle, when)
	case domain.NotifyPlanConfirmed:
		return fmt.Sprintf("%s is on!", plan.EventTitle),
			fmt.Sprintf("Enough people are in. See you on %s.", when)
	case domain.NotifyPlanReminder:
		return fmt.Sprintf("Reminder: %s", plan.EventTitle),
			fmt.Sprintf("Happening %s. Don't forget to check in when you arrive.", when)
	case domain.NotifyCheckIn:
		return fmt.Sprintf("Check-in at %s", plan.EventTitle),
			"Someone just checked in to your plan."
	case domain.NotifyPlanCompleted:
		return fmt.Sprintf("%s wrapped up", plan.EventTitle),
			"The plan is complete. Commitment scores have been updated."
	case domain.NotifyPlanCancelled:
		return fmt.Sprintf("%s was cancelled", plan.EventTitle),
			fmt.Sprintf("The plan for %s is off.", when)
	default:
		return plan.EventTitle, "Your plan has an update."
	}
}
