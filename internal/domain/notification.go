package domain

// NotificationKind identifies which lifecycle moment a push message is
// about. The kind travels in the message data payload so clients can
// route taps.
type NotificationKind string

const (
	NotifyPlanInvite    NotificationKind = "plan_invite"
	NotifyPlanConfirmed NotificationKind = "plan_confirmed"
	NotifyPlanReminder  NotificationKind = "plan_reminder"
	NotifyCheckIn       NotificationKind = "check_in"
	NotifyPlanCompleted NotificationKind = "plan_completed"
	NotifyPlanCancelled NotificationKind = "plan_cancelled"
)
