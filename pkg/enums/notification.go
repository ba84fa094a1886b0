package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderUpdate   NotificationType = "order_update"
	NotificationTypeBidOutbid     NotificationType = "bid_outbid"
	NotificationTypeBidAccepted   NotificationType = "bid_accepted"
	NotificationTypeWalletUpdate  NotificationType = "wallet_update"
	NotificationTypeHandoffIssued NotificationType = "handoff_issued"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypeBidOutbid,
	NotificationTypeBidAccepted,
	NotificationTypeWalletUpdate,
	NotificationTypeHandoffIssued,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
