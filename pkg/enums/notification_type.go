package enums

// NotificationType groups customer notifications in the feed.
type NotificationType string

const (
	NotificationTypeOrder   NotificationType = "order"
	NotificationTypePayment NotificationType = "payment"
	NotificationTypeReturn  NotificationType = "return"
	NotificationTypeWallet  NotificationType = "wallet"
)

var notificationTypes = enumOf("notification type",
	NotificationTypeOrder,
	NotificationTypePayment,
	NotificationTypeReturn,
	NotificationTypeWallet,
)

func (n NotificationType) String() string {
	return string(n)
}

func (n NotificationType) IsValid() bool {
	return notificationTypes.has(n)
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value)
}
