package common

type Observer interface {
	Update(event NotificationEvent) error
	Name() string
}

type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	Notify(event NotificationEvent)
	NotifyAsync(event NotificationEvent)
}

// Notifier is the narrow side of Subject used by the realtime layer.
type Notifier interface {
	NotifyAsync(event NotificationEvent)
}
