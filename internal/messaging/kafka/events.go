package kafka

// TopicOrderEvents - топик событий жизненного цикла заказа.
const TopicOrderEvents = "pos.order.events"

// Заголовки сообщения, по которым потребители фильтруют события без разбора тела.
const (
	HeaderEventType = "x-event-type"
	HeaderEventID   = "x-event-id"
	HeaderStore     = "x-store"
)
