package model

type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

type ConversationState string

const (
	StateIdle                ConversationState = "IDLE"
	StateWaitingForVariation ConversationState = "WAITING_FOR_VARIATION"
	StateWaitingForAddress   ConversationState = "WAITING_FOR_ADDRESS"
)

type ConnectionStatus string

const (
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

type Intent string

const (
	IntentBuy  Intent = "BUY"
	IntentChat Intent = "CHAT"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type ActivityKind string

const (
	ActivityOrderCreated      ActivityKind = "order_created"
	ActivityHandoverRequested ActivityKind = "handover_requested"
	ActivityReminderSent      ActivityKind = "reminder_sent"
	ActivityConnectionOpened  ActivityKind = "connection_opened"
	ActivityConnectionLost    ActivityKind = "connection_lost"
	ActivityLoggedOut         ActivityKind = "logged_out"
)
