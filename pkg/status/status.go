package status

const (
	OK                    = "OK"
	CREATED               = "CREATED"
	BAD_REQUEST           = "BAD_REQUEST"
	UNAUTHORIZED          = "UNAUTHORIZED"
	FORBIDDEN             = "FORBIDDEN"
	NOT_FOUND             = "NOT_FOUND"
	CONFLICT              = "CONFLICT"
	UNPROCESSABLE_ENTITY  = "UNPROCESSABLE_ENTITY"
	INTERNAL_SERVER_ERROR = "INTERNAL_SERVER_ERROR"
	BAD_GATEWAY           = "BAD_GATEWAY"

	// fulfillment
	INSUFFICIENT_QUANTITY       = "INSUFFICIENT_QUANTITY"
	ORDER_POLICY_VIOLATION      = "ORDER_POLICY_VIOLATION"
	MIXED_FREE_PAID_NOT_ALLOWED = "MIXED_FREE_PAID_NOT_ALLOWED"
	NOT_ON_SALE                 = "NOT_ON_SALE"
	AUTHENTICATION_REQUIRED     = "AUTHENTICATION_REQUIRED"
	PAYMENT_INITIATION_FAILED   = "PAYMENT_INITIATION_FAILED"
	ALREADY_REFUNDED            = "ALREADY_REFUNDED"
	NOT_REFUNDABLE              = "NOT_REFUNDABLE"
	REFUND_FAILED               = "REFUND_FAILED"
	INVALID_WEBHOOK_SIGNATURE   = "INVALID_WEBHOOK_SIGNATURE"
	UNKNOWN_PURCHASE            = "UNKNOWN_PURCHASE"
)
