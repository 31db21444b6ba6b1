package handler

const (
	errInternalServer  = "Internal server error"
	errJobNotFound     = "Job not found"
	errTokenNotFound   = "No valid token cached"
	errInvalidWebhook  = "Webhook verification failed"
	errUnknownPayload  = "Unknown webhook type"
	errUpstreamFailure = "ERP request failed"
)
