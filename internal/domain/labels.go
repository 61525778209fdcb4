package domain

// Display text lives here, keyed by tag, so the types above stay free of
// presentation concerns.

var statusLabels = map[SubscriptionStatus]string{
	StatusPending:    "Pending",
	StatusProcessing: "Processing",
	StatusActive:     "Active",
	StatusPastDue:    "Past due",
	StatusSuspended:  "Suspended",
	StatusPaused:     "Paused",
	StatusCanceled:   "Canceled",
	StatusCompleted:  "Completed",
	StatusExpired:    "Expired",
	StatusAbandoned:  "Abandoned",
}

var actorLabels = map[Actor]string{
	ActorWebhook:  "the payment gateway",
	ActorAdmin:    "an administrator",
	ActorCustomer: "the customer",
	ActorSystem:   "the system",
}

var requestStatusLabels = map[RequestStatus]string{
	RequestRecordNotFound: "Record not found",
	RequestUnprocessable:  "Unprocessable",
	RequestRecordDeleted:  "Record deleted",
	RequestSucceeded:      "Succeeded",
	RequestFailed:         "Failed",
	RequestError:          "Error",
}

// StatusLabel returns the display label for a status.
func StatusLabel(s SubscriptionStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ActorLabel returns the phrase used in notes to attribute a change.
func ActorLabel(a Actor) string {
	if l, ok := actorLabels[a]; ok {
		return l
	}
	return string(a)
}

// RequestStatusLabel returns the display label for a webhook outcome.
func RequestStatusLabel(s RequestStatus) string {
	if l, ok := requestStatusLabels[s]; ok {
		return l
	}
	return string(s)
}
