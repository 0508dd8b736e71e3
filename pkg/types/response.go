package types

// SuccessEnvelope wraps every successful API response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps every error response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the public error body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// BlockedEnvelope is the non-error purchase gating response: the request was
// well-formed and authorized, the purchase is simply not allowed yet.
type BlockedEnvelope struct {
	Success         bool     `json:"success"`
	Blocked         bool     `json:"blocked"`
	Error           string   `json:"error"`
	RequiredActions []string `json:"requiredActions"`
}
