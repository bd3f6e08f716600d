package event

const PasscodeIssuedDestination string = "passcode_issued"

// PasscodeIssuedMessage asks the SMS gateway to deliver a passcode.
type PasscodeIssuedMessage struct {
	RequestID string `json:"request_id"`
	Phone     string `json:"phone"`
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expires_at"` // epoch milliseconds
}
