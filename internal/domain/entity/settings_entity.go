package entity

// RuntimeSettings are the values an operator can change while the bot runs.
type RuntimeSettings struct {
	VerificationHours int    `json:"verification_hours"`
	ShortenerURL      string `json:"shortener_url,omitempty"`
	ShortenerKey      string `json:"shortener_key,omitempty"`
}
