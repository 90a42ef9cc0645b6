package queue

const (
	TypeWelcomeEmail    = "email:welcome"
	TypePasswordChanged = "email:password_changed"
	TypeAdhocEmail      = "email:adhoc"
)

type WelcomeEmailPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

type PasswordChangedPayload struct {
	Email string `json:"email"`
}

type AdhocEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
