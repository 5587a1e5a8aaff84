package domain

const (
	MailAccountCreated     = "account_created"
	MailAccountCredentials = "account_credentials"
	MailAccountDeactivated = "account_deactivated"
	MailAccountReactivated = "account_reactivated"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type AccountMailData struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type CredentialsMailData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
