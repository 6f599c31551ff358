package services

// EmailSender delivers transactional mail, e.g. password-reset tokens.
type EmailSender interface {
	Send(to string, subject string, body string) error
}
