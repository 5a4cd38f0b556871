package email

// Message is one outgoing email. Empty From and ReplyTo fall back to the
// configured defaults.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// SupportNotification is the data rendered into the support email
type SupportNotification struct {
	TicketID  string
	UserID    string
	UserEmail string
	Category  string
	Subject   string
	Message   string
}
