// internal/domain/mail/client.go
package mail

// Message is one outbound email with an optional file attachment.
type Message struct {
	ToEmail        string
	ToName         string
	FromEmail      string
	FromName       string
	Subject        string
	PlainBody      string
	HTMLBody       string
	AttachmentPath string // empty = no attachment
	AttachmentName string
}

// Client is the mail-transport collaborator. A nil error means the transport
// accepted the message; the dispatcher does not retry within a run.
type Client interface {
	Send(msg Message) error
}
