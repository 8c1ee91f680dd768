package protocol

// MessageType is the envelope discriminator carried in the "type" field.
type MessageType string

const (
	MessageTypePublicKey        MessageType = "public_key"
	MessageTypeEncryptedMessage MessageType = "encrypted_message"
)

func (t MessageType) String() string {
	switch t {
	case MessageTypePublicKey:
		return "PUBLIC_KEY"
	case MessageTypeEncryptedMessage:
		return "ENCRYPTED_MESSAGE"
	default:
		return "UNKNOWN"
	}
}

func (t MessageType) Valid() bool {
	return t == MessageTypePublicKey || t == MessageTypeEncryptedMessage
}
