package notification

import (
	"fmt"
	"strings"

	"github.com/reelhunter/recruiter/pkg/validator"
)

// Sender defaults for the hosted platform.
const (
	DefaultSenderAddress = "noreply@reelhunter.co.za"
	DefaultSenderName    = "ReelHunter Platform"
	DefaultReplyTo       = "support@reelhunter.co.za"
)

// SenderConfig identifies who outgoing email comes from.
type SenderConfig struct {
	Address string
	Name    string
	ReplyTo string
}

// DefaultSenderConfig returns the platform sender identity.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Address: DefaultSenderAddress,
		Name:    DefaultSenderName,
		ReplyTo: DefaultReplyTo,
	}
}

// Header formats the sender as an RFC 5322 From value.
func (c SenderConfig) Header() string {
	if c.Name == "" {
		return c.Address
	}
	return fmt.Sprintf("%s <%s>", c.Name, c.Address)
}

// ValidateConfig checks the sender identity and returns every problem found.
func ValidateConfig(c SenderConfig) []string {
	var problems []string
	if err := validator.Email("from_email", c.Address); err != nil {
		problems = append(problems, "invalid from email address")
	}
	if strings.TrimSpace(c.Name) == "" {
		problems = append(problems, "from name is required")
	}
	if c.ReplyTo != "" {
		if err := validator.Email("reply_to", c.ReplyTo); err != nil {
			problems = append(problems, "invalid reply-to address")
		}
	}
	return problems
}
