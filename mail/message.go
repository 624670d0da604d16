package mail

import (
	"fmt"
	"strings"
	"time"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// DefaultQueue is the durable queue codes travel on.
const DefaultQueue = "auth.codes"

// CodeMessage is the queued form of one code delivery.
type CodeMessage struct {
	Email    string              `json:"email"`
	Code     string              `json:"code"`
	Purpose  reeutil.CodePurpose `json:"purpose"`
	IssuedAt time.Time           `json:"issuedAt"`
}

func (m CodeMessage) validate() error {
	if m.Email == "" || m.Code == "" {
		return fmt.Errorf("code message missing email or code")
	}
	switch m.Purpose {
	case reeutil.PurposeLogin, reeutil.PurposeVerification:
		return nil
	default:
		return fmt.Errorf("unknown code purpose %q", m.Purpose)
	}
}

// Render returns the subject and plain-text body for m.
func Render(m CodeMessage, validFor time.Duration) (subject, body string) {
	minutes := int(validFor.Minutes())

	var b strings.Builder
	switch m.Purpose {
	case reeutil.PurposeLogin:
		subject = "ReeUtil login code"
		fmt.Fprintf(&b, "Your login code is %s.\n\n", m.Code)
		fmt.Fprintf(&b, "It expires in %d minutes. If you did not try to sign in, change your password.\n", minutes)
	default:
		subject = "ReeUtil verification code"
		fmt.Fprintf(&b, "Your verification code is %s.\n\n", m.Code)
		fmt.Fprintf(&b, "It expires in %d minutes.\n", minutes)
	}
	return subject, b.String()
}
