// Package notify delivers the approval notification to a confirmed
// volunteer. Dispatch is best-effort: the orchestrator logs failures and
// degrades the receipt, it never rolls back a committed approval.
package notify

import "context"

// Notification carries everything the approved volunteer needs: the issued
// insurance document and the invite link of their area's community group.
type Notification struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	NationalID  string `json:"nationalId"`
	DocumentURL string `json:"documentUrl"`
	GroupLink   string `json:"groupLink,omitempty"`
}

// Dispatcher sends one approval notification.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// Multi fans a notification out to several dispatchers. All of them are
// attempted; the first error is returned.
type Multi []Dispatcher

func (m Multi) Send(ctx context.Context, n Notification) error {
	var firstErr error
	for _, d := range m {
		if err := d.Send(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
