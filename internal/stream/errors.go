package stream

import "errors"

// Notice is a blocking message for the user. It is returned before any
// collaborator is called and leaves the status message untouched.
type Notice struct {
	Message string
}

func (n *Notice) Error() string {
	return n.Message
}

var (
	ErrNotConnected       = &Notice{Message: "Connect wallet first!"}
	ErrSubmissionInFlight = &Notice{Message: "A submission is already in progress."}
)

// ErrInvalidRequest wraps input validation failures.
var ErrInvalidRequest = errors.New("invalid stream request")

// IsNotice reports whether err carries a blocking notice.
func IsNotice(err error) bool {
	var n *Notice
	return errors.As(err, &n)
}
