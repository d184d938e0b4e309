package errors

import "fmt"

var (
	ErrAlreadyActive        = fmt.Errorf("a standup session is already active for this channel")
	ErrNotCurrentMember     = fmt.Errorf("member is not the one currently interviewed")
	ErrSessionClosed        = fmt.Errorf("standup session is closed")
	ErrNoSession            = fmt.Errorf("no standup session for this channel")
	ErrAlreadyAnswering     = fmt.Errorf("member already started answering")
	ErrEmptyRoster          = fmt.Errorf("no member to interview")
	ErrMemberNotFound       = fmt.Errorf("member not found")
	ErrChannelNotFound      = fmt.Errorf("channel not found")
	ErrTransportUnavailable = fmt.Errorf("transport unavailable")
	ErrInvalidEvent         = fmt.Errorf("invalid inbound event")
	ErrEmptyQuestions       = fmt.Errorf("no standup question has been found")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidSnapshot      = fmt.Errorf("invalid session snapshot")
)
