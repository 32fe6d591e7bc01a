package quotation

type Status string

const (
	StatusDraft     Status = "draft"
	StatusApproved  Status = "approved"
	StatusRendered  Status = "rendered"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusSigned    Status = "signed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// transitions is the directed edge set of the lifecycle. The only backward
// edge is the content-edit regression to draft, which is handled separately
// in Service.EditItems and never goes through CanTransition.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusApproved, StatusCancelled},
	StatusApproved: {StatusRendered, StatusCancelled},
	StatusRendered: {StatusSent, StatusCancelled},
	StatusSent:     {StatusViewed, StatusSigned, StatusExpired, StatusCancelled},
	StatusViewed:   {StatusSigned, StatusExpired, StatusCancelled},
}

func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusSigned || s == StatusExpired || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusRendered, StatusSent,
		StatusViewed, StatusSigned, StatusExpired, StatusCancelled:
		return true
	}
	return false
}
