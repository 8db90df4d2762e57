package classes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Meeting is what the conferencing provider hands back for a booking
type Meeting struct {
	MeetingID string
	JoinURL   string
	Passcode  string
}

// MeetingProvider books a conference room for a live class
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, topic string) (*Meeting, error)
}

// StaticMeetingProvider generates local meeting coordinates, used in
// development and tests instead of a real conferencing account.
type StaticMeetingProvider struct {
	BaseURL string
}

func (p StaticMeetingProvider) CreateMeeting(_ context.Context, topic string) (*Meeting, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://meet.example.com"
	}

	id := uuid.NewString()

	return &Meeting{
		MeetingID: id,
		JoinURL:   fmt.Sprintf("%s/j/%s", base, id),
		Passcode:  uuid.NewString()[:6],
	}, nil
}

var _ MeetingProvider = (*StaticMeetingProvider)(nil)
