package domain

// Event is anything published on a room's live channel. Exactly
// MessageEvent and VoteEvent implement it.
type Event interface {
	isEvent()
}

// MessageEvent announces a freshly persisted message.
type MessageEvent struct {
	Message OutgoingMessage
}

// VoteEvent announces a vote transition so subscribers can adjust counts
// incrementally without refetching history.
type VoteEvent struct {
	Message MessageID `json:"message"`
	Delta   int       `json:"delta"`
}

func (MessageEvent) isEvent() {}
func (VoteEvent) isEvent()    {}
