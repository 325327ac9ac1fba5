package model

// ChannelKind classifies the conversational context a tool call arrives from
type ChannelKind string

const (
	// ChannelDirect is a one-to-one conversation between a user and an agent
	ChannelDirect ChannelKind = "direct"

	// ChannelGroup is a shared conversation with multiple participants
	ChannelGroup ChannelKind = "group"

	// ChannelBroadcast is a one-to-many announcement channel
	ChannelBroadcast ChannelKind = "broadcast"
)

// ChannelContext describes the channel a memory tool was invoked from.
// It is supplied by the surrounding chat application.
type ChannelContext struct {
	Kind         ChannelKind `json:"kind"`
	ID           string      `json:"id"`
	Participants []string    `json:"participants"`
}
