package playback

// Observer receives a session's state after every transition.
type Observer interface {
	OnStateChange(state State)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(State)

func (f ObserverFunc) OnStateChange(state State) { f(state) }

// ChannelObserver adapts Observer to a channel for Bubble Tea.
type ChannelObserver struct {
	ch chan<- State
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan<- State) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnStateChange sends the state to the channel (non-blocking if full).
func (o *ChannelObserver) OnStateChange(state State) {
	select {
	case o.ch <- state:
	default:
	}
}
