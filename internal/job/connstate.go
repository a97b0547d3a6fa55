package job

// ConnStatus describes the push-channel lifecycle for one job.
type ConnStatus string

const (
	ConnConnecting ConnStatus = "connecting"
	ConnOpen       ConnStatus = "open"
	ConnClosed     ConnStatus = "closed"
)

// ConnectionState is the per-job view of push-channel health. Created on
// subscribe, discarded on unsubscribe.
type ConnectionState struct {
	Status            ConnStatus
	ReconnectAttempts int
	LastError         string
}

// IsOpen reports whether the push transport is currently authoritative.
func (c ConnectionState) IsOpen() bool {
	return c.Status == ConnOpen
}
