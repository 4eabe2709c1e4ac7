package constants

import "time"

// Server defaults
const (
	DefaultServerPort          = 8082
	DefaultServerReadTimeout   = 15 * time.Second
	DefaultServerWriteTimeout  = 15 * time.Second
	DefaultServerIdleTimeout   = 60 * time.Second
	DefaultGracefulShutdownSec = 30
	ServerErrorChannelSize     = 1
)

// Chat pipeline defaults
const (
	// ReconcileWindow is how far apart an optimistic message's submit time and
	// the server-confirmed CreatedAt may be for the two to be matched.
	ReconcileWindow = 30 * time.Second

	DefaultSendTimeout   = 10 * time.Second
	DefaultRetentionDays = 30
)

// Input limits
const (
	MaxMessageBodyLength = 4000
	MaxIdentifierLength  = 64
)

// Debug store defaults
const (
	DefaultDebugEventCapacity = 1000
	DefaultDebugEventMaxAge   = 60 * time.Minute

	// MessagesMetricWindow is the trailing window used by the derived
	// messages-per-interval metric.
	MessagesMetricWindow = 5 * time.Minute
)

// Retry defaults
const (
	DefaultInitialBackoffMs      = 500
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
)

// WebSocket defaults
const (
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultMaxFrameBytes  = 4096
	DefaultSendBufferSize = 64
)
