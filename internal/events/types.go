package events

// Event type constants for kelindar/event.
const (
	TypeNotification uint32 = iota + 1
	TypeSessionOpened
	TypeSessionClosed
	TypeFiltersPulled
	TypeFiltersPushed
	TypeSlotChanged
	TypeFilterListChanged
	TypeRegistryReloaded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Notification levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// NotificationEvent is a transient user-facing message.
type NotificationEvent struct {
	Level      string `json:"level" example:"warning" enum:"info,success,warning,error" doc:"Severity"`
	Code       string `json:"code,omitempty" example:"FILTERS_TRUNCATED" doc:"Machine readable code"`
	Message    string `json:"message" doc:"Message to show the user"`
	DurationMS int    `json:"duration_ms,omitempty" example:"10000" doc:"How long the message should stay visible"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for NotificationEvent.
func (e NotificationEvent) Type() uint32 { return TypeNotification }

// SessionOpenedEvent is published after a device connects.
type SessionOpenedEvent struct {
	SessionID    string `json:"session_id" doc:"Session identifier"`
	Transport    string `json:"transport" example:"hid" doc:"Transport kind"`
	Manufacturer string `json:"manufacturer" example:"FiiO" doc:"Device manufacturer"`
	Model        string `json:"model" example:"FIIO KA17" doc:"Device model"`
	Handler      string `json:"handler" example:"fiio" doc:"Protocol driver"`
	Experimental bool   `json:"experimental" doc:"Device support is experimental"`
	Timestamp    string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionOpenedEvent.
func (e SessionOpenedEvent) Type() uint32 { return TypeSessionOpened }

// Reasons a session ends.
const (
	CloseUser         = "user"
	CloseDisconnected = "disconnected"
	CloseError        = "error"
	CloseSave         = "save"
)

// SessionClosedEvent is published when a session ends for any reason.
type SessionClosedEvent struct {
	SessionID string `json:"session_id" doc:"Session identifier"`
	Reason    string `json:"reason" example:"user" enum:"user,disconnected,error,save" doc:"Why the session ended"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionClosedEvent.
func (e SessionClosedEvent) Type() uint32 { return TypeSessionClosed }

// FiltersPulledEvent is published after a pull.
type FiltersPulledEvent struct {
	SessionID string `json:"session_id"`
	Slot      int    `json:"slot" example:"7"`
	Filters   int    `json:"filters" example:"10" doc:"Number of filters read"`
	Complete  bool   `json:"complete" doc:"False when the device stopped answering part way"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for FiltersPulledEvent.
func (e FiltersPulledEvent) Type() uint32 { return TypeFiltersPulled }

// FiltersPushedEvent is published after a push.
type FiltersPushedEvent struct {
	SessionID          string  `json:"session_id"`
	Slot               int     `json:"slot" example:"7"`
	Filters            int     `json:"filters" example:"10" doc:"Number of filters written"`
	Preamp             float64 `json:"preamp" example:"-3.5"`
	DisconnectRequired bool    `json:"disconnect_required" doc:"Device drops off the bus after saving"`
	Timestamp          string  `json:"timestamp"`
}

// Type returns the event type identifier for FiltersPushedEvent.
func (e FiltersPushedEvent) Type() uint32 { return TypeFiltersPushed }

// SlotChangedEvent is published after the active slot changes.
type SlotChangedEvent struct {
	SessionID string `json:"session_id"`
	Slot      int    `json:"slot" example:"-1" doc:"Active slot, -1 when PEQ is off"`
	Enabled   bool   `json:"enabled"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for SlotChangedEvent.
func (e SlotChangedEvent) Type() uint32 { return TypeSlotChanged }

// FilterListChangedEvent is published when the edited filter list changes.
type FilterListChangedEvent struct {
	Source    string  `json:"source" example:"device" enum:"device,user" doc:"Who replaced the list"`
	Filters   int     `json:"filters" example:"5"`
	Preamp    float64 `json:"preamp" example:"-2"`
	Timestamp string  `json:"timestamp"`
}

// Type returns the event type identifier for FilterListChangedEvent.
func (e FilterListChangedEvent) Type() uint32 { return TypeFilterListChanged }

// RegistryReloadedEvent is published when the override file is reloaded.
type RegistryReloadedEvent struct {
	Vendors   int    `json:"vendors" example:"5"`
	Error     string `json:"error,omitempty" doc:"Why the reload failed, the previous catalogue stays active"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for RegistryReloadedEvent.
func (e RegistryReloadedEvent) Type() uint32 { return TypeRegistryReloaded }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"hid" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
