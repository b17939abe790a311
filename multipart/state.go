package multipart

// State is the execution state of an Uploader.
type State int

const (
	StateIdle State = iota
	StateExecuting
	StatePaused
	StateFinished
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further fragment is dispatched in this state.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateCancelled || s == StateFailed
}

// ContentType classifies the uploaded payload.
type ContentType int

const (
	ContentJPEG ContentType = iota
	ContentVideo
)

func (t ContentType) String() string {
	switch t {
	case ContentJPEG:
		return "jpeg"
	case ContentVideo:
		return "video"
	default:
		return "unknown"
	}
}

// MIMEType is sent as the Content-Type of every fragment.
func (t ContentType) MIMEType() string {
	switch t {
	case ContentVideo:
		return "video/mp4"
	default:
		return "image/jpeg"
	}
}

// ParseContentType parses the String form of a ContentType.
func ParseContentType(s string) (ContentType, bool) {
	switch s {
	case "jpeg", "":
		return ContentJPEG, true
	case "video":
		return ContentVideo, true
	default:
		return ContentJPEG, false
	}
}
