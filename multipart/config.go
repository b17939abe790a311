package multipart

import (
	"time"

	"github.com/bitrise-io/go-multipart-uploader/multipart/content"
	"github.com/bitrise-io/go-multipart-uploader/multipart/network"
	"github.com/bitrise-io/go-multipart-uploader/multipart/notify"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

// Config holds configuration for an Uploader.
// Zero values are replaced with the values of DefaultConfig.
type Config struct {
	// MaxFragmentSize is the largest fragment body sent in one request.
	// Default: 56000 bytes
	MaxFragmentSize int

	// Timeout applies to every fragment request, not to the whole upload.
	// Default: 30 seconds
	Timeout time.Duration

	// ConnectionRetries is the number of times a request is repeated when no response arrived.
	// Rejected requests are never repeated.
	// Default: 0
	ConnectionRetries int

	// FragmentRetries is the number of times a fragment is uploaded again after a transport
	// failure. Remote rejections always fail the upload.
	// Default: 0
	FragmentRetries uint

	// RetryWait is the pause between fragment retries.
	// Default: 5 seconds
	RetryWait time.Duration

	// HTTPClient is used for fragment requests.
	// If nil, a client is created with retryhttp.
	HTTPClient *retryablehttp.Client

	// Digester computes the integrity header of each fragment.
	// Default: network.MD5Digester
	Digester network.Digester

	// Dispatcher is the delivery context of callbacks and notifications.
	// Default: a SerialDispatcher owned by the uploader
	Dispatcher Dispatcher

	// Notifier receives the terminal success and failure events.
	// Default: notify.Nop
	Notifier notify.Notifier

	Logger log.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxFragmentSize: content.DefaultMaxFragmentSize,
		Timeout:         network.DefaultTimeout,
		RetryWait:       5 * time.Second,
		Digester:        network.MD5Digester{},
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()

	if c.MaxFragmentSize <= 0 {
		c.MaxFragmentSize = defaults.MaxFragmentSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.ConnectionRetries < 0 {
		c.ConnectionRetries = 0
	}
	if c.RetryWait <= 0 {
		c.RetryWait = defaults.RetryWait
	}
	if c.Digester == nil {
		c.Digester = defaults.Digester
	}
	if c.Dispatcher == nil {
		c.Dispatcher = NewSerialDispatcher()
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop{}
	}
	if c.Logger == nil {
		c.Logger = log.NewLogger()
	}

	return c
}
