package constants

import "time"

const (
	// DefaultBaseURL is the contacts service endpoint used when none is configured.
	DefaultBaseURL = "https://localhost:7289/api"

	// DefaultHTTPTimeout bounds a single transport call.
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultWSTimeout bounds the wait for a websocket response frame.
	DefaultWSTimeout = 10 * time.Second

	// DefaultMinDuration is how long the loading indicator stays visible at least.
	DefaultMinDuration = time.Second
	// DefaultLoadingMessage is shown when an operation does not name itself.
	DefaultLoadingMessage = "Loading..."

	// CloseMessageCode is the websocket close code sent on a normal shutdown.
	CloseMessageCode = 1000
)

// Keys used in the credential store.
const (
	AuthTokenKey = "auth_token"
	IdentityKey  = "identity"
)

var (
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
	WebsocketScheme       = "ws"
	WebsocketSecureScheme = "wss"
)
