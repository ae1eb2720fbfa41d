package connection

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agendacontatos/agenda.go/internal/codec"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/rs/zerolog"
)

// Config carries everything a transport needs.
type Config struct {
	URL     url.URL
	BaseURL string
	Codec   codec.Codec
	Timeout time.Duration

	Token          TokenSource
	OnUnauthorized UnauthorizedHandler

	Logger zerolog.Logger
}

// NewConfig creates a Config for the service rooted at u, e.g.
// "https://localhost:7289/api". Paths passed to Send are appended to it.
func NewConfig(u *url.URL) *Config {
	return &Config{
		URL:     *u,
		BaseURL: strings.TrimRight(fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path), "/"),
		Codec:   codec.NewJSON(),
		Timeout: constants.DefaultHTTPTimeout,
		Logger:  zerolog.Nop(),
	}
}

// ParseConfig is NewConfig for a string endpoint.
func ParseConfig(endpoint string) (*Config, error) {
	if endpoint == "" {
		return nil, constants.ErrNoBaseURL
	}
	u, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	return NewConfig(u), nil
}

// Validate checks the fields every transport depends on.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return constants.ErrNoBaseURL
	}
	if c.Codec == nil {
		return constants.ErrNoMarshaler
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	return nil
}
