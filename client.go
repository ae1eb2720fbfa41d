package agenda

import (
	"context"
	"errors"
	"fmt"
	"io"
	gohttp "net/http"
	"time"

	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/connection/gorillaws"
	"github.com/agendacontatos/agenda.go/pkg/connection/http"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/agendacontatos/agenda.go/pkg/contacts"
	"github.com/agendacontatos/agenda.go/pkg/credentials"
	"github.com/agendacontatos/agenda.go/pkg/loading"
	"github.com/agendacontatos/agenda.go/pkg/notify"
	"github.com/agendacontatos/agenda.go/pkg/session"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Transports accepted by WithTransport.
const (
	TransportHTTP      = "http"
	TransportWebsocket = "ws"
)

// Client owns the one Session, Loading State and contact collection of a
// process. Build it once at start-up and hand it to whatever presents them.
type Client struct {
	conn     connection.Connection
	store    credentials.Store
	session  *session.State
	loading  *loading.State
	contacts *contacts.Store
	logger   zerolog.Logger
}

type options struct {
	transport   string
	timeout     time.Duration
	httpClient  *gohttp.Client
	store       credentials.Store
	logger      zerolog.Logger
	notifier    notify.Notifier
	minDuration time.Duration
	locale      language.Tag
	serialize   bool
}

type Option func(*options)

// WithTransport selects TransportHTTP (the default) or TransportWebsocket.
func WithTransport(name string) Option {
	return func(o *options) { o.transport = name }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHTTPClient replaces the client the HTTP transport sends with, e.g. one
// trusting a development certificate. Its own Timeout applies instead of
// WithTimeout. The websocket transport ignores it.
func WithHTTPClient(hc *gohttp.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithCredentials sets where the session token and identity are kept.
// The default keeps them in memory only.
func WithCredentials(store credentials.Store) Option {
	return func(o *options) { o.store = store }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier sets the surface validation failures are reported on. The
// default logs them.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithMinDuration(d time.Duration) Option {
	return func(o *options) { o.minDuration = d }
}

func WithLocale(tag language.Tag) Option {
	return func(o *options) { o.locale = tag }
}

func WithSerializedMutations(on bool) Option {
	return func(o *options) { o.serialize = on }
}

// New connects to the contacts service at endpoint, e.g.
// "https://localhost:7289/api", and restores any persisted session.
func New(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	o := options{
		transport:   TransportHTTP,
		timeout:     constants.DefaultHTTPTimeout,
		logger:      zerolog.Nop(),
		minDuration: constants.DefaultMinDuration,
		locale:      language.Und,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = credentials.NewMemory()
	}
	if o.notifier == nil {
		o.notifier = notify.LogNotifier{Logger: o.logger}
	}

	conf, err := connection.ParseConfig(endpoint)
	if err != nil {
		return nil, err
	}
	conf.Timeout = o.timeout
	conf.Logger = o.logger
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		store:   o.store,
		loading: loading.NewState(),
		logger:  o.logger,
	}
	conf.Token = c.token
	conf.OnUnauthorized = c.unauthorized

	switch o.transport {
	case "", TransportHTTP:
		hc := http.New(conf)
		if o.httpClient != nil {
			hc.SetHTTPClient(o.httpClient)
		}
		c.conn = hc
	case TransportWebsocket:
		c.conn = gorillaws.New(conf)
	default:
		return nil, fmt.Errorf("%w: %q", constants.ErrUnknownTransport, o.transport)
	}
	if err := c.conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", conf.BaseURL, err)
	}

	c.session = session.New(c.store, c.conn, session.WithLogger(o.logger))
	c.session.CheckSession(ctx)

	storeOpts := []contacts.Option{
		contacts.WithLogger(o.logger),
		contacts.WithNotifier(o.notifier),
		contacts.WithLoadingState(c.loading),
		contacts.WithMinDuration(o.minDuration),
		contacts.WithLocale(o.locale),
		contacts.WithCodec(conf.Codec),
	}
	if o.serialize {
		storeOpts = append(storeOpts, contacts.WithSerializedMutations())
	}
	c.contacts = contacts.New(c.conn, storeOpts...)

	c.logger.Debug().
		Str("endpoint", conf.BaseURL).
		Str("transport", o.transport).
		Bool("authenticated", c.session.IsAuthenticated()).
		Msg("client ready")
	return c, nil
}

func (c *Client) Contacts() *contacts.Store {
	return c.contacts
}

func (c *Client) Loading() *loading.State {
	return c.loading
}

func (c *Client) Session() *session.State {
	return c.session
}

// Close releases the transport and, when it holds one, the credential store's
// connection.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if err := c.conn.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}
	if closer, ok := c.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close credentials: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) token(ctx context.Context) string {
	if c.session == nil {
		return ""
	}
	return c.session.Token(ctx)
}

// unauthorized drops the session when the service rejects the token.
func (c *Client) unauthorized(ctx context.Context) {
	if c.session == nil || !c.session.IsAuthenticated() {
		return
	}
	c.logger.Info().Msg("token rejected, logging out")
	c.session.Logout(ctx)
}
