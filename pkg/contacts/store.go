// Package contacts keeps the in-memory contact collection in step with the
// contacts service.
//
// Every mutation is confirm-then-apply: the collection changes only after
// the service accepted the request, and is left as it was on any failure.
// Operations never return Go errors. They return an apierror.Outcome, and a
// failure is also surfaced: validation errors through the Notifier, every
// other kind through LastError.
package contacts

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agendacontatos/agenda.go/internal/codec"
	"github.com/agendacontatos/agenda.go/pkg/apierror"
	"github.com/agendacontatos/agenda.go/pkg/connection"
	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/agendacontatos/agenda.go/pkg/loading"
	"github.com/agendacontatos/agenda.go/pkg/models"
	"github.com/agendacontatos/agenda.go/pkg/notify"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

const Path = "/contacts"

const (
	MessageLoad   = "Loading contacts..."
	MessageCreate = "Saving contact..."
	MessageRemove = "Deleting contact..."
	MessageUpdate = "Updating contact..."
)

type operation struct {
	name    string
	message string
	title   string
}

var (
	opLoad   = operation{"load", MessageLoad, "Could not load contacts"}
	opCreate = operation{"create", MessageCreate, "Could not save contact"}
	opRemove = operation{"remove", MessageRemove, "Could not delete contact"}
	opUpdate = operation{"update", MessageUpdate, "Could not update contact"}
)

type Store struct {
	mu      sync.RWMutex
	items   []models.Contact
	lastErr *apierror.Error

	conn        connection.Connection
	codec       codec.Codec
	loading     *loading.State
	notifier    notify.Notifier
	minDuration time.Duration
	order       *sorter
	locks       *keyedMutex
	logger      zerolog.Logger
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLoadingState shares st with other components. By default the Store has
// its own.
func WithLoadingState(st *loading.State) Option {
	return func(s *Store) { s.loading = st }
}

// WithMinDuration sets the minimum time the loading indicator stays up for
// each operation.
func WithMinDuration(d time.Duration) Option {
	return func(s *Store) { s.minDuration = d }
}

// WithLocale sets the collation used to order contacts by name.
func WithLocale(tag language.Tag) Option {
	return func(s *Store) { s.order = newSorter(tag) }
}

func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithSerializedMutations makes Update and Remove calls for the same ID run
// one at a time, in the order they acquired the lock. Without it, overlapping
// calls on one ID are applied in completion order.
func WithSerializedMutations() Option {
	return func(s *Store) { s.locks = newKeyedMutex() }
}

func New(conn connection.Connection, opts ...Option) *Store {
	s := &Store{
		conn:        conn,
		codec:       codec.NewJSON(),
		notifier:    notify.Discard,
		minDuration: constants.DefaultMinDuration,
		logger:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.loading == nil {
		s.loading = loading.NewState()
	}
	if s.order == nil {
		s.order = newSorter(language.Und)
	}
	return s
}

// Contacts returns a copy of the collection, sorted by name.
func (s *Store) Contacts() []models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Contact, len(s.items))
	copy(out, s.items)
	return out
}

// Find returns the contact with id, if the collection holds it.
func (s *Store) Find(id models.ID) (models.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return models.Contact{}, false
}

// LastError is the most recent non-validation failure, or nil.
func (s *Store) LastError() *apierror.Error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Store) Loading() *loading.State {
	return s.loading
}

// Load replaces the collection with what the service lists.
func (s *Store) Load(ctx context.Context) apierror.Outcome[[]models.Contact] {
	items, err := run(ctx, s, opLoad, func(ctx context.Context) ([]models.Contact, error) {
		res, err := s.conn.Send(ctx, http.MethodGet, Path, nil)
		if err != nil {
			return nil, err
		}
		return s.decodeList(res.Data), nil
	})
	if err != nil {
		return fail[[]models.Contact](ctx, s, opLoad, err)
	}

	s.mu.Lock()
	s.items = items
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Debug().Str("op", opLoad.name).Int("count", len(items)).Msg("contacts loaded")
	return apierror.Succeed(s.Contacts())
}

// Create adds the contact the service returns for in.
func (s *Store) Create(ctx context.Context, in models.ContactInput) apierror.Outcome[models.Contact] {
	if err := validate(in); err != nil {
		return fail[models.Contact](ctx, s, opCreate, err)
	}

	created, err := run(ctx, s, opCreate, func(ctx context.Context) (models.Contact, error) {
		res, err := s.conn.Send(ctx, http.MethodPost, Path, in)
		if err != nil {
			return models.Contact{}, err
		}
		c, err := s.decodeOne(res.Data, models.Contact{})
		if err != nil {
			return models.Contact{}, err
		}
		if c.ID.IsZero() {
			return models.Contact{}, constants.ErrMissingIdentifier
		}
		return c, nil
	})
	if err != nil {
		return fail[models.Contact](ctx, s, opCreate, err)
	}

	s.mu.Lock()
	if i := s.indexOf(created.ID); i >= 0 {
		s.logger.Warn().Str("contact_id", created.ID.String()).Msg("created contact already present, replacing")
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	s.items = s.order.insert(s.items, created)
	s.mu.Unlock()

	s.logger.Debug().Str("op", opCreate.name).Str("contact_id", created.ID.String()).Msg("contact created")
	return apierror.Succeed(created)
}

// Remove deletes id on the service, then drops it from the collection.
func (s *Store) Remove(ctx context.Context, id models.ID) apierror.Outcome[struct{}] {
	defer s.lock(id)()

	_, err := run(ctx, s, opRemove, func(ctx context.Context) (struct{}, error) {
		_, err := s.conn.Send(ctx, http.MethodDelete, itemPath(id), nil)
		return struct{}{}, err
	})
	if err != nil {
		return fail[struct{}](ctx, s, opRemove, err)
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	s.mu.Unlock()

	s.logger.Debug().Str("op", opRemove.name).Str("contact_id", id.String()).Msg("contact removed")
	return apierror.Succeed(struct{}{})
}

// Update sends in for id and replaces the local entry with the service's
// version under the original id. A contact that is not in the collection is
// left out of it.
func (s *Store) Update(ctx context.Context, id models.ID, in models.ContactInput) apierror.Outcome[models.Contact] {
	if err := validate(in); err != nil {
		return fail[models.Contact](ctx, s, opUpdate, err)
	}
	defer s.lock(id)()

	updated, err := run(ctx, s, opUpdate, func(ctx context.Context) (models.Contact, error) {
		res, err := s.conn.Send(ctx, http.MethodPut, itemPath(id), in)
		if err != nil {
			return models.Contact{}, err
		}
		return s.decodeOne(res.Data, in.With(id))
	})
	if err != nil {
		return fail[models.Contact](ctx, s, opUpdate, err)
	}
	updated.ID = id

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.items[i] = updated
		s.order.sort(s.items)
	} else {
		s.logger.Debug().Str("contact_id", id.String()).Msg("updated contact not in collection")
	}
	s.mu.Unlock()

	s.logger.Debug().Str("op", opUpdate.name).Str("contact_id", id.String()).Msg("contact updated")
	return apierror.Succeed(updated)
}

func run[T any](ctx context.Context, s *Store, op operation, fn func(context.Context) (T, error)) (T, error) {
	return loading.WithLoading(ctx, s.loading, loading.Options{
		Message:     op.message,
		MinDuration: s.minDuration,
	}, fn)
}

func fail[T any](ctx context.Context, s *Store, op operation, err error) apierror.Outcome[T] {
	out := apierror.Fail[T](err)
	s.logger.Warn().Err(err).Str("op", op.name).Str("kind", string(out.Err.Kind)).Msg("contacts operation failed")

	if out.Err.Kind == apierror.KindValidation {
		s.notifier.Notify(ctx, notify.Notification{
			Title: op.title,
			Items: out.Err.Lines(),
			Level: notify.LevelError,
		})
		return out
	}

	s.mu.Lock()
	s.lastErr = out.Err
	s.mu.Unlock()
	return out
}

// lock serializes mutations on id when enabled and returns the unlock func.
func (s *Store) lock(id models.ID) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.lock(id)
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id models.ID) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func validate(in models.ContactInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apierror.Invalid("Name is required.")
	}
	return nil
}

func itemPath(id models.ID) string {
	return Path + "/" + url.PathEscape(id.String())
}
