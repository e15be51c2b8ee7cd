// internal/memstore/memstore.go
package memstore

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"libris/internal/admin"
	"libris/internal/apperr"
	"libris/internal/catalog"
	"libris/internal/circulation"
	"libris/internal/engagement"
	"libris/internal/journal"
	"libris/internal/membership"
)

var errUniqueViolation = apperr.Conflict("unique_violation", "record already exists")

type pairKey struct {
	userID uuid.UUID
	bookID uuid.UUID
}

type state struct {
	books         map[uuid.UUID]catalog.Book
	users         map[uuid.UUID]membership.User
	reservations  map[uuid.UUID]circulation.Reservation
	loans         map[uuid.UUID]circulation.Loan
	favorites     map[pairKey]engagement.Favorite
	reviews       map[uuid.UUID]engagement.Review
	notifications map[uuid.UUID]engagement.Notification
	events        []journal.Event
}

func newState() *state {
	return &state{
		books:         make(map[uuid.UUID]catalog.Book),
		users:         make(map[uuid.UUID]membership.User),
		reservations:  make(map[uuid.UUID]circulation.Reservation),
		loans:         make(map[uuid.UUID]circulation.Loan),
		favorites:     make(map[pairKey]engagement.Favorite),
		reviews:       make(map[uuid.UUID]engagement.Review),
		notifications: make(map[uuid.UUID]engagement.Notification),
	}
}

// clone copies every table. Records are stored by value and replaced on
// write, so copying the maps is enough.
func (s *state) clone() *state {
	return &state{
		books:         maps.Clone(s.books),
		users:         maps.Clone(s.users),
		reservations:  maps.Clone(s.reservations),
		loans:         maps.Clone(s.loans),
		favorites:     maps.Clone(s.favorites),
		reviews:       maps.Clone(s.reviews),
		notifications: maps.Clone(s.notifications),
		events:        slices.Clone(s.events),
	}
}

// DB is an in-memory database that serves every store interface of the
// service. Transactions hold the lock for their whole duration and restore
// a snapshot when they fail, so they are serializable.
type DB struct {
	mu    sync.Mutex
	state *state
}

func New() *DB {
	return &DB{state: newState()}
}

func (db *DB) Catalog() catalog.Store {
	return &catalogStore{session{db: db}}
}

func (db *DB) Circulation() circulation.Store {
	return &circulationStore{session{db: db}}
}

func (db *DB) Membership() membership.Store {
	return &membershipStore{session{db: db}}
}

func (db *DB) Engagement() engagement.Store {
	return &engagementStore{session{db: db}}
}

func (db *DB) Admin() admin.Store {
	return &adminStore{session{db: db}}
}

func (db *DB) Journal() journal.Reader {
	return &journalStore{session{db: db}}
}

// SetPenalty sets or clears a user's penalty.
func (db *DB) SetPenalty(userID uuid.UUID, until *time.Time) error {
	return session{db: db}.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return membership.ErrUserNotFound
		}
		u.PenaltyUntil = until
		st.users[userID] = u
		return nil
	})
}

type session struct {
	db   *DB
	inTx bool
}

func (s session) do(fn func(st *state) error) error {
	if !s.inTx {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	return fn(s.db.state)
}

func (s session) withTx(fn func(tx session) error) error {
	if s.inTx {
		return fn(s)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	snapshot := s.db.state.clone()
	if err := fn(session{db: s.db, inTx: true}); err != nil {
		s.db.state = snapshot
		return err
	}
	return nil
}

func newestFirst[T any](items []T, at func(T) time.Time, id func(T) uuid.UUID) {
	slices.SortFunc(items, func(a, b T) int {
		if c := at(b).Compare(at(a)); c != 0 {
			return c
		}
		x, y := id(a), id(b)
		return slices.Compare(x[:], y[:])
	})
}
