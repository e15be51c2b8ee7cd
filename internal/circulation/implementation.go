// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"libris/internal/apperr"
	"libris/internal/catalog"
	"libris/internal/journal"
)

const defaultRankingSize = 5

// service implements the Service interface.
type service struct {
	store       Store
	notifier    Notifier
	logger      *zap.Logger
	tracer      trace.Tracer
	transitions metric.Int64Counter
	now         func() time.Time
}

type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithNotifier sends user messages after loans are issued or returned.
func WithNotifier(n Notifier) Option {
	return func(s *service) { s.notifier = n }
}

// NewService creates a new circulation service instance.
func NewService(store Store, logger *zap.Logger, opts ...Option) Service {
	logger = logger.Named("circulation")

	transitions, err := otel.Meter("libris/circulation").Int64Counter("circulation.transitions",
		metric.WithDescription("Reservation and loan state transitions"))
	if err != nil {
		logger.Warn("transition counter unavailable", zap.Error(err))
		transitions = noop.Int64Counter{}
	}

	s := &service{
		store:       store,
		logger:      logger,
		tracer:      otel.Tracer("libris/circulation"),
		transitions: transitions,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReservation places a pending hold. Checks run in order: the book
// exists, a copy is free, the user is not under penalty, and the user has no
// other pending hold on the book.
func (s *service) CreateReservation(ctx context.Context, userID, bookID uuid.UUID) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.create_reservation",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	now := s.now()
	var created *Reservation

	err := s.store.WithTx(ctx, func(tx Store) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			return ErrBookUnavailable
		}

		until, err := tx.PenaltyUntil(ctx, userID)
		if err != nil {
			return err
		}
		if IsUnderPenalty(until, now) {
			return ErrUnderPenalty
		}

		pending, err := tx.HasPendingReservation(ctx, userID, bookID)
		if err != nil {
			return fmt.Errorf("check pending reservation: %w", err)
		}
		if pending {
			return ErrDuplicatePending
		}

		r := NewReservation(userID, bookID, now)
		if err := tx.InsertReservation(ctx, r); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		created = r
		return s.record(ctx, tx, r.ID, journal.AggregateReservation, EventReservationCreated, ReservationCreatedEvent{
			ReservationID: r.ID,
			UserID:        userID,
			BookID:        bookID,
			ExpiryDate:    r.ExpiryDate,
		})
	})
	if err != nil {
		s.fail(span, err)
		return nil, err
	}

	s.count(ctx, "reserve", 1)
	s.logger.Info("reservation created",
		zap.String("reservationId", created.ID.String()),
		zap.String("userId", userID.String()),
		zap.String("bookId", bookID.String()))
	return created, nil
}

// CancelReservation cancels a pending hold on behalf of its owner or an admin.
func (s *service) CancelReservation(ctx context.Context, reservationID uuid.UUID, actor Actor) error {
	ctx, span := s.tracer.Start(ctx, "circulation.cancel_reservation",
		trace.WithAttributes(
			attribute.String("reservation.id", reservationID.String()),
			attribute.Bool("actor.admin", actor.Admin),
		),
	)
	defer span.End()

	err := s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetReservation(ctx, reservationID, true)
		if err != nil {
			return err
		}
		if !r.CanBeCancelledBy(actor) {
			return ErrNotOwner
		}
		if err := r.Cancel(); err != nil {
			return err
		}
		if err := tx.UpdateReservationStatus(ctx, r.ID, r.Status); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}

		return s.record(ctx, tx, r.ID, journal.AggregateReservation, EventReservationCancelled, ReservationStatusEvent{
			ReservationID: r.ID,
			Status:        r.Status,
			ActorID:       actor.UserID,
		})
	})
	if err != nil {
		s.fail(span, err)
		return err
	}

	s.count(ctx, "cancel", 1)
	s.logger.Info("reservation cancelled",
		zap.String("reservationId", reservationID.String()),
		zap.String("actorId", actor.UserID.String()))
	return nil
}

// ConvertReservationToLoan confirms a pending hold, issues a loan due after
// LoanPeriod and takes one copy out of stock, all in one transaction.
func (s *service) ConvertReservationToLoan(ctx context.Context, reservationID uuid.UUID) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.convert_to_loan",
		trace.WithAttributes(attribute.String("reservation.id", reservationID.String())),
	)
	defer span.End()

	now := s.now()
	var (
		loan  *Loan
		title string
	)

	err := s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetReservation(ctx, reservationID, true)
		if err != nil {
			return err
		}
		if err := r.Confirm(); err != nil {
			return err
		}

		book, err := tx.GetBook(ctx, r.BookID)
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			return catalog.ErrOutOfStock
		}
		// fails if a concurrent conversion took the last copy
		if err := tx.IssueCopy(ctx, r.BookID); err != nil {
			return err
		}

		l := NewLoan(r.UserID, r.BookID, now)
		if err := tx.InsertLoan(ctx, l); err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		if err := tx.UpdateReservationStatus(ctx, r.ID, r.Status); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}

		if err := s.record(ctx, tx, r.ID, journal.AggregateReservation, EventReservationConfirmed, ReservationStatusEvent{
			ReservationID: r.ID,
			Status:        r.Status,
		}); err != nil {
			return err
		}
		if err := s.record(ctx, tx, l.ID, journal.AggregateLoan, EventLoanIssued, LoanIssuedEvent{
			LoanID:        l.ID,
			ReservationID: r.ID,
			UserID:        l.UserID,
			BookID:        l.BookID,
			DueDate:       l.DueDate,
		}); err != nil {
			return err
		}

		loan, title = l, book.Title
		return nil
	})
	if err != nil {
		s.fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))
	s.count(ctx, "issue", 1)
	s.logger.Info("reservation converted to loan",
		zap.String("reservationId", reservationID.String()),
		zap.String("loanId", loan.ID.String()),
		zap.Time("dueDate", loan.DueDate))
	s.notify(ctx, loan.UserID, "success",
		fmt.Sprintf("Your reservation for %q is now a loan. Please return it by %s.", title, loan.DueDate.Format(time.DateOnly)))
	return loan, nil
}

// ReturnLoan closes a loan and puts its copy back into stock.
func (s *service) ReturnLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return_loan",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	now := s.now()
	var (
		loan  *Loan
		title string
	)

	err := s.store.WithTx(ctx, func(tx Store) error {
		l, err := tx.GetLoan(ctx, loanID, true)
		if err != nil {
			return err
		}
		late := l.DueDate.Before(now)
		if err := l.Return(now); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return fmt.Errorf("update loan: %w", err)
		}

		book, err := tx.GetBook(ctx, l.BookID)
		if err != nil {
			return err
		}
		if err := tx.ReturnCopy(ctx, l.BookID); err != nil {
			return err
		}

		if err := s.record(ctx, tx, l.ID, journal.AggregateLoan, EventLoanReturned, LoanReturnedEvent{
			LoanID:     l.ID,
			UserID:     l.UserID,
			BookID:     l.BookID,
			ReturnDate: now,
			Late:       late,
		}); err != nil {
			return err
		}

		loan, title = l, book.Title
		return nil
	})
	if err != nil {
		s.fail(span, err)
		return nil, err
	}

	s.count(ctx, "return", 1)
	s.logger.Info("loan returned", zap.String("loanId", loanID.String()))
	s.notify(ctx, loan.UserID, "info", fmt.Sprintf("Thank you for returning %q.", title))
	return loan, nil
}

func (s *service) ListReservations(ctx context.Context, scope Scope) ([]*ReservationView, error) {
	reservations, err := s.store.ListReservations(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// ListLoans returns loans newest first. Active loans past their due date are
// promoted to overdue and the promotion is persisted before returning.
func (s *service) ListLoans(ctx context.Context, scope Scope) ([]*LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.list_loans",
		trace.WithAttributes(attribute.Bool("scope.all", scope.All())),
	)
	defer span.End()

	loans, err := s.store.ListLoans(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	now := s.now()
	var promoted []uuid.UUID
	for _, l := range loans {
		if l.RefreshOverdue(now) {
			promoted = append(promoted, l.ID)
		}
	}

	if len(promoted) > 0 {
		if _, err := s.store.MarkOverdue(ctx, promoted, now); err != nil {
			s.fail(span, err)
			return nil, fmt.Errorf("mark overdue: %w", err)
		}
		span.SetAttributes(attribute.Int("loans.promoted", len(promoted)))
		s.count(ctx, "overdue", int64(len(promoted)))
		s.logger.Info("loans promoted to overdue", zap.Int("count", len(promoted)))
	}

	return loans, nil
}

func (s *service) HasPendingReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	return s.store.HasPendingReservation(ctx, userID, bookID)
}

// SweepOverdue applies the overdue promotion to every loan at once.
func (s *service) SweepOverdue(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.sweep_overdue")
	defer span.End()

	n, err := s.store.PromoteOverdue(ctx, s.now())
	if err != nil {
		s.fail(span, err)
		return 0, fmt.Errorf("promote overdue loans: %w", err)
	}

	span.SetAttributes(attribute.Int64("loans.promoted", n))
	if n > 0 {
		s.count(ctx, "overdue", n)
	}
	return n, nil
}

// TopBooks ranks books by how many loans they have had.
func (s *service) TopBooks(ctx context.Context, limit int) ([]*BookRanking, error) {
	if limit <= 0 {
		limit = defaultRankingSize
	}
	rankings, err := s.store.TopBorrowed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("rank books: %w", err)
	}
	return rankings, nil
}

func (s *service) record(ctx context.Context, tx Store, aggregateID uuid.UUID, aggregateType, eventType string, payload interface{}) error {
	e, err := journal.NewEvent(aggregateID, aggregateType, eventType, payload, s.now())
	if err != nil {
		return apperr.Internal("encode event", err)
	}

	if err := tx.AppendEvent(ctx, e); err != nil {
		if errors.Is(err, journal.ErrConcurrencyConflict) {
			return apperr.Wrap(apperr.KindConflict, "concurrent_update", "concurrent update, try again", err)
		}
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	return nil
}

func (s *service) count(ctx context.Context, transition string, n int64) {
	s.transitions.Add(ctx, n, metric.WithAttributes(attribute.String("transition", transition)))
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, kind, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, message); err != nil {
		s.logger.Warn("notification not delivered", zap.String("userId", userID.String()), zap.Error(err))
	}
}

func (s *service) fail(span trace.Span, err error) {
	span.RecordError(err)
	if apperr.KindOf(err) == apperr.KindInternal {
		span.SetStatus(codes.Error, err.Error())
	}
}
