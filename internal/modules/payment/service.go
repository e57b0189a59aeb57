package payment

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"staybook/internal/domain"
	"staybook/internal/pkg/acquiring"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/events"
	"staybook/internal/pkg/logger"
	"staybook/internal/repository"
)

const providerName = "payment provider"

var (
	ErrNotPending  = &apperr.Error{Kind: apperr.KindBusinessRule, Code: "PAYMENT_NOT_PENDING"}
	ErrNotExternal = &apperr.Error{Kind: apperr.KindValidation, Code: "PAYMENT_NOT_EXTERNAL"}
)

type Config struct {
	RedirectURL   string
	WebhookURL    string
	WebhookSecret string
}

type Options struct {
	Events events.Publisher
	Logger *slog.Logger
}

type Service struct {
	payments  paymentRepo
	bookings  bookingReader
	confirmer bookingConfirmer
	provider  acquirer
	tx        txRunner
	cfg       Config
	events    events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(payments paymentRepo, bookings bookingReader, confirmer bookingConfirmer, provider acquirer, tx txRunner, cfg Config, opts Options) *Service {
	s := &Service{
		payments:  payments,
		bookings:  bookings,
		confirmer: confirmer,
		provider:  provider,
		tx:        tx,
		cfg:       cfg,
		events:    opts.Events,
		log:       opts.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

type CreateInput struct {
	BookingID int64
	Type      string
	Amount    string
	Currency  string
}

// CreatePayment opens a pending payment. A booking has at most one pending
// or completed payment; failed and cancelled ones may be retried.
func (s *Service) CreatePayment(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Payment, error) {
	typ, ok := domain.ParsePaymentType(in.Type)
	if !ok {
		return nil, apperr.Validation("INVALID_PAYMENT_TYPE", "type must be one of cash, mono, bank_transfer", map[string]any{"field": "type"})
	}
	amount, err := domain.ParseAmount(in.Amount)
	if err != nil {
		return nil, apperr.Validation("INVALID_AMOUNT", "amount must be a positive decimal with at most two places", map[string]any{"field": "amount"})
	}
	currency, err := domain.NormalizeCurrency(in.Currency)
	if err != nil {
		return nil, apperr.Validation("INVALID_CURRENCY", "currency must be a 3-letter ISO code", map[string]any{"field": "currency"})
	}

	if _, err := s.getBooking(ctx, in.BookingID); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, in.BookingID, false); err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Payment{
		BookingID: in.BookingID,
		Type:      typ,
		Status:    domain.PaymentPending,
		Amount:    amount,
		Currency:  currency,
		PaidAt:    now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		active, err := s.payments.FindActiveByBooking(ctx, in.BookingID)
		switch {
		case err == nil:
			return apperr.AlreadyExists("PAYMENT_ALREADY_ACTIVE",
				fmt.Sprintf("booking %d already has a %s payment #%d", in.BookingID, active.Status, active.ID))
		case !repository.IsNotFound(err):
			return fmt.Errorf("find active payment: %w", err)
		}
		if err := s.payments.Create(ctx, p); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperr.AlreadyExists("PAYMENT_ALREADY_ACTIVE", fmt.Sprintf("booking %d already has an active payment", in.BookingID))
			}
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.PaymentCreated, p)
	return p, nil
}

// CreateExternalInvoice asks the acquiring provider for a hosted payment page.
// It returns "" without error when the payment is missing or is not paid
// through the provider.
func (s *Service) CreateExternalInvoice(ctx context.Context, actor domain.Actor, paymentID int64) (string, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("get payment: %w", err)
	}
	if !p.Type.IsExternal() {
		return "", nil
	}
	if err := s.authorize(ctx, actor, p.BookingID, false); err != nil {
		return "", err
	}
	if p.Status != domain.PaymentPending {
		return "", notPending(p)
	}
	if p.InvoiceURL != nil && *p.InvoiceURL != "" {
		return *p.InvoiceURL, nil
	}

	inv, err := s.provider.CreateInvoice(ctx, acquiring.InvoiceRequest{
		Amount:      p.Amount,
		Currency:    p.Currency,
		Reference:   domain.BookingReference(p.BookingID),
		Destination: fmt.Sprintf("Payment #%d for booking #%d", p.ID, p.BookingID),
		RedirectURL: s.cfg.RedirectURL,
		WebhookURL:  s.cfg.WebhookURL,
	})
	if err != nil {
		logger.FromContext(ctx, s.log).Error("create invoice failed", "payment_id", p.ID, "error", err)
		return "", apperr.External(providerName, err)
	}

	if err := s.payments.SetInvoice(ctx, p.ID, inv.ID, inv.PageURL, s.now()); err != nil {
		if repository.IsNotFound(err) {
			return "", apperr.BusinessRule(ErrNotPending.Code, "payment is no longer pending")
		}
		return "", fmt.Errorf("store invoice: %w", err)
	}
	p.InvoiceID, p.InvoiceURL = &inv.ID, &inv.PageURL

	s.publish(ctx, events.PaymentInvoiced, p)
	return inv.PageURL, nil
}

// CheckExternalStatus polls the provider and applies a final status. It
// reports whether the payment is completed. Statuses still in flight leave
// the payment untouched.
func (s *Service) CheckExternalStatus(ctx context.Context, actor domain.Actor, paymentID int64, invoiceID string) (bool, error) {
	p, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return false, err
	}
	if !p.Type.IsExternal() {
		return false, apperr.Validation(ErrNotExternal.Code, "payment is not paid through the payment provider", map[string]any{"type": p.Type})
	}
	if err := s.authorize(ctx, actor, p.BookingID, false); err != nil {
		return false, err
	}

	// Only the invoice this service opened for the payment may settle it.
	if p.InvoiceID == nil || *p.InvoiceID == "" {
		return false, apperr.Validation("INVOICE_REQUIRED", "payment has no invoice yet", map[string]any{"field": "invoiceId"})
	}
	if invoiceID != "" && invoiceID != *p.InvoiceID {
		return false, apperr.Validation("INVOICE_MISMATCH", "invoice does not belong to this payment", map[string]any{"field": "invoiceId"})
	}
	invoiceID = *p.InvoiceID

	st, err := s.provider.InvoiceStatus(ctx, invoiceID)
	if err != nil {
		logger.FromContext(ctx, s.log).Error("invoice status failed", "payment_id", p.ID, "invoice_id", invoiceID, "error", err)
		return false, apperr.External(providerName, err)
	}

	switch st.Status {
	case acquiring.StatusSuccess:
		if err := checkSettlement(p, st.Reference, paidAmount(st.FinalAmount, st.Amount)); err != nil {
			logger.FromContext(ctx, s.log).Warn("invoice settlement rejected", "payment_id", p.ID, "invoice_id", invoiceID, "error", err)
			return false, err
		}
		changed, err := s.complete(ctx, p)
		if err != nil {
			return false, err
		}
		if changed {
			return true, nil
		}
		current, err := s.getPayment(ctx, p.ID)
		if err != nil {
			return false, err
		}
		return current.Status == domain.PaymentCompleted, nil
	case acquiring.StatusFailure:
		if err := s.transition(ctx, p, domain.PaymentFailed, events.PaymentFailed); err != nil && !errors.Is(err, ErrNotPending) {
			return false, err
		}
		return false, nil
	default:
		return false, nil
	}
}

// ConfirmManually completes a cash or bank transfer payment.
func (s *Service) ConfirmManually(ctx context.Context, actor domain.Actor, paymentID int64) (*domain.Payment, error) {
	p, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Type.IsExternal() {
		return nil, apperr.Validation("PAYMENT_NOT_MANUAL", "only cash and bank transfer payments can be confirmed manually", map[string]any{"type": p.Type})
	}
	if err := s.authorize(ctx, actor, p.BookingID, true); err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentPending {
		return nil, notPending(p)
	}

	changed, err := s.complete(ctx, p)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, notPending(p)
	}
	return p, nil
}

// MarkCompletedByExternalReference completes the booking's provider payment.
// A payment that is already completed is reported as success.
func (s *Service) MarkCompletedByExternalReference(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	if _, err := s.getBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	p, err := s.payments.FindActiveByBooking(ctx, bookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("payment", "booking:"+strconv.FormatInt(bookingID, 10))
		}
		return nil, fmt.Errorf("find active payment: %w", err)
	}
	if !p.Type.IsExternal() {
		return nil, apperr.NotFound("payment", "booking:"+strconv.FormatInt(bookingID, 10))
	}
	if p.Status == domain.PaymentCompleted {
		return p, nil
	}
	if _, err := s.complete(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// paidAmount prefers the amount after provider fees and discounts.
func paidAmount(final, amount int64) int64 {
	if final != 0 {
		return final
	}
	return amount
}

// checkSettlement verifies that a provider success belongs to p and covers it.
func checkSettlement(p *domain.Payment, reference string, paid int64) error {
	if reference != domain.BookingReference(p.BookingID) {
		return apperr.Validation("INVOICE_MISMATCH", "invoice does not belong to this payment", map[string]any{
			"expected": domain.BookingReference(p.BookingID),
			"received": reference,
		})
	}
	if paid != p.Amount {
		return apperr.Validation("AMOUNT_MISMATCH", "paid amount does not match the payment", map[string]any{
			"expected": domain.FormatAmount(p.Amount),
			"received": domain.FormatAmount(paid),
		})
	}
	return nil
}

// VerifyWebhookSecret compares secret with the configured one in constant time.
func (s *Service) VerifyWebhookSecret(secret string) error {
	if s.cfg.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.WebhookSecret)) != 1 {
		return apperr.Unauthenticated("invalid webhook secret")
	}
	return nil
}

type WebhookResult struct {
	Applied   bool
	PaymentID int64
}

// HandleWebhook applies a provider notification. The secret is checked before
// anything is read; only the provider's success status has an effect, and
// only on the pending payment that owns the notified invoice.
func (s *Service) HandleWebhook(ctx context.Context, secret string, payload acquiring.StatusPayload) (WebhookResult, error) {
	if err := s.VerifyWebhookSecret(secret); err != nil {
		return WebhookResult{}, err
	}

	st := payload.Normalize()
	log := logger.FromContext(ctx, s.log).With("invoice_id", st.InvoiceID, "status", st.Status.String())
	if st.Status != acquiring.StatusSuccess {
		log.Info("webhook acknowledged without effect")
		return WebhookResult{}, nil
	}

	if _, ok := domain.ParseBookingReference(st.Reference); !ok {
		return WebhookResult{}, apperr.Validation("INVALID_REFERENCE", "reference must look like BOOKING-<id>", map[string]any{"reference": st.Reference})
	}
	if st.InvoiceID == "" {
		return WebhookResult{}, apperr.Validation("INVOICE_REQUIRED", "webhook carries no invoice id", map[string]any{"field": "invoiceId"})
	}

	p, err := s.payments.FindByInvoiceID(ctx, st.InvoiceID)
	if err != nil {
		if repository.IsNotFound(err) {
			return WebhookResult{}, apperr.NotFound("invoice", st.InvoiceID)
		}
		return WebhookResult{}, fmt.Errorf("find payment by invoice: %w", err)
	}
	if err := checkSettlement(p, st.Reference, paidAmount(st.FinalAmount, st.Amount)); err != nil {
		return WebhookResult{}, err
	}

	switch p.Status {
	case domain.PaymentCompleted:
		return WebhookResult{Applied: true, PaymentID: p.ID}, nil
	case domain.PaymentPending:
	default:
		log.Warn("webhook for a closed payment ignored", "payment_id", p.ID, "payment_status", p.Status)
		return WebhookResult{PaymentID: p.ID}, nil
	}

	changed, err := s.complete(ctx, p)
	if err != nil {
		return WebhookResult{}, err
	}
	if !changed {
		current, err := s.getPayment(ctx, p.ID)
		if err != nil {
			return WebhookResult{}, err
		}
		if current.Status != domain.PaymentCompleted {
			log.Warn("webhook lost a race with a status change", "payment_id", p.ID, "payment_status", current.Status)
			return WebhookResult{PaymentID: p.ID}, nil
		}
	}
	log.Info("webhook applied", "payment_id", p.ID, "booking_id", p.BookingID)
	return WebhookResult{Applied: true, PaymentID: p.ID}, nil
}

func (s *Service) Cancel(ctx context.Context, actor domain.Actor, paymentID int64) (*domain.Payment, error) {
	p, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, p.BookingID, false); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, p, domain.PaymentCancelled, events.PaymentCancelled); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, paymentID int64) (*domain.Payment, error) {
	p, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, p.BookingID, false); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListByBooking(ctx context.Context, actor domain.Actor, bookingID int64) ([]domain.Payment, error) {
	if _, err := s.getBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, bookingID, false); err != nil {
		return nil, err
	}
	out, err := s.payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

// complete moves p from pending to completed and confirms its booking in the
// same transaction. It reports false when another caller got there first.
func (s *Service) complete(ctx context.Context, p *domain.Payment) (bool, error) {
	at := s.now()
	var changed, confirmed bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.payments.TransitionStatus(ctx, p.ID, domain.PaymentPending, domain.PaymentCompleted, at)
		if err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}
		if !ok {
			return nil
		}
		changed = true
		confirmed, err = s.confirmer.Confirm(ctx, p.BookingID)
		return err
	})
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	p.Status, p.PaidAt, p.UpdatedAt = domain.PaymentCompleted, at, at
	s.publish(ctx, events.PaymentCompleted, p)
	if confirmed {
		e := events.New(events.BookingConfirmed, strconv.FormatInt(p.BookingID, 10), map[string]any{
			"bookingId": p.BookingID,
			"paymentId": p.ID,
		})
		if err := s.events.Publish(ctx, e); err != nil {
			logger.FromContext(ctx, s.log).Warn("publish booking event failed", "booking_id", p.BookingID, "error", err)
		}
	}
	return true, nil
}

func (s *Service) transition(ctx context.Context, p *domain.Payment, to domain.PaymentStatus, eventType string) error {
	if !p.Status.CanTransitionTo(to) {
		return notPending(p)
	}
	at := s.now()
	ok, err := s.payments.TransitionStatus(ctx, p.ID, domain.PaymentPending, to, at)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if !ok {
		return notPending(p)
	}
	p.Status, p.UpdatedAt = to, at
	s.publish(ctx, eventType, p)
	return nil
}

func (s *Service) getPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("payment", id)
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (s *Service) getBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// authorize admits admins and the booking's landlord, and the tenant unless
// landlordOnly is set.
func (s *Service) authorize(ctx context.Context, actor domain.Actor, bookingID int64, landlordOnly bool) error {
	if actor.IsAdmin() {
		return nil
	}
	parties, err := s.bookings.GetParties(ctx, bookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperr.NotFound("booking", bookingID)
		}
		return fmt.Errorf("get booking parties: %w", err)
	}
	if actor.UserID == parties.LandlordID || (!landlordOnly && actor.UserID == parties.TenantID) {
		return nil
	}
	return apperr.Forbidden("not allowed to manage payments of this booking")
}

func notPending(p *domain.Payment) error {
	return apperr.BusinessRule(ErrNotPending.Code, fmt.Sprintf("payment %d is %s, not pending", p.ID, p.Status))
}

func (s *Service) publish(ctx context.Context, eventType string, p *domain.Payment) {
	e := events.New(eventType, strconv.FormatInt(p.ID, 10), toPaymentResponse(p))
	if err := s.events.Publish(ctx, e); err != nil {
		logger.FromContext(ctx, s.log).Warn("publish payment event failed", "type", eventType, "payment_id", p.ID, "error", err)
	}
}
