// Package pgstore is the PostgreSQL implementation of billing.Store.
//
// Rows live in the subscriptions table created by db/migrations. Absent
// nullable values (refs, pending amount, renewal day) are stored as NULL and
// read back as Go zero values. Update is a single conditional statement:
// version = version + 1 WHERE version = expected, so a lost race surfaces as
// billing.ErrStale without row locks.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/rankpay/pkg/pg"
	"github.com/dmitrymomot/rankpay/svc/billing"
)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
}

var _ billing.Store = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db}
}

const columns = `
	id, provider_id, monthly_amount,
	COALESCE(pending_monthly_amount, 0),
	options_points, total_points, payment_status,
	COALESCE(external_subscription_ref, ''),
	COALESCE(external_session_ref, ''),
	COALESCE(renewal_day, 0),
	basic_listing, partner, publish_phone, publish_website, backlink_home, backlink_profile,
	version, created_at, updated_at`

func (s *Store) Get(ctx context.Context, providerID uuid.UUID) (*billing.Subscription, error) {
	return s.one(ctx, `SELECT `+columns+` FROM subscriptions WHERE provider_id = $1`, providerID)
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	return s.one(ctx, `SELECT `+columns+` FROM subscriptions WHERE id = $1`, id)
}

func (s *Store) FindBySessionRef(ctx context.Context, ref string) (*billing.Subscription, error) {
	if ref == "" {
		return nil, billing.ErrNotFound
	}
	return s.one(ctx, `SELECT `+columns+` FROM subscriptions WHERE external_session_ref = $1 LIMIT 1`, ref)
}

func (s *Store) FindBySubscriptionRef(ctx context.Context, ref string) (*billing.Subscription, error) {
	if ref == "" {
		return nil, billing.ErrNotFound
	}
	return s.one(ctx, `SELECT `+columns+` FROM subscriptions WHERE external_subscription_ref = $1 LIMIT 1`, ref)
}

const createQuery = `
INSERT INTO subscriptions (
	id, provider_id, monthly_amount, pending_monthly_amount,
	options_points, total_points, payment_status, external_session_ref,
	basic_listing, partner, publish_phone, publish_website, backlink_home, backlink_profile,
	version
) VALUES (
	@id, @provider_id, @monthly_amount, NULLIF(@pending_monthly_amount::bigint, 0),
	@options_points, @total_points, @payment_status, NULLIF(@external_session_ref::text, ''),
	@basic_listing, @partner, @publish_phone, @publish_website, @backlink_home, @backlink_profile,
	1
)
RETURNING ` + columns

func (s *Store) Create(ctx context.Context, d billing.Draft) (*billing.Subscription, error) {
	args := pgx.NamedArgs{
		"id":                     uuid.New(),
		"provider_id":            d.ProviderID,
		"monthly_amount":         d.MonthlyAmount,
		"pending_monthly_amount": d.PendingMonthlyAmount,
		"options_points":         d.OptionsPoints,
		"total_points":           d.TotalPoints,
		"payment_status":         string(d.PaymentStatus),
		"external_session_ref":   d.ExternalSessionRef,
	}
	flagArgs(args, d.Flags)

	sub, err := scan(s.db.QueryRow(ctx, createQuery, args))
	if err != nil {
		switch {
		case pg.IsDuplicateKeyError(err):
			return nil, billing.ErrConflict
		case pg.IsForeignKeyViolationError(err):
			return nil, billing.ErrProviderNotFound
		}
		return nil, errors.Join(billing.ErrPersistence, err)
	}
	return sub, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, p billing.Patch) (*billing.Subscription, error) {
	if p.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	sets, args := assignments(p)
	args["id"] = id

	var b strings.Builder
	b.WriteString("UPDATE subscriptions SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(", version = version + 1, updated_at = now() WHERE id = @id")
	if p.ExpectedVersion != 0 {
		b.WriteString(" AND version = @expected_version")
		args["expected_version"] = p.ExpectedVersion
	}
	b.WriteString(" RETURNING ")
	b.WriteString(columns)

	sub, err := scan(s.db.QueryRow(ctx, b.String(), args))
	if err == nil {
		return sub, nil
	}
	if !pg.IsNotFoundError(err) {
		return nil, errors.Join(billing.ErrPersistence, err)
	}
	if p.ExpectedVersion == 0 {
		return nil, billing.ErrNotFound
	}

	// No row matched: either the id is unknown or the version moved on.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, errors.Join(billing.ErrPersistence, err)
	}
	if exists {
		return nil, billing.ErrStale
	}
	return nil, billing.ErrNotFound
}

func (s *Store) one(ctx context.Context, query string, args ...any) (*billing.Subscription, error) {
	sub, err := scan(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrNotFound
		}
		return nil, errors.Join(billing.ErrPersistence, err)
	}
	return sub, nil
}

func scan(row pgx.Row) (*billing.Subscription, error) {
	var (
		sub    billing.Subscription
		status string
		day    int16
	)
	err := row.Scan(
		&sub.ID, &sub.ProviderID, &sub.MonthlyAmount,
		&sub.PendingMonthlyAmount,
		&sub.OptionsPoints, &sub.TotalPoints, &status,
		&sub.ExternalSubscriptionRef,
		&sub.ExternalSessionRef,
		&day,
		&sub.Flags.BasicListing, &sub.Flags.Partner, &sub.Flags.PublishPhone,
		&sub.Flags.PublishWebsite, &sub.Flags.BacklinkHome, &sub.Flags.BacklinkProfile,
		&sub.Version, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.PaymentStatus = billing.Status(status)
	sub.RenewalDay = int(day)
	return &sub, nil
}

// assignments renders the SET clauses for the non-nil patch fields.
func assignments(p billing.Patch) ([]string, pgx.NamedArgs) {
	var sets []string
	args := pgx.NamedArgs{}

	set := func(column, expr string, value any) {
		sets = append(sets, fmt.Sprintf("%s = %s", column, expr))
		args[column] = value
	}

	if p.MonthlyAmount != nil {
		set("monthly_amount", "@monthly_amount", *p.MonthlyAmount)
	}
	if p.PendingMonthlyAmount != nil {
		set("pending_monthly_amount", "NULLIF(@pending_monthly_amount::bigint, 0)", *p.PendingMonthlyAmount)
	}
	if p.OptionsPoints != nil {
		set("options_points", "@options_points", *p.OptionsPoints)
	}
	if p.TotalPoints != nil {
		set("total_points", "@total_points", *p.TotalPoints)
	}
	if p.PaymentStatus != nil {
		set("payment_status", "@payment_status", string(*p.PaymentStatus))
	}
	if p.ExternalSubscriptionRef != nil {
		set("external_subscription_ref", "NULLIF(@external_subscription_ref::text, '')", *p.ExternalSubscriptionRef)
	}
	if p.ExternalSessionRef != nil {
		set("external_session_ref", "NULLIF(@external_session_ref::text, '')", *p.ExternalSessionRef)
	}
	if p.RenewalDay != nil {
		set("renewal_day", "NULLIF(@renewal_day::smallint, 0)", int16(*p.RenewalDay))
	}
	if p.Flags != nil {
		for _, column := range flagColumns {
			sets = append(sets, fmt.Sprintf("%s = @%s", column, column))
		}
		flagArgs(args, *p.Flags)
	}
	return sets, args
}

var flagColumns = []string{
	"basic_listing", "partner", "publish_phone", "publish_website", "backlink_home", "backlink_profile",
}

func flagArgs(args pgx.NamedArgs, f billing.Flags) {
	args["basic_listing"] = f.BasicListing
	args["partner"] = f.Partner
	args["publish_phone"] = f.PublishPhone
	args["publish_website"] = f.PublishWebsite
	args["backlink_home"] = f.BacklinkHome
	args["backlink_profile"] = f.BacklinkProfile
}
