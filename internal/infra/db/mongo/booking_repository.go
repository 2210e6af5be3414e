package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "akwa/internal/domain/booking"
	"akwa/internal/domain/cancellation"
	domainrange "akwa/internal/domain/shared/daterange"
	"akwa/internal/domain/shared/money"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save upserts b guarded by its version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

// CommitCancellation writes the outcome only while the stored status still
// equals expected.
func (r *BookingRepository) CommitCancellation(ctx context.Context, b *domainbooking.Booking, expected domainbooking.Status) error {
	if b.Cancellation == nil {
		return domainbooking.ErrInvalidState
	}
	out := b.Cancellation
	filter := bson.M{"_id": string(b.ID), "status": string(expected)}
	update := bson.M{
		"$set": bson.M{
			"status": string(b.Status),
			"cancellation": outcomeDocument{
				CancelledBy: string(out.CancelledBy),
				Reason:      out.Reason,
				Penalty:     out.Penalty,
				Refund:      out.Refund,
				CancelledAt: out.CancelledAt.UnixMilli(),
			},
			"updated_at": b.UpdatedAt.UnixMilli(),
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": string(b.ID)})
		if err != nil {
			return err
		}
		if n == 0 {
			return domainbooking.ErrBookingNotFound
		}
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

type bookingDocument struct {
	ID           string           `bson:"_id"`
	Kind         string           `bson:"kind"`
	ListingID    string           `bson:"listing_id"`
	GuestID      string           `bson:"guest_id"`
	HostID       string           `bson:"host_id"`
	Guest        contactDocument  `bson:"guest"`
	Host         contactDocument  `bson:"host"`
	Range        rangeDocument    `bson:"range"`
	Total        money.Money      `bson:"total"`
	UnitRate     money.Money      `bson:"unit_rate"`
	Status       string           `bson:"status"`
	Policy       string           `bson:"policy"`
	Cancellation *outcomeDocument `bson:"cancellation,omitempty"`
	CreatedAt    int64            `bson:"created_at"`
	UpdatedAt    int64            `bson:"updated_at"`
	Version      int64            `bson:"version"`
}

type contactDocument struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

type outcomeDocument struct {
	CancelledBy string `bson:"cancelled_by"`
	Reason      string `bson:"reason"`
	Penalty     int64  `bson:"penalty"`
	Refund      int64  `bson:"refund"`
	CancelledAt int64  `bson:"cancelled_at"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out,omitempty"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:        string(b.ID),
		Kind:      string(b.Kind),
		ListingID: b.ListingID,
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Guest:     contactDocument{Name: b.Guest.Name, Email: b.Guest.Email},
		Host:      contactDocument{Name: b.Host.Name, Email: b.Host.Email},
		Range:     rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli()},
		Total:     b.Total,
		UnitRate:  b.UnitRate,
		Status:    string(b.Status),
		Policy:    string(b.Policy),
		CreatedAt: b.CreatedAt.UnixMilli(),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
		Version:   b.Version,
	}
	if !b.Range.OpenEnded() {
		doc.Range.CheckOut = b.Range.CheckOut.UnixMilli()
	}
	if out := b.Cancellation; out != nil {
		doc.Cancellation = &outcomeDocument{
			CancelledBy: string(out.CancelledBy),
			Reason:      out.Reason,
			Penalty:     out.Penalty,
			Refund:      out.Refund,
			CancelledAt: out.CancelledAt.UnixMilli(),
		}
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	dr := domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn)}
	if d.Range.CheckOut != 0 {
		dr.CheckOut = timestampToTime(d.Range.CheckOut)
	}
	agg := &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		Kind:      domainbooking.Kind(d.Kind),
		ListingID: d.ListingID,
		GuestID:   d.GuestID,
		HostID:    d.HostID,
		Guest:     domainbooking.Contact{Name: d.Guest.Name, Email: d.Guest.Email},
		Host:      domainbooking.Contact{Name: d.Host.Name, Email: d.Host.Email},
		Range:     dr,
		Total:     d.Total,
		UnitRate:  d.UnitRate,
		Status:    domainbooking.Status(d.Status),
		Policy:    cancellation.ParsePolicy(d.Policy),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
	if out := d.Cancellation; out != nil {
		agg.Cancellation = &domainbooking.Outcome{
			CancelledBy: domainbooking.Actor(out.CancelledBy),
			Reason:      out.Reason,
			Penalty:     out.Penalty,
			Refund:      out.Refund,
			CancelledAt: timestampToTime(out.CancelledAt),
		}
	}
	return agg
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
