package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpenalty "akwa/internal/domain/penalty"
)

type PenaltyRepository struct {
	col *mongo.Collection
}

func NewPenaltyRepository(ctx context.Context, db *mongo.Database) (*PenaltyRepository, error) {
	col := db.Collection("penalty_records")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return &PenaltyRepository{col: col}, nil
}

func (r *PenaltyRepository) ByID(ctx context.Context, id domainpenalty.PenaltyID) (*domainpenalty.Record, error) {
	var doc penaltyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpenalty.ErrPenaltyNotFound
		}
		return nil, err
	}
	return doc.toRecord(), nil
}

func (r *PenaltyRepository) Create(ctx context.Context, rec *domainpenalty.Record) error {
	doc := newPenaltyDocument(rec)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainpenalty.ErrConcurrentUpdate
		}
		return err
	}
	rec.Version = 1
	return nil
}

func (r *PenaltyRepository) Save(ctx context.Context, rec *domainpenalty.Record) error {
	doc := newPenaltyDocument(rec)
	doc.Version = rec.Version + 1
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": rec.Version}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpenalty.ErrConcurrentUpdate
	}
	rec.Version = doc.Version
	return nil
}

func (r *PenaltyRepository) List(ctx context.Context, filter domainpenalty.ListFilter) ([]*domainpenalty.Record, int, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.HostID != "" {
		query["host_id"] = filter.HostID
	}
	if filter.BookingID != "" {
		query["booking_id"] = filter.BookingID
	}
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(max(filter.Offset, 0)))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []penaltyDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]*domainpenalty.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRecord())
	}
	return out, int(total), nil
}

type penaltyDocument struct {
	ID            string     `bson:"_id"`
	BookingID     string     `bson:"booking_id"`
	HostID        string     `bson:"host_id"`
	GuestID       string     `bson:"guest_id"`
	Amount        int64      `bson:"amount"`
	Currency      string     `bson:"currency"`
	Type          string     `bson:"type"`
	PaymentMethod string     `bson:"payment_method,omitempty"`
	Status        string     `bson:"status"`
	WaivedReason  string     `bson:"waived_reason,omitempty"`
	AdminNotes    string     `bson:"admin_notes,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
	ResolvedAt    *time.Time `bson:"resolved_at,omitempty"`
	Version       int64      `bson:"version"`
}

func newPenaltyDocument(rec *domainpenalty.Record) penaltyDocument {
	return penaltyDocument{
		ID:            string(rec.ID),
		BookingID:     rec.BookingID,
		HostID:        rec.HostID,
		GuestID:       rec.GuestID,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Type:          string(rec.Type),
		PaymentMethod: string(rec.PaymentMethod),
		Status:        string(rec.Status),
		WaivedReason:  rec.WaivedReason,
		AdminNotes:    rec.AdminNotes,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		ResolvedAt:    rec.ResolvedAt,
		Version:       rec.Version,
	}
}

func (d penaltyDocument) toRecord() *domainpenalty.Record {
	rec := &domainpenalty.Record{
		ID:            domainpenalty.PenaltyID(d.ID),
		BookingID:     d.BookingID,
		HostID:        d.HostID,
		GuestID:       d.GuestID,
		Amount:        d.Amount,
		Currency:      d.Currency,
		Type:          domainpenalty.Type(d.Type),
		PaymentMethod: domainpenalty.PaymentMethod(d.PaymentMethod),
		Status:        domainpenalty.Status(d.Status),
		WaivedReason:  d.WaivedReason,
		AdminNotes:    d.AdminNotes,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
	if d.ResolvedAt != nil {
		at := d.ResolvedAt.UTC()
		rec.ResolvedAt = &at
	}
	return rec
}

var _ domainpenalty.Repository = (*PenaltyRepository)(nil)
