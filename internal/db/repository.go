package db

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"

	"prospect-tracker-api/internal/model"
	"prospect-tracker-api/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Insert(ctx context.Context, p *model.Prospect) error
	FindByID(ctx context.Context, id string) (*model.Prospect, error)
	Update(ctx context.Context, id string, p *model.Prospect) (*model.Prospect, error)
	Delete(ctx context.Context, id string) error
	// Find returns matches newest first. limit <= 0 means no limit.
	Find(ctx context.Context, filter model.ProspectFilter, skip, limit int64) ([]model.Prospect, error)
	Count(ctx context.Context, filter model.ProspectFilter) (int64, error)
	// Pivot counts records per (seriesField, axisField) pair, grouped by series.
	// Records with an empty value in either field are skipped.
	Pivot(ctx context.Context, seriesField, axisField string) ([]model.PivotGroup, error)
	EnsureIndexes(ctx context.Context) error
}

type repository struct {
	coll *mongo.Collection
}

func NewRepository(coll *mongo.Collection) Repository {
	return &repository{coll: coll}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", errors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *repository) Insert(ctx context.Context, p *model.Prospect) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert prospect: %w", err)
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*model.Prospect, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var p model.Prospect
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find prospect %s: %w", id, err)
	}
	return &p, nil
}

func (r *repository) Update(ctx context.Context, id string, p *model.Prospect) (*model.Prospect, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Prospect
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": updateDocument(p)}, opts).Decode(&updated)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update prospect %s: %w", id, err)
	}
	return &updated, nil
}

// updateDocument lists every mutable field. _id and createdAt are never set.
func updateDocument(p *model.Prospect) bson.M {
	return bson.M{
		"month":         p.Month,
		"quarter":       p.Quarter,
		"prospect":      p.Prospect,
		"geo":           p.Geo,
		"lob":           p.LOB,
		"call1":         p.Call1,
		"call2":         p.Call2,
		"call3":         p.Call3,
		"coreOfferings": p.CoreOfferings,
		"primaryNeed":   p.PrimaryNeed,
		"secondaryNeed": p.SecondaryNeed,
		"category":      p.Category,
		"categoryOther": p.CategoryOther,
		"trace":         p.Trace,
		"salesSpoc":     p.SalesSPOC,
		"oppId":         p.OppID,
		"oppDetails":    p.OppDetails,
		"deck":          p.Deck,
		"deckPublicId":  p.DeckPublicID,
		"rag":           p.RAG,
		"remark":        p.Remark,
		"updatedAt":     p.UpdatedAt,
	}
}

func (r *repository) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete prospect %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// filterDocument builds the query for f. Search is a literal,
// case-insensitive substring match on the prospect name.
func filterDocument(f model.ProspectFilter) bson.M {
	query := bson.M{}

	if f.Search != "" {
		query["prospect"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	if f.Geo != "" {
		query["geo"] = f.Geo
	}
	if f.Month != "" {
		query["month"] = f.Month
	}
	if f.Quarter != "" {
		query["quarter"] = f.Quarter
	}
	if f.RAG != "" {
		query["rag"] = f.RAG
	}

	return query
}

func (r *repository) Find(ctx context.Context, filter model.ProspectFilter, skip, limit int64) ([]model.Prospect, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find prospects: %w", err)
	}
	defer cursor.Close(ctx)

	prospects := []model.Prospect{}
	if err := cursor.All(ctx, &prospects); err != nil {
		return nil, fmt.Errorf("decode prospects: %w", err)
	}
	return prospects, nil
}

func (r *repository) Count(ctx context.Context, filter model.ProspectFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("count prospects: %w", err)
	}
	return n, nil
}

func pivotPipeline(seriesField, axisField string) mongo.Pipeline {
	nonEmpty := bson.D{{Key: "$type", Value: "string"}, {Key: "$ne", Value: ""}}

	return mongo.Pipeline{
		{{Key: "$project", Value: bson.D{
			{Key: seriesField, Value: 1},
			{Key: axisField, Value: 1},
		}}},
		{{Key: "$match", Value: bson.D{
			{Key: seriesField, Value: nonEmpty},
			{Key: axisField, Value: nonEmpty},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "series", Value: "$" + seriesField},
				{Key: "label", Value: "$" + axisField},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id.series"},
			{Key: "counts", Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "label", Value: "$_id.label"},
				{Key: "count", Value: "$count"},
			}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "series", Value: "$_id"},
			{Key: "counts", Value: 1},
		}}},
	}
}

func (r *repository) Pivot(ctx context.Context, seriesField, axisField string) ([]model.PivotGroup, error) {
	cursor, err := r.coll.Aggregate(ctx, pivotPipeline(seriesField, axisField))
	if err != nil {
		return nil, fmt.Errorf("aggregate %s/%s: %w", seriesField, axisField, err)
	}
	defer cursor.Close(ctx)

	var groups []model.PivotGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode %s/%s pivot: %w", seriesField, axisField, err)
	}
	return groups, nil
}

func (r *repository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "oppId", Value: 1}}},
		{Keys: bson.D{{Key: "geo", Value: 1}}},
		{Keys: bson.D{{Key: "month", Value: 1}}},
		{Keys: bson.D{{Key: "quarter", Value: 1}}},
		{Keys: bson.D{{Key: "rag", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}
