package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type noteDoc struct {
	ID          string    `bson:"_id"`
	Subject     string    `bson:"subject"`
	Title       string    `bson:"title"`
	UploadedBy  string    `bson:"uploadedBy"`
	ViewURL     string    `bson:"viewUrl"`
	DownloadURL string    `bson:"downloadUrl"`
	UploadedAt  time.Time `bson:"uploadedAt"`
}

// MongoRepository implements Repository over the notes and question-paper
// collections.
type MongoRepository struct {
	notes *mongo.Collection
	pyqs  *mongo.Collection
}

// NewMongoRepository wraps the named collections.
func NewMongoRepository(db *mongo.Database, notesCollection, pyqCollection string) *MongoRepository {
	return &MongoRepository{
		notes: db.Collection(notesCollection),
		pyqs:  db.Collection(pyqCollection),
	}
}

func (r *MongoRepository) Insert(ctx context.Context, n *Note) error {
	doc := noteDoc{
		ID:          n.ID.String(),
		Subject:     n.Subject,
		Title:       n.Title,
		UploadedBy:  n.UploadedBy,
		ViewURL:     n.ViewURL,
		DownloadURL: n.DownloadURL,
		UploadedAt:  n.UploadedAt,
	}
	if _, err := r.notes.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// List returns documents of the given kind newest first, filtered by
// subject when given.
func (r *MongoRepository) List(ctx context.Context, kind Kind, subject string) ([]Note, error) {
	coll := r.notes
	if kind == KindPYQ {
		coll = r.pyqs
	}

	filter := bson.M{}
	if subject != "" {
		filter["subject"] = subject
	}

	cursor, err := coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []noteDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}

	notes := make([]Note, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("malformed note id %q: %w", doc.ID, err)
		}
		notes = append(notes, Note{
			ID:          id,
			Subject:     doc.Subject,
			Title:       doc.Title,
			UploadedBy:  doc.UploadedBy,
			ViewURL:     doc.ViewURL,
			DownloadURL: doc.DownloadURL,
			UploadedAt:  doc.UploadedAt,
		})
	}
	return notes, nil
}
