// Package store persists principal records in MongoDB, one collection per
// role. Uniqueness of email and external ID inside a collection is enforced
// by unique indexes; the cross-role guarantee lives in auth.Registry.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/patshala/backend/auth"
	mongoclient "github.com/patshala/backend/pkg/mongo"
)

// Collection names.
const (
	CollectionStudents = "students"
	CollectionTeachers = "teachers"
	CollectionNotes    = "notes"
	CollectionPYQs     = "pyqs"
)

const (
	emailIndex      = "email_unique"
	externalIDIndex = "externalId_unique"
)

// principalDoc is the stored shape of auth.Principal. Both role collections
// share it; the external ID lives under one field name since the
// collections are already role-scoped.
type principalDoc struct {
	ID               string     `bson:"_id"`
	Role             string     `bson:"role"`
	Name             string     `bson:"name"`
	Email            string     `bson:"email"`
	Password         []byte     `bson:"password"`
	ExternalID       string     `bson:"externalId"`
	Subjects         []string   `bson:"subjects,omitempty"`
	RegistrationDate time.Time  `bson:"registrationDate"`
	IsActive         bool       `bson:"isActive"`
	OTP              *string    `bson:"otp,omitempty"`
	OTPExpiresAt     *time.Time `bson:"otpExpiresAt,omitempty"`
	StepUpToken      *string    `bson:"stepUpToken,omitempty"`
	ResetTokenDigest *string    `bson:"resetTokenDigest,omitempty"`
	ResetExpiresAt   *time.Time `bson:"resetExpiresAt,omitempty"`
}

// Principals implements auth.PrincipalStore over one mongo collection.
type Principals struct {
	coll *mongo.Collection
}

// NewPrincipals wraps the named collection.
func NewPrincipals(db *mongo.Database, collection string) *Principals {
	return &Principals{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique indexes this store relies on. Safe to
// call on every startup; mongo treats identical definitions as a no-op.
func (s *Principals) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "externalId", Value: 1}},
			Options: options.Index().SetName(externalIDIndex).SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", s.coll.Name(), err)
	}
	return nil
}

func (s *Principals) Create(ctx context.Context, p *auth.Principal) error {
	if _, err := s.coll.InsertOne(ctx, toDoc(p)); err != nil {
		if mongoclient.IsDuplicateKeyError(err) {
			return classifyDuplicate(err)
		}
		return fmt.Errorf("failed to insert principal: %w", err)
	}
	return nil
}

func (s *Principals) GetByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Principals) GetByExternalID(ctx context.Context, externalID string) (*auth.Principal, error) {
	return s.findOne(ctx, bson.M{"externalId": externalID})
}

func (s *Principals) GetByResetDigest(ctx context.Context, digest string) (*auth.Principal, error) {
	return s.findOne(ctx, bson.M{"resetTokenDigest": digest})
}

// Update replaces the whole document, keeping the OTP and reset field pairs
// in a single write.
func (s *Principals) Update(ctx context.Context, p *auth.Principal) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": p.ID.String()}, toDoc(p))
	if err != nil {
		if mongoclient.IsDuplicateKeyError(err) {
			return classifyDuplicate(err)
		}
		return fmt.Errorf("failed to replace principal: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Principals) findOne(ctx context.Context, filter bson.M) (*auth.Principal, error) {
	var doc principalDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}
	return fromDoc(&doc)
}

func toDoc(p *auth.Principal) *principalDoc {
	return &principalDoc{
		ID:               p.ID.String(),
		Role:             string(p.Role),
		Name:             p.Name,
		Email:            p.Email,
		Password:         p.PasswordHash,
		ExternalID:       p.ExternalID,
		Subjects:         p.Subjects,
		RegistrationDate: p.RegistrationDate,
		IsActive:         p.IsActive,
		OTP:              p.OTP,
		OTPExpiresAt:     p.OTPExpiresAt,
		StepUpToken:      p.StepUpToken,
		ResetTokenDigest: p.ResetTokenDigest,
		ResetExpiresAt:   p.ResetExpiresAt,
	}
}

func fromDoc(doc *principalDoc) (*auth.Principal, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("malformed principal id %q: %w", doc.ID, err)
	}
	return &auth.Principal{
		ID:               id,
		Role:             auth.Role(doc.Role),
		Name:             doc.Name,
		Email:            doc.Email,
		PasswordHash:     doc.Password,
		ExternalID:       doc.ExternalID,
		Subjects:         doc.Subjects,
		RegistrationDate: doc.RegistrationDate,
		IsActive:         doc.IsActive,
		OTP:              doc.OTP,
		OTPExpiresAt:     doc.OTPExpiresAt,
		StepUpToken:      doc.StepUpToken,
		ResetTokenDigest: doc.ResetTokenDigest,
		ResetExpiresAt:   doc.ResetExpiresAt,
	}, nil
}

// classifyDuplicate maps a duplicate-key error onto the violated identity
// attribute using the index name embedded in the driver message.
func classifyDuplicate(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, externalIDIndex):
		return auth.ErrDuplicateExternalID
	case strings.Contains(msg, emailIndex):
		return auth.ErrDuplicateEmail
	default:
		return fmt.Errorf("duplicate key: %w", err)
	}
}
