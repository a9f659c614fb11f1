package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// ErrVectorUnsupported is returned by drivers without vector storage.
var ErrVectorUnsupported = errors.New("vector search is not supported by this driver")

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)
	DeleteUser(ctx context.Context, delete *DeleteUser) error

	// AccessToken model related methods. Tokens are stored hashed and
	// revoked by deletion.
	CreateAccessToken(ctx context.Context, create *AccessToken) (*AccessToken, error)
	ListAccessTokens(ctx context.Context, find *FindAccessToken) ([]*AccessToken, error)
	DeleteAccessToken(ctx context.Context, delete *DeleteAccessToken) error

	// Question model related methods.
	CreateQuestion(ctx context.Context, create *Question) (*Question, error)
	ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error)
	UpdateQuestion(ctx context.Context, update *UpdateQuestion) error
	DeleteQuestion(ctx context.Context, delete *DeleteQuestion) error

	// SubmitQuestionReview atomically applies the review projection update
	// and appends the review log entry in a single transaction, log last.
	SubmitQuestionReview(ctx context.Context, update *UpdateQuestionReview, log *ReviewLog) (*ReviewLog, error)

	// Tag model related methods.
	UpsertTag(ctx context.Context, upsert *Tag) (*Tag, error)
	ListTags(ctx context.Context, find *FindTag) ([]*Tag, error)
	DeleteTag(ctx context.Context, delete *DeleteTag) error

	// ReviewLog model related methods. The log is append-only.
	CreateReviewLog(ctx context.Context, create *ReviewLog) (*ReviewLog, error)
	ListReviewLogs(ctx context.Context, find *FindReviewLog) ([]*ReviewLog, error)

	// PracticeSession model related methods.
	CreatePracticeSession(ctx context.Context, create *PracticeSession) (*PracticeSession, error)
	ListPracticeSessions(ctx context.Context, find *FindPracticeSession) ([]*PracticeSession, error)
	UpdatePracticeSession(ctx context.Context, update *UpdatePracticeSession) error

	// Attachment model related methods.
	CreateAttachment(ctx context.Context, create *Attachment) (*Attachment, error)
	ListAttachments(ctx context.Context, find *FindAttachment) ([]*Attachment, error)
	UpdateAttachment(ctx context.Context, update *UpdateAttachment) error
	DeleteAttachment(ctx context.Context, delete *DeleteAttachment) error

	// QuestionEmbedding model related methods (postgres only).
	UpsertQuestionEmbedding(ctx context.Context, embedding *QuestionEmbedding) (*QuestionEmbedding, error)
	ListQuestionEmbeddings(ctx context.Context, find *FindQuestionEmbedding) ([]*QuestionEmbedding, error)
	SearchQuestionsByVector(ctx context.Context, userID int32, vector []float32, limit int) ([]*QuestionWithScore, error)
}
