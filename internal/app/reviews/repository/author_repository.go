package repository

import (
	"context"
	"errors"
	"time"

	"campusrate/internal/app/reviews/entity"
	"campusrate/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrMappingNotFound - для отзыва нет записи об авторе
	ErrMappingNotFound = errors.New("author mapping not found")
)

type authorMappingRepository struct {
	collection *mongo.Collection
}

// NewAuthorMappingRepository создает репозиторий author mapping.
// Подключение использует выделенный service credential: это хранилище
// недостижимо через обычные пользовательские учётные данные.
func NewAuthorMappingRepository(db *mongo.Database) AuthorMappingRepository {
	collection := db.Collection("author_mappings")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Уникальный индекс по review_id: ноль или одна запись на отзыв
	reviewIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "review_id", Value: 1}},
		Options: options.Index().SetName("review_id_idx").SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, reviewIndex); err != nil {
		logger.Warn().Err(err).Msg("Failed to create index on review_id")
	}

	// Составной индекс для проверки one-review-per-target
	authorTargetIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "author_id", Value: 1},
			{Key: "target_id", Value: 1},
		},
		Options: options.Index().SetName("author_target_idx"),
	}
	if _, err := collection.Indexes().CreateOne(ctx, authorTargetIndex); err != nil {
		logger.Warn().Err(err).Msg("Failed to create index on author_id/target_id")
	}

	return &authorMappingRepository{collection: collection}
}

// Create записывает связь отзыва с автором
func (r *authorMappingRepository) Create(ctx context.Context, mapping *entity.AuthorMapping) error {
	mapping.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, mapping)
	if err != nil {
		return err
	}

	return nil
}

// FindByReviewID - привилегированный lookup автора по отзыву
func (r *authorMappingRepository) FindByReviewID(ctx context.Context, reviewID string) (*entity.AuthorMapping, error) {
	var mapping entity.AuthorMapping
	err := r.collection.FindOne(ctx, bson.M{"review_id": reviewID}).Decode(&mapping)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}

	return &mapping, nil
}

// FindByAuthorAndTarget проверяет, есть ли уже отзыв автора на эту цель
func (r *authorMappingRepository) FindByAuthorAndTarget(ctx context.Context, authorID, targetID string) (*entity.AuthorMapping, error) {
	var mapping entity.AuthorMapping
	err := r.collection.FindOne(ctx, bson.M{"author_id": authorID, "target_id": targetID}).Decode(&mapping)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}

	return &mapping, nil
}
