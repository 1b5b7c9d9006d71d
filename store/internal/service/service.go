package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bookhub/store-service/pkg/auth"
	"github.com/bookhub/store-service/pkg/kafka"
	"github.com/bookhub/store-service/store/internal/errs"
	"github.com/bookhub/store-service/store/internal/model"
	"github.com/bookhub/store-service/store/internal/repository"
)

type Service struct {
	log   *zap.Logger
	repo  repository.Repository
	stats StatsLog
}

func NewService(repo repository.Repository, stats StatsLog, log *zap.Logger) *Service {
	return &Service{
		log:   log,
		repo:  repo,
		stats: stats,
	}
}

func (s *Service) ListBooks(ctx context.Context, query model.BooksQuery) ([]model.BookView, error) {
	books, err := s.repo.ListBooks(ctx, query)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(books))
	for i := range books {
		ids = append(ids, books[i].ID)
	}
	readers, err := s.repo.GetReaders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].Readers = readersOrEmpty(readers[books[i].ID])
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (model.BookView, error) {
	var (
		book    model.BookView
		readers map[int64][]model.Reader
	)
	gg, ctx := errgroup.WithContext(ctx)
	gg.Go(func() error {
		v, err := s.repo.GetBookView(ctx, id)
		if err != nil {
			return err
		}
		book = v
		return nil
	})
	gg.Go(func() error {
		m, err := s.repo.GetReaders(ctx, []int64{id})
		if err != nil {
			return err
		}
		readers = m
		return nil
	})
	if err := gg.Wait(); err != nil {
		return model.BookView{}, err
	}

	book.Readers = readersOrEmpty(readers[id])
	return book, nil
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest, user auth.UserInfo) (model.BookView, error) {
	owner, err := s.repo.GetOrCreateUser(ctx, user.Username)
	if err != nil {
		return model.BookView{}, err
	}

	created, err := s.repo.CreateBook(ctx, model.Book{
		Name:       req.Name,
		Price:      *req.Price,
		Discount:   req.Discount,
		AuthorName: req.AuthorName,
		OwnerID:    &owner.ID,
	})
	if err != nil {
		return model.BookView{}, err
	}
	s.publish(kafka.EventBookCreated, user.Username, created.ID, decimal.NullDecimal{})

	return s.GetBook(ctx, created.ID)
}

func (s *Service) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest, user auth.UserInfo) (model.BookView, error) {
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return model.BookView{}, err
	}
	if err := authorizeMutation(book, user); err != nil {
		return model.BookView{}, err
	}

	book.Name = req.Name
	book.Price = *req.Price
	book.Discount = req.Discount
	book.AuthorName = req.AuthorName
	if err := s.repo.UpdateBook(ctx, book); err != nil {
		return model.BookView{}, err
	}
	return s.GetBook(ctx, id)
}

func (s *Service) PatchBook(ctx context.Context, id int64, req model.PatchBookRequest, user auth.UserInfo) (model.BookView, error) {
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return model.BookView{}, err
	}
	if err := authorizeMutation(book, user); err != nil {
		return model.BookView{}, err
	}

	if req.Name != nil {
		book.Name = *req.Name
	}
	if req.Price != nil {
		book.Price = *req.Price
	}
	if req.Discount != nil {
		book.Discount = *req.Discount
	}
	if req.AuthorName != nil {
		book.AuthorName = req.AuthorName
	}
	if err := s.repo.UpdateBook(ctx, book); err != nil {
		return model.BookView{}, err
	}
	return s.GetBook(ctx, id)
}

func (s *Service) DeleteBook(ctx context.Context, id int64, user auth.UserInfo) error {
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeMutation(book, user); err != nil {
		return err
	}
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.publish(kafka.EventBookDeleted, user.Username, id, decimal.NullDecimal{})
	return nil
}

// UpsertRelation creates the caller's relation to the book if absent,
// applies the patch, and recomputes the book's cached rating when the
// rating value changed.
func (s *Service) UpsertRelation(ctx context.Context, bookID int64, req model.UpdateRelationRequest, user auth.UserInfo) (model.UserBookRelation, error) {
	u, err := s.repo.GetOrCreateUser(ctx, user.Username)
	if err != nil {
		return model.UserBookRelation{}, err
	}

	rel, err := s.repo.GetRelation(ctx, u.ID, bookID)
	if errors.Is(err, errs.ErrNotFound) {
		rel, err = s.repo.CreateRelation(ctx, u.ID, bookID)
	}
	if err != nil {
		return model.UserBookRelation{}, err
	}

	prev := rel.Rating
	if req.Like != nil {
		rel.Like = *req.Like
	}
	if req.InBookmarks != nil {
		rel.InBookmarks = *req.InBookmarks
	}
	if req.Rating.Set {
		if !req.Rating.Valid {
			rel.Rating = nil
		} else {
			if req.Rating.Value < 1 || req.Rating.Value > 5 {
				return model.UserBookRelation{}, errs.ErrRating
			}
			v := req.Rating.Value
			rel.Rating = &v
		}
	}

	if err := s.repo.UpdateRelation(ctx, rel); err != nil {
		return model.UserBookRelation{}, err
	}

	if ratingChanged(prev, rel.Rating) {
		rating, err := s.repo.SetBookRating(ctx, bookID)
		if err != nil {
			return model.UserBookRelation{}, err
		}
		s.publish(kafka.EventRatingRecomputed, user.Username, bookID, rating)
	}
	return rel, nil
}

func authorizeMutation(book model.Book, user auth.UserInfo) error {
	if user.IsStaff() {
		return nil
	}
	if book.OwnerUsername.Valid && book.OwnerUsername.String == user.Username {
		return nil
	}
	return errs.ErrForbidden
}

func ratingChanged(prev, next *int16) bool {
	if prev == nil && next == nil {
		return false
	}
	if prev == nil || next == nil {
		return true
	}
	return *prev != *next
}

func readersOrEmpty(readers []model.Reader) []model.Reader {
	if readers == nil {
		return []model.Reader{}
	}
	return readers
}

func (s *Service) publish(eventType, username string, bookID int64, rating decimal.NullDecimal) {
	if s.stats == nil {
		return
	}
	event := kafka.EventStats{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Username:  username,
		BookID:    bookID,
		Rating:    rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.stats.Log(event); err != nil {
		s.log.Warn("stats log", zap.String("type", eventType), zap.Error(err))
	}
}
