package handler

import (
	"context"

	"github.com/bookhub/store-service/pkg/auth"
	"github.com/bookhub/store-service/store/internal/model"
	"github.com/bookhub/store-service/store/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var _ StoreService = (*service.Service)(nil)

type StoreService interface {
	ListBooks(ctx context.Context, query model.BooksQuery) ([]model.BookView, error)
	GetBook(ctx context.Context, id int64) (model.BookView, error)
	CreateBook(ctx context.Context, req model.CreateBookRequest, user auth.UserInfo) (model.BookView, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest, user auth.UserInfo) (model.BookView, error)
	PatchBook(ctx context.Context, id int64, req model.PatchBookRequest, user auth.UserInfo) (model.BookView, error)
	DeleteBook(ctx context.Context, id int64, user auth.UserInfo) error
	UpsertRelation(ctx context.Context, bookID int64, req model.UpdateRelationRequest, user auth.UserInfo) (model.UserBookRelation, error)
}
