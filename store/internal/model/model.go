package model

import (
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Book is the storage row. Derived listing fields live on BookView.
type Book struct {
	ID            int64               `json:"id" db:"id"`
	Name          string              `json:"name" db:"name"`
	Price         decimal.Decimal     `json:"price" db:"price"`
	Discount      decimal.Decimal     `json:"discount" db:"discount"`
	AuthorName    *string             `json:"author_name" db:"author_name"`
	OwnerID       *int64              `json:"-" db:"owner_id"`
	OwnerUsername sql.NullString      `json:"-" db:"owner_username"`
	Rating        decimal.NullDecimal `json:"rating" db:"rating"`
}

// BookView is a book as returned by list/retrieve: the row plus
// per-book aggregates and the discounted price.
type BookView struct {
	ID                int64               `json:"id" db:"id"`
	Name              string              `json:"name" db:"name"`
	Price             decimal.Decimal     `json:"price" db:"price"`
	AuthorName        *string             `json:"author_name" db:"author_name"`
	LikesCount        int                 `json:"likes_count" db:"likes_count"`
	BookmarksCount    int                 `json:"bookmarks_count" db:"bookmarks_count"`
	Rating            decimal.NullDecimal `json:"rating" db:"rating"`
	PriceWithDiscount decimal.Decimal     `json:"price_with_discount" db:"price_with_discount"`
	OwnerName         string              `json:"owner_name" db:"owner_name"`
	Readers           []Reader            `json:"readers" db:"-"`
}

type Reader struct {
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
}

type User struct {
	ID        int64  `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
}

type UserBookRelation struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"user_id" db:"user_id"`
	BookID      int64  `json:"book_id" db:"book_id"`
	Like        bool   `json:"like" db:"like"`
	InBookmarks bool   `json:"in_bookmarks" db:"in_bookmarks"`
	Rating      *int16 `json:"rating" db:"rating"`
}

// Price is a pointer so presence is validated without rejecting a
// legitimate zero price.
type CreateBookRequest struct {
	Name       string           `json:"name" validate:"required"`
	Price      *decimal.Decimal `json:"price" validate:"required"`
	Discount   decimal.Decimal  `json:"discount"`
	AuthorName *string          `json:"author_name"`
}

// UpdateBookRequest replaces the whole mutable part of a book. Absent
// author_name clears it, matching full-update semantics.
type UpdateBookRequest struct {
	Name       string           `json:"name" validate:"required"`
	Price      *decimal.Decimal `json:"price" validate:"required"`
	Discount   decimal.Decimal  `json:"discount"`
	AuthorName *string          `json:"author_name"`
}

type PatchBookRequest struct {
	Name       *string          `json:"name"`
	Price      *decimal.Decimal `json:"price"`
	Discount   *decimal.Decimal `json:"discount"`
	AuthorName *string          `json:"author_name"`
}

// OptInt16 is a PATCH field that distinguishes an absent key from an
// explicit null.
type OptInt16 struct {
	Set   bool
	Valid bool
	Value int16
}

func (o *OptInt16) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o OptInt16) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

type UpdateRelationRequest struct {
	Like        *bool    `json:"like"`
	InBookmarks *bool    `json:"in_bookmarks"`
	Rating      OptInt16 `json:"rating"`
}

type BookOrdering string

const (
	OrderByID        BookOrdering = ""
	OrderByPriceAsc  BookOrdering = "price"
	OrderByPriceDesc BookOrdering = "-price"
)

// BooksQuery is the query spec built by the handler from request
// parameters and interpreted by the repository. Nil/empty fields mean
// no constraint.
type BooksQuery struct {
	Price   *decimal.Decimal
	Search  string
	OrderBy BookOrdering
}
