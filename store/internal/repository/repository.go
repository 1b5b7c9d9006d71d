package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bookhub/store-service/store/internal/errs"
	"github.com/bookhub/store-service/store/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	ListBooks(ctx context.Context, query model.BooksQuery) ([]model.BookView, error)
	GetBookView(ctx context.Context, id int64) (model.BookView, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, book model.Book) error
	DeleteBook(ctx context.Context, id int64) error
	GetReaders(ctx context.Context, bookIDs []int64) (map[int64][]model.Reader, error)

	GetOrCreateUser(ctx context.Context, username string) (model.User, error)

	GetRelation(ctx context.Context, userID, bookID int64) (model.UserBookRelation, error)
	CreateRelation(ctx context.Context, userID, bookID int64) (model.UserBookRelation, error)
	UpdateRelation(ctx context.Context, rel model.UserBookRelation) error
	SetBookRating(ctx context.Context, bookID int64) (decimal.NullDecimal, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName     = `books`
	usersTableName     = `users`
	relationsTableName = `user_book_relations`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func buildListBooksQuery(query model.BooksQuery) sq.SelectBuilder {
	q := qb.Select(
		"b.id",
		"b.name",
		"b.price",
		"b.author_name",
		`count(*) filter (where r."like") as likes_count`,
		"count(*) filter (where r.in_bookmarks) as bookmarks_count",
		"b.rating",
		"b.price - b.discount as price_with_discount",
		"coalesce(u.username, '') as owner_name",
	).
		From(booksTableName + " b").
		LeftJoin(relationsTableName + " r on r.book_id = b.id").
		LeftJoin(usersTableName + " u on u.id = b.owner_id").
		GroupBy("b.id", "u.username")

	if query.Price != nil {
		q = q.Where(sq.Eq{"b.price": *query.Price})
	}
	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		q = q.Where(sq.Or{
			sq.ILike{"b.name": pattern},
			sq.ILike{"b.author_name": pattern},
		})
	}

	switch query.OrderBy {
	case model.OrderByPriceAsc:
		q = q.OrderBy("b.price", "b.id")
	case model.OrderByPriceDesc:
		q = q.OrderBy("b.price desc", "b.id")
	default:
		q = q.OrderBy("b.id")
	}

	return q
}

func (r *repository) ListBooks(ctx context.Context, query model.BooksQuery) ([]model.BookView, error) {
	sqlStr, args, err := buildListBooksQuery(query).ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBooks", zap.String("query", sqlStr), zap.Any("args", args))

	books := make([]model.BookView, 0)
	if err := r.db.SelectContext(ctx, &books, sqlStr, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) GetBookView(ctx context.Context, id int64) (model.BookView, error) {
	sqlStr, args, err := buildListBooksQuery(model.BooksQuery{}).
		Where(sq.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return model.BookView{}, err
	}

	var book model.BookView
	if err := r.db.GetContext(ctx, &book, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BookView{}, errs.ErrNotFound
		}
		return model.BookView{}, err
	}
	return book, nil
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	sqlStr, args, err := qb.Select(
		"b.id", "b.name", "b.price", "b.discount", "b.author_name", "b.owner_id", "b.rating",
		"u.username as owner_username").
		From(booksTableName + " b").
		LeftJoin(usersTableName + " u on u.id = b.owner_id").
		Where(sq.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	sqlStr, args, err := qb.Insert(booksTableName).
		Columns("name", "price", "discount", "author_name", "owner_id").
		Values(book.Name, book.Price, book.Discount, book.AuthorName, book.OwnerID).
		Suffix("returning id, name, price, discount, author_name, owner_id, rating").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var created model.Book
	if err := r.db.GetContext(ctx, &created, sqlStr, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", sqlStr), zap.Any("args", args))
		return model.Book{}, err
	}
	return created, nil
}

func (r *repository) UpdateBook(ctx context.Context, book model.Book) error {
	sqlStr, args, err := qb.Update(booksTableName).
		Set("name", book.Name).
		Set("price", book.Price).
		Set("discount", book.Discount).
		Set("author_name", book.AuthorName).
		Where(sq.Eq{"id": book.ID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteBook(ctx context.Context, id int64) error {
	sqlStr, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

type readerRow struct {
	BookID    int64  `db:"book_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

func (r *repository) GetReaders(ctx context.Context, bookIDs []int64) (map[int64][]model.Reader, error) {
	readers := make(map[int64][]model.Reader, len(bookIDs))
	if len(bookIDs) == 0 {
		return readers, nil
	}

	sqlStr, args, err := qb.Select("r.book_id", "u.first_name", "u.last_name").
		From(relationsTableName + " r").
		Join(usersTableName + " u on u.id = r.user_id").
		Where(sq.Eq{"r.book_id": bookIDs}).
		OrderBy("r.book_id", "r.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []readerRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		readers[row.BookID] = append(readers[row.BookID], model.Reader{
			FirstName: row.FirstName,
			LastName:  row.LastName,
		})
	}
	return readers, nil
}

func (r *repository) GetOrCreateUser(ctx context.Context, username string) (model.User, error) {
	q := `
insert into users (username)
values ($1)
on conflict (username) do update set username = excluded.username
returning id, username, first_name, last_name`

	var user model.User
	if err := r.db.GetContext(ctx, &user, q, username); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) GetRelation(ctx context.Context, userID, bookID int64) (model.UserBookRelation, error) {
	sqlStr, args, err := qb.Select("id", "user_id", "book_id", `"like"`, "in_bookmarks", "rating").
		From(relationsTableName).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"book_id": bookID}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return model.UserBookRelation{}, err
	}

	var rel model.UserBookRelation
	if err := r.db.GetContext(ctx, &rel, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserBookRelation{}, errs.ErrNotFound
		}
		return model.UserBookRelation{}, err
	}
	return rel, nil
}

func (r *repository) CreateRelation(ctx context.Context, userID, bookID int64) (model.UserBookRelation, error) {
	sqlStr, args, err := qb.Insert(relationsTableName).
		Columns("user_id", "book_id").
		Values(userID, bookID).
		Suffix(`returning id, user_id, book_id, "like", in_bookmarks, rating`).
		ToSql()
	if err != nil {
		return model.UserBookRelation{}, err
	}

	var rel model.UserBookRelation
	if err := r.db.GetContext(ctx, &rel, sqlStr, args...); err != nil {
		if isFKViolation(err) {
			return model.UserBookRelation{}, errs.ErrNotFound
		}
		r.log.Error("CreateRelation", zap.String("q", sqlStr), zap.Any("args", args))
		return model.UserBookRelation{}, err
	}
	return rel, nil
}

func (r *repository) UpdateRelation(ctx context.Context, rel model.UserBookRelation) error {
	sqlStr, args, err := qb.Update(relationsTableName).
		Set(`"like"`, rel.Like).
		Set("in_bookmarks", rel.InBookmarks).
		Set("rating", rel.Rating).
		Where(sq.Eq{"id": rel.ID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const setBookRatingQuery = `
update books
   set rating = (select round(avg(rating)::numeric, 2)
                   from user_book_relations
                  where book_id = $1)
 where id = $1
returning rating`

// SetBookRating rewrites the book's cached rating from the current mean of
// its relations' ratings in a single statement and returns the new value.
func (r *repository) SetBookRating(ctx context.Context, bookID int64) (decimal.NullDecimal, error) {
	var rating decimal.NullDecimal
	if err := r.db.QueryRowContext(ctx, setBookRatingQuery, bookID).Scan(&rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.NullDecimal{}, errs.ErrNotFound
		}
		return decimal.NullDecimal{}, err
	}
	return rating, nil
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
