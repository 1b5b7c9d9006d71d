package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bookhub/store-service/store/internal/errs"
	"github.com/bookhub/store-service/store/internal/model"
	"github.com/bookhub/store-service/store/migrations"
)

func TestBuildListBooksQuery(t *testing.T) {
	t.Parallel()

	price := decimal.RequireFromString("100.50")

	var tests = []struct {
		name         string
		query        model.BooksQuery
		wantContains []string
		wantOrder    string
		wantArgs     []interface{}
	}{
		{
			name:  "no filters",
			query: model.BooksQuery{},
			wantContains: []string{
				`count(*) filter (where r."like") as likes_count`,
				"count(*) filter (where r.in_bookmarks) as bookmarks_count",
				"b.price - b.discount as price_with_discount",
				"coalesce(u.username, '') as owner_name",
				"LEFT JOIN user_book_relations r on r.book_id = b.id",
				"LEFT JOIN users u on u.id = b.owner_id",
				"GROUP BY b.id, u.username",
			},
			wantOrder: "ORDER BY b.id",
		},
		{
			name:  "price filter",
			query: model.BooksQuery{Price: &price},
			wantContains: []string{
				"WHERE b.price = $1",
			},
			wantOrder: "ORDER BY b.id",
			wantArgs:  []interface{}{price},
		},
		{
			name:  "search on name and author",
			query: model.BooksQuery{Search: "tolstoy"},
			wantContains: []string{
				"WHERE (b.name ILIKE $1 OR b.author_name ILIKE $2)",
			},
			wantOrder: "ORDER BY b.id",
			wantArgs:  []interface{}{"%tolstoy%", "%tolstoy%"},
		},
		{
			name:      "order by price asc",
			query:     model.BooksQuery{OrderBy: model.OrderByPriceAsc},
			wantOrder: "ORDER BY b.price, b.id",
		},
		{
			name:      "order by price desc",
			query:     model.BooksQuery{OrderBy: model.OrderByPriceDesc},
			wantOrder: "ORDER BY b.price desc, b.id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sqlStr, args, err := buildListBooksQuery(tt.query).ToSql()
			require.NoError(t, err)

			for _, part := range tt.wantContains {
				require.Contains(t, sqlStr, part)
			}
			require.Contains(t, sqlStr, tt.wantOrder)
			if tt.wantArgs != nil {
				require.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestSetBookRatingQuery(t *testing.T) {
	t.Parallel()

	require.Contains(t, setBookRatingQuery, "update books")
	require.Contains(t, setBookRatingQuery, "round(avg(rating)::numeric, 2)")
	require.Contains(t, setBookRatingQuery, "from user_book_relations")
	require.Contains(t, setBookRatingQuery, "returning rating")
}

// Requires a reachable Postgres; set TEST_DB_DSN to run, e.g.
// TEST_DB_DSN="host=localhost user=postgres password=postgres dbname=store sslmode=disable".
func TestRepository_SetBookRating(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(migrations.MigrationFiles)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db.DB, "."))

	repo, err := NewRepository(db, zap.NewExample())
	require.NoError(t, err)
	ctx := context.Background()

	newBook := func(name string) int64 {
		var id int64
		require.NoError(t, db.GetContext(ctx, &id,
			`insert into books (name, price) values ($1, 10.00) returning id`, name))
		t.Cleanup(func() { db.ExecContext(ctx, `delete from books where id = $1`, id) })
		return id
	}
	addRelation := func(bookID int64, n int, rating interface{}) {
		var userID int64
		require.NoError(t, db.GetContext(ctx, &userID,
			`insert into users (username) values ($1) returning id`,
			fmt.Sprintf("rater-%d-%d", bookID, n)))
		t.Cleanup(func() { db.ExecContext(ctx, `delete from users where id = $1`, userID) })
		_, err := db.ExecContext(ctx,
			`insert into user_book_relations (user_id, book_id, rating) values ($1, $2, $3)`,
			userID, bookID, rating)
		require.NoError(t, err)
	}

	bookID := newBook("rated book")
	addRelation(bookID, 1, 1)
	addRelation(bookID, 2, 5)

	rating, err := repo.SetBookRating(ctx, bookID)
	require.NoError(t, err)
	require.True(t, rating.Valid)
	require.True(t, rating.Decimal.Equal(decimal.RequireFromString("3.00")),
		"got %s", rating.Decimal)

	addRelation(bookID, 3, 4)
	rating, err = repo.SetBookRating(ctx, bookID)
	require.NoError(t, err)
	require.True(t, rating.Valid)
	require.True(t, rating.Decimal.Equal(decimal.RequireFromString("3.33")),
		"got %s", rating.Decimal)

	unrated := newBook("unrated book")
	addRelation(unrated, 1, nil)
	rating, err = repo.SetBookRating(ctx, unrated)
	require.NoError(t, err)
	require.False(t, rating.Valid)

	_, err = repo.SetBookRating(ctx, unrated+1000000)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
