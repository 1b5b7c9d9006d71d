package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/bookhub/store-service/pkg/auth"
	md "github.com/bookhub/store-service/pkg/middleware"
	"github.com/bookhub/store-service/pkg/validate"
	"github.com/bookhub/store-service/store/internal/errs"
	"github.com/bookhub/store-service/store/internal/model"
	_ "github.com/bookhub/store-service/swagger"
)

type Handler struct {
	storeSvc    StoreService
	log         *zap.Logger
	gatewayAuth bool
}

type Option func(*Handler)

// WithGatewayAuth trusts the X-User-* identity headers set by an upstream
// gateway instead of verifying bearer tokens locally.
func WithGatewayAuth() Option {
	return func(h *Handler) {
		h.gatewayAuth = true
	}
}

func New(storeSvc StoreService, log *zap.Logger, ops ...Option) *Handler {
	h := &Handler{
		storeSvc: storeSvc,
		log:      log,
	}
	for _, op := range ops {
		op(h)
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.GetBooks)
	api.GET("/books/:id", h.GetBook)

	authMW := md.JwtAuthentication
	if h.gatewayAuth {
		authMW = md.AuthContext
	}
	authAPI := api.Group("", authMW)
	authAPI.POST("/books", h.CreateBook)
	authAPI.PUT("/books/:id", h.UpdateBook)
	authAPI.PATCH("/books/:id", h.PatchBook)
	authAPI.DELETE("/books/:id", h.DeleteBook)
	authAPI.PATCH("/relations/:bookId", h.UpdateRelation)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) GetBooks(c echo.Context) error {
	ctx := c.Request().Context()

	var query model.BooksQuery
	if priceParam := c.QueryParam("price"); priceParam != "" {
		price, err := decimal.NewFromString(priceParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("price is invalid"))
		}
		query.Price = &price
	}
	query.Search = c.QueryParam("search")
	switch ordering := c.QueryParam("ordering"); ordering {
	case "":
		query.OrderBy = model.OrderByID
	case string(model.OrderByPriceAsc):
		query.OrderBy = model.OrderByPriceAsc
	case string(model.OrderByPriceDesc):
		query.OrderBy = model.OrderByPriceDesc
	default:
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("ordering is invalid"))
	}

	books, err := h.storeSvc.ListBooks(ctx, query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := bookID(c, "id")
	if err != nil {
		return err
	}
	book, err := h.storeSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreateBook(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	book, err := h.storeSvc.CreateBook(c.Request().Context(), req, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := bookID(c, "id")
	if err != nil {
		return err
	}
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	book, err := h.storeSvc.UpdateBook(c.Request().Context(), id, req, user)
	if err != nil {
		return mutationError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) PatchBook(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := bookID(c, "id")
	if err != nil {
		return err
	}
	var req model.PatchBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.storeSvc.PatchBook(c.Request().Context(), id, req, user)
	if err != nil {
		return mutationError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := bookID(c, "id")
	if err != nil {
		return err
	}
	if err := h.storeSvc.DeleteBook(c.Request().Context(), id, user); err != nil {
		return mutationError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateRelation(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := bookID(c, "bookId")
	if err != nil {
		return err
	}
	var req model.UpdateRelationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rel, err := h.storeSvc.UpsertRelation(c.Request().Context(), id, req, user)
	if err != nil {
		if errors.Is(err, errs.ErrRating) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rel)
}

func bookID(c echo.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.New(param+" is invalid"))
	}
	return id, nil
}

func currentUser(c echo.Context) (auth.UserInfo, error) {
	user, ok := auth.FromContext(c.Request().Context())
	if !ok || user.Username == "" {
		return auth.UserInfo{}, echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
	}
	return user, nil
}

func mutationError(err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
