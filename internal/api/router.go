// Package api assembles the HTTP surface: routes, handlers and middleware.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/carteira/internal/api/handlers"
	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups every resource handler the router mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Transactions *handlers.TransactionsHandler
	Categories   *handlers.CategoriesHandler
	Investments  *handlers.InvestmentsHandler
	Profile      *handlers.ProfileHandler
	Statements   *handlers.StatementsHandler
	Market       *handlers.MarketHandler
	History      *handlers.HistoryHandler
	Proxy        *handlers.ProxyHandler
}

// Options configures the middleware stack.
type Options struct {
	Tokens         middleware.TokenValidator
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	// MaxBodyBytes caps JSON request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes   int64
	Log            zerolog.Logger
}

// DefaultMaxBodyBytes is the JSON body cap when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

type router struct {
	mux  *http.ServeMux
	auth func(http.Handler) http.Handler
	body func(http.Handler) http.Handler
}

// handle registers pattern with and without a trailing slash.
func (rt *router) handle(pattern string, h http.Handler) {
	rt.mux.Handle(pattern, h)
	if !strings.HasSuffix(pattern, "/") {
		rt.mux.Handle(pattern+"/{$}", h)
	}
}

func (rt *router) public(pattern string, h http.HandlerFunc) {
	rt.handle(pattern, h)
}

func (rt *router) private(pattern string, h http.HandlerFunc) {
	rt.handle(pattern, rt.auth(h))
}

// privateJSON is private with the request body capped.
func (rt *router) privateJSON(pattern string, h http.HandlerFunc) {
	rt.handle(pattern, rt.auth(rt.body(h)))
}

// NewRouter builds the complete handler, middleware included.
func NewRouter(h Handlers, opts Options) http.Handler {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	rt := &router{
		mux:  http.NewServeMux(),
		auth: middleware.Auth(opts.Tokens),
		body: middleware.MaxBytes(maxBody),
	}

	rt.public("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	rt.handle("POST /auth/google", middleware.MaxBytes(maxBody)(http.HandlerFunc(h.Auth.GoogleLogin)))
	rt.private("GET /api/user", h.Auth.CurrentUser)

	// Transactions endpoints
	rt.private("GET /api/transactions", h.Transactions.ListTransactions)
	rt.privateJSON("POST /api/transactions", h.Transactions.CreateTransaction)
	rt.private("GET /api/transactions/{id}", h.Transactions.GetTransaction)
	rt.privateJSON("PUT /api/transactions/{id}", h.Transactions.UpdateTransaction)
	rt.privateJSON("PATCH /api/transactions/{id}", h.Transactions.UpdateTransaction)
	rt.private("DELETE /api/transactions/{id}", h.Transactions.DeleteTransaction)

	// Categories endpoints
	rt.private("GET /api/categories", h.Categories.ListCategories)
	rt.privateJSON("POST /api/categories", h.Categories.CreateCategory)
	rt.privateJSON("PUT /api/categories/{id}", h.Categories.RenameCategory)
	rt.privateJSON("PATCH /api/categories/{id}", h.Categories.RenameCategory)
	rt.private("DELETE /api/categories/{id}", h.Categories.DeleteCategory)

	// Investments endpoints
	rt.private("GET /api/investments/search", h.Market.Search)
	rt.private("GET /api/investments/quote", h.Market.Quote)
	rt.private("GET /api/investments", h.Investments.ListInvestments)
	rt.privateJSON("POST /api/investments", h.Investments.CreateInvestment)
	rt.private("GET /api/investments/{id}", h.Investments.GetInvestment)
	rt.privateJSON("PUT /api/investments/{id}", h.Investments.UpdateInvestment)
	rt.privateJSON("PATCH /api/investments/{id}", h.Investments.UpdateInvestment)
	rt.private("DELETE /api/investments/{id}", h.Investments.DeleteInvestment)

	// Profile endpoints
	rt.private("GET /api/profile", h.Profile.GetProfile)
	rt.privateJSON("PATCH /api/profile", h.Profile.UpdateProfile)
	rt.private("GET /api/profile-picture-proxy", h.Proxy.ProfilePicture)

	// Statements endpoints
	rt.private("POST /api/process-statement", h.Statements.ProcessStatement)
	rt.privateJSON("POST /api/statements/extract", h.Statements.ExtractStatement)

	// Indexes endpoints
	rt.private("GET /api/indexes", h.Market.Indexes)
	rt.privateJSON("POST /api/indexes/series", h.Market.Series)

	// Historical data and jobs endpoints
	rt.private("GET /api/historical-data/{symbol}", h.History.GetHistory)
	rt.privateJSON("POST /api/historical-data/dispatch", h.History.Dispatch)
	rt.private("GET /api/jobs", h.History.ListJobs)
	rt.private("GET /api/jobs/{id}", h.History.GetJob)

	return middleware.Chain(rt.mux,
		middleware.Recovery(opts.Log),
		middleware.RequestID,
		middleware.Logger(opts.Log),
		middleware.CORS(opts.AllowedOrigins),
		middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, opts.Log),
	)
}
