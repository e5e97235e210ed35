package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dhstore/checkout/internal/auth"
	"github.com/dhstore/checkout/internal/compress"
	"github.com/dhstore/checkout/internal/config"
	"github.com/dhstore/checkout/internal/handlers"
)

const (
	compressLevel  = 5
	requestTimeout = 30 * time.Second
)

type Middleware interface {
	Handle(h http.Handler) http.Handler
}

type Router struct {
	server *http.Server
	router *chi.Mux
}

func NewRouter(conf *config.ServerConfig, h *handlers.HandlerSet, middlewares ...Middleware) *Router {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	for _, m := range middlewares {
		r.Use(m.Handle)
	}

	signature := &auth.SignatureMiddleware{Secret: conf.RazorpayWebhookSecret}
	r.With(signature.Handle).Post("/webhooks/razorpay", h.HandleRazorpayWebhook)

	r.Group(func(r chi.Router) {
		r.Use(compress.RequestUngzipper{}.Handle)
		r.Use(middleware.Compress(compressLevel))
		r.Use(middleware.Timeout(requestTimeout))

		r.Post("/api/checkout", h.HandleStartCheckout)
		r.Post("/api/checkout/cod", h.HandlePlaceCOD)

		r.Route("/api/pending-orders", func(r chi.Router) {
			r.Post("/", h.HandleCreatePendingOrder)
			r.Put("/{orderNumber}/razorpay", h.HandleUpdateRazorpayID)
			r.Put("/{orderNumber}/payment", h.HandleUpdatePaymentDetails)
			r.Post("/{orderNumber}/dismissed", h.HandleDismissed)
			r.Post("/{orderNumber}/cancel", h.HandleCancel)
		})
	})

	return &Router{
		router: r,
		server: &http.Server{Addr: conf.RunAddress, Handler: r, ReadHeaderTimeout: 10 * time.Second},
	}
}

func (r *Router) Handler() http.Handler {
	return r.router
}

func (r *Router) ListenAndServe() error {
	err := r.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (r *Router) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}
