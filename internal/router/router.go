// Package router sets up all HTTP routes and middleware chains. It
// organizes routes into the token-authenticated JSON APIs and the
// session-authenticated HTML pages.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"inkpress/internal/handlers"
	"inkpress/internal/middleware"
)

// LoginURL is where anonymous visitors of protected pages are sent.
const LoginURL = "/accounts/login/"

// Deps holds everything the router wires together.
type Deps struct {
	Users *handlers.Users
	Blog  *handlers.Blog
	Views *handlers.Views

	Auth     middleware.Authenticator
	Sessions middleware.SessionGetter

	// AuthLimiter throttles credential endpoints; nil disables it.
	AuthLimiter *middleware.RateLimiter

	// SecureCookies marks the CSRF cookie HTTPS-only.
	SecureCookies bool

	// Media serves locally stored uploads under MediaPath; nil when
	// uploads live in object storage.
	Media     http.Handler
	MediaPath string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Set before any Route so sub-routers inherit them.
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	throttle := func(next http.Handler) http.Handler { return next }
	if d.AuthLimiter != nil {
		throttle = d.AuthLimiter.Middleware
	}

	r.Get("/health", handlers.Health)

	if d.Media != nil {
		r.Handle(d.MediaPath+"*", http.StripPrefix(d.MediaPath, d.Media))
	}

	// JSON APIs: Token/Bearer credentials, no cookies, no CSRF.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Auth))

		r.Route("/user/api/v1", func(r chi.Router) {
			u := d.Users

			r.With(throttle).Post("/registration/", u.Register)
			r.With(throttle).Post("/token/login/", u.TokenLogin)
			r.With(middleware.RequireAuth).Post("/token/logout/", u.TokenLogout)
			r.With(throttle).Post("/jwt/create/", u.JWTCreate)
			r.Post("/jwt/refresh/", u.JWTRefresh)
			r.Post("/jwt/verify/", u.JWTVerify)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Put("/change-password/", u.ChangePassword)
				r.Get("/profile/", u.Profile)
				r.Put("/profile/", u.UpdateProfile)
				r.Patch("/profile/", u.UpdateProfile)
				r.Post("/profile/image/", u.UploadProfileImage)
			})

			r.Get("/activation/confirm/{token}/", u.ActivationConfirm)
			r.With(throttle).Post("/activation/resend/", u.ActivationResend)
			r.With(throttle).Post("/reset-password/", u.ResetPassword)
			r.Post("/reset-password/validate-token/", u.ValidateResetToken)
			r.With(throttle).Patch("/reset-password/set-password/", u.SetPassword)
		})

		r.Route("/blog/api/v1", func(r chi.Router) {
			r.Use(middleware.AuthenticatedOrReadOnly)
			b := d.Blog

			r.Get("/health/", handlers.Health)

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", b.ListPosts)
				r.Post("/", b.CreatePost)
				r.Get("/{id}/", b.GetPost)
				r.Put("/{id}/", b.UpdatePost)
				r.Patch("/{id}/", b.UpdatePost)
				r.Delete("/{id}/", b.DeletePost)
				r.Post("/{id}/upload-image/", b.UploadPostImage)
			})

			terms(r, "/categories", b.Categories())
			terms(r, "/tags", b.Tags())

			r.Route("/comments", func(r chi.Router) {
				r.Get("/", b.ListComments)
				r.Post("/", b.CreateComment)
				r.Get("/{id}/", b.GetComment)
				r.Put("/{id}/", b.UpdateComment)
				r.Patch("/{id}/", b.UpdateComment)
				r.Delete("/{id}/", b.DeleteComment)
			})
		})
	})

	// HTML pages: session cookie plus CSRF protection.
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.SecureCookies))
		r.Use(middleware.LoadSession(d.Sessions, d.Auth))
		v := d.Views

		r.Get("/blog/", v.PostList)
		r.Get("/blog/{id}/", v.PostDetail)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin(LoginURL))
			r.Get("/blog/create/", v.PostCreate)
			r.Post("/blog/create/", v.PostCreate)
			r.Get("/blog/{id}/edit/", v.PostEdit)
			r.Post("/blog/{id}/edit/", v.PostEdit)
			r.Get("/blog/{id}/delete/", v.PostDelete)
			r.Post("/blog/{id}/delete/", v.PostDelete)
		})

		r.Get(LoginURL, v.LoginPage)
		r.With(throttle).Post(LoginURL, v.LoginSubmit)
		r.Post("/accounts/logout/", v.Logout)
	})

	return r
}

// terms mounts the CRUD routes of one term kind.
func terms(r chi.Router, prefix string, t *handlers.Terms) {
	r.Route(prefix, func(r chi.Router) {
		r.Get("/", t.List)
		r.Post("/", t.Create)
		r.Get("/{id}/", t.Get)
		r.Put("/{id}/", t.Update)
		r.Patch("/{id}/", t.Update)
		r.Delete("/{id}/", t.Delete)
	})
}
