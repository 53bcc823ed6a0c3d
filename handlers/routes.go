package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"reviewverso/api"
	"reviewverso/models"
)

// Routes groups the handlers mounted under /api.
type Routes struct {
	Catalog *CatalogHandler
	Reviews *ReviewsHandler
	Lists   *ListsHandler
	Auth    *AuthHandler
	Users   *UsersHandler
	Health  *HealthHandler

	// Session attaches the caller's session to every /api request.
	Session mux.MiddlewareFunc
	// AuthLimiter throttles login and registration per client IP.
	AuthLimiter *api.IPRateLimiter
	// IGDBLimiter throttles the IGDB proxy per client IP so one caller cannot
	// drain the shared IGDB quota.
	IGDBLimiter *api.IPRateLimiter
}

// catalogSections maps the frontend route segments onto media types.
var catalogSections = []struct {
	segment string
	t       models.MediaType
}{
	{"peliculas", models.MediaTypeMovie},
	{"series", models.MediaTypeSeries},
	{"videojuegos", models.MediaTypeVideogame},
	{"libros", models.MediaTypeBook},
}

func authed(f http.HandlerFunc) http.Handler {
	return api.RequireAuth(f)
}

func adminOnly(f http.HandlerFunc) http.Handler {
	return api.AdminOnly(f)
}

// Register mounts the API on r and returns the /api subrouter.
func (rt Routes) Register(r *mux.Router) *mux.Router {
	s := r.PathPrefix("/api").Subrouter()
	if rt.Session != nil {
		s.Use(rt.Session)
	}

	if rt.Health != nil {
		s.HandleFunc("/health", rt.Health.Health).Methods(http.MethodGet)
	}

	if h := rt.Catalog; h != nil {
		for _, section := range catalogSections {
			s.HandleFunc("/"+section.segment, h.Browse(section.t)).Methods(http.MethodGet)
			s.HandleFunc("/"+section.segment+"/{id}", h.Details(section.t)).Methods(http.MethodGet)
		}
		proxy := http.Handler(http.HandlerFunc(h.ProxyIGDB))
		if rt.IGDBLimiter != nil {
			proxy = api.RateLimit(rt.IGDBLimiter)(proxy)
		}
		s.Handle("/igdb/{endpoint:.+}", api.RequireAuth(proxy)).Methods(http.MethodPost)
		s.Handle("/admin/cache", adminOnly(h.ClearCache)).Methods(http.MethodDelete)
	}

	if h := rt.Reviews; h != nil {
		s.HandleFunc("/contenido/{type}/{id}/reviews", h.ByContent).Methods(http.MethodGet)
		s.Handle("/reviews", authed(h.Create)).Methods(http.MethodPost)
		s.HandleFunc("/reviews/{id}", h.Get).Methods(http.MethodGet)
		s.Handle("/reviews/{id}", authed(h.Update)).Methods(http.MethodPut)
		s.Handle("/reviews/{id}", authed(h.Delete)).Methods(http.MethodDelete)
		s.HandleFunc("/users/{id}/reviews", h.ByUser).Methods(http.MethodGet)
	}

	if h := rt.Lists; h != nil {
		s.HandleFunc("/users/{id}/listas", h.ByUser).Methods(http.MethodGet)
		s.Handle("/listas", authed(h.Create)).Methods(http.MethodPost)
		s.HandleFunc("/listas/{id}", h.Get).Methods(http.MethodGet)
		s.Handle("/listas/{id}", authed(h.Update)).Methods(http.MethodPut)
		s.Handle("/listas/{id}", authed(h.Delete)).Methods(http.MethodDelete)
		s.Handle("/listas/{id}/items", authed(h.AddItem)).Methods(http.MethodPost)
		s.Handle("/listas/{id}/items/{type}/{contentId}", authed(h.RemoveItem)).Methods(http.MethodDelete)
	}

	if h := rt.Auth; h != nil {
		login, register := http.Handler(http.HandlerFunc(h.Login)), http.Handler(http.HandlerFunc(h.Register))
		if rt.AuthLimiter != nil {
			login = api.RateLimit(rt.AuthLimiter)(login)
			register = api.RateLimit(rt.AuthLimiter)(register)
		}
		s.Handle("/auth/login", login).Methods(http.MethodPost)
		s.Handle("/auth/register", register).Methods(http.MethodPost)
		s.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
		s.Handle("/me", authed(h.Me)).Methods(http.MethodGet)
	}

	if h := rt.Users; h != nil {
		s.HandleFunc("/users/{id}", h.Get).Methods(http.MethodGet)
		s.Handle("/users/{id}", authed(h.Update)).Methods(http.MethodPut)
		s.Handle("/users/{id}", authed(h.Delete)).Methods(http.MethodDelete)
		s.Handle("/admin/users", adminOnly(h.List)).Methods(http.MethodGet)
	}

	s.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteMessage(w, http.StatusNotFound, "Ruta no encontrada")
	})
	return s
}
