package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"todoReminder/internal/middleware"
)

type RouterConfig struct {
	CORSOrigins []string
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
}

func NewRouter(cfg RouterConfig, tasks TaskService, users UserService, notifications NotificationService) http.Handler {
	todoHandler := NewTodoHandler(tasks)
	userHandler := NewUserHandler(users)
	notificationHandler := NewNotificationHandler(notifications)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimit))
	}

	r.Get("/health", todoHandler.HealthCheck)
	r.Post("/register", userHandler.Register)
	r.Post("/token", userHandler.Token)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(users))

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", todoHandler.List)    // GET /todos/
			r.Post("/", todoHandler.Create) // POST /todos/

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", todoHandler.Get)       // GET /todos/{id}
				r.Patch("/", todoHandler.Patch)   // PATCH /todos/{id}
				r.Put("/", todoHandler.Replace)   // PUT /todos/{id}
				r.Delete("/", todoHandler.Delete) // DELETE /todos/{id}
			})
		})

		r.Get("/notifications", notificationHandler.List)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/users/", userHandler.List)                    // GET /admin/users/
			r.Delete("/users/{id}", userHandler.Delete)           // DELETE /admin/users/{id}
			r.Post("/bulk-notify", notificationHandler.Broadcast) // POST /admin/bulk-notify
		})
	})

	return otelhttp.NewHandler(r, "todo-reminder")
}
