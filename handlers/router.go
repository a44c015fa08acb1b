package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/camden-git/imagestudio/media"
	"github.com/camden-git/imagestudio/metrics"
	"github.com/camden-git/imagestudio/realtime"
	"github.com/camden-git/imagestudio/repository"
	"github.com/camden-git/imagestudio/services"
)

// APIPrefix is the mount point of every API route.
const APIPrefix = "/api/v1"

// RouterConfig collects what the HTTP layer needs.
type RouterConfig struct {
	Images         repository.ImageRepositoryInterface
	Users          repository.UserRepository
	Transforms     *services.TransformService
	Media          *services.MediaService
	Hub            *realtime.Hub
	Metrics        *metrics.Metrics
	LocalStore     *media.LocalStorage // nil when assets live in S3
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logrus.StandardLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	auth := NewAuthenticator(cfg.Users, cfg.JWTSecret).Middleware
	imageHandler := NewImageHandler(cfg.Images, cfg.Transforms)
	userHandler := NewUserHandler(cfg.Users)
	mediaHandler := NewMediaHandler(cfg.Media)
	aiHandler := NewAIHandler(cfg.Media)

	r.Route(APIPrefix, func(r chi.Router) {
		if cfg.Hub != nil {
			// websockets outlive the request timeout
			r.Get("/ws", cfg.Hub.ServeWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Get("/health", Health)

			r.Route("/images", func(r chi.Router) {
				r.Get("/transform/{id}", imageHandler.TransformImage)
				r.Get("/variants/{variantId}/options", imageHandler.GetVariantOptions)
				r.Post("/variants/{variantId}/replay", imageHandler.ReplayVariant)
				r.Get("/{id}/transformed", imageHandler.ListTransformed)
				r.Get("/{id}", imageHandler.GetImage)

				r.Group(func(r chi.Router) {
					r.Use(auth)
					r.Post("/", imageHandler.CreateImage)
					r.Get("/", imageHandler.ListImages)
					r.Get("/user", imageHandler.ListUserImages)
					r.Patch("/{id}", imageHandler.UpdateImage)
					r.Delete("/{id}", imageHandler.DeleteImage)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(auth)
				r.Post("/", userHandler.CreateUser)
				r.Get("/", userHandler.ListUsers)
				r.Get("/me", userHandler.GetCurrentUser)
				r.Get("/{id}", userHandler.GetUser)
				r.Delete("/{id}", userHandler.DeleteUser)
			})

			r.Route("/media", func(r chi.Router) {
				r.Use(auth)
				r.Post("/upload", mediaHandler.Upload)
				r.Post("/upload-url", mediaHandler.UploadFromURL)
				r.Delete("/", mediaHandler.Delete)
			})

			r.Route("/ai", func(r chi.Router) {
				r.Use(auth)
				r.Post("/generate", aiHandler.Generate)
				r.Post("/remove-background/{id}", aiHandler.RemoveBackground)
			})
		})
	})

	if cfg.LocalStore != nil {
		r.Get("/media/*", AssetServer(cfg.LocalStore, "/media/"))
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	return r
}
