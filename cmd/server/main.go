package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"google.golang.org/api/option"

	"github.com/beer/backend/internal/config"
	"github.com/beer/backend/internal/handlers"
	appMiddleware "github.com/beer/backend/internal/middleware"
	"github.com/beer/backend/internal/services"
	"github.com/beer/backend/internal/storage"
	"github.com/beer/backend/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var (
		st        store.Store
		authn     services.Authenticator
		userAuth  func(http.Handler) http.Handler
		localBlob bool
	)

	if cfg.FirebaseProjectID != "" {
		var opts []option.ClientOption
		if cfg.FirebaseCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
		}
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase app: %v", err)
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth client: %v", err)
		}
		fsClient, err := app.Firestore(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firestore client: %v", err)
		}

		st = store.NewFirestoreStore(fsClient)
		authn = services.NewFirebaseAuthenticator(authClient, cfg.FirebaseWebAPIKey)
		userAuth = appMiddleware.FirebaseAuth(authClient)
	} else {
		log.Printf("Warning: FIREBASE_PROJECT_ID not set; using in-memory store with JSON snapshots")
		snap, err := storage.NewSnapshotFile(cfg.DataDir, "beer.json")
		if err != nil {
			log.Fatalf("Failed to open data dir: %v", err)
		}
		mem, err := store.NewMemoryStore(snap)
		if err != nil {
			log.Fatalf("Failed to load store snapshot: %v", err)
		}
		st = mem
		authn = services.NewMemoryAuthenticator(cfg.JWTSecret, cfg.JWTExpiration)
		userAuth = appMiddleware.JWTAuth(cfg.JWTSecret)
	}

	var blobs services.BlobStore
	if cfg.CloudinaryCloudName != "" {
		blobs = services.NewCloudinaryService(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	} else {
		log.Printf("Warning: CLOUDINARY_CLOUD_NAME not set; storing images on local disk")
		local, err := services.NewLocalImageService(cfg.UploadDir)
		if err != nil {
			log.Fatalf("Failed to create upload dir: %v", err)
		}
		blobs = local
		localBlob = true
	}

	var audit services.AuditLog
	if cfg.MongoURI != "" {
		mongoAudit, err := services.NewMongoAuditService(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Printf("Warning: failed to connect Mongo audit log, falling back to in-memory: %v", err)
			audit = services.NewMemoryAuditLog()
		} else {
			audit = mongoAudit
		}
	} else {
		audit = services.NewMemoryAuditLog()
	}

	limiter := services.NewCreationLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	verification := services.NewVerificationService(st, authn, blobs, audit)
	profiles := services.NewProfileService(st, blobs, limiter, cfg.RateLimitWindow, cfg.RateLimitMax)

	authHandler := handlers.NewAuthHandler(verification)
	userHandler := handlers.NewUserHandler(verification)
	profileHandler := handlers.NewProfileHandler(profiles)
	adminHandler := handlers.NewAdminHandler(verification, audit)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// Coarse per-IP throttle; the profile-creation window limit is enforced
	// separately in the service layer.
	r.Use(httprate.Limit(
		100,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Authenticated user routes
		r.Group(func(r chi.Router) {
			r.Use(userAuth)

			r.Post("/auth/selfie", authHandler.SubmitSelfie)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Get("/status/stream", userHandler.StatusStream)
			})

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", profileHandler.ListProfiles)
				r.Post("/", profileHandler.CreateProfile)

				r.Route("/{profileID}", func(r chi.Router) {
					r.Get("/", profileHandler.GetProfile)
					r.Post("/vote", profileHandler.Vote)
					r.Post("/comments", profileHandler.AddComment)
				})
			})
		})

		// Admin review console
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminAuth(cfg.AdminJWTSecret))

			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", adminHandler.ListUsers)
				r.Get("/users/pending", adminHandler.PendingUsers)
				r.Put("/users/{userID}/status", adminHandler.UpdateStatus)
				r.Get("/stats", adminHandler.Stats)
				r.Get("/actions", adminHandler.Actions)
				r.Get("/notifications", adminHandler.Notifications)
			})
		})
	})

	if localBlob {
		workDir, _ := os.Getwd()
		filesDir := http.Dir(workDir + "/" + cfg.UploadDir)
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(filesDir)))
	}

	log.Printf("beer API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
