// Command server runs the Patshala backend: credential flows for students
// and teachers, study-material uploads, and the email delivery worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/patshala/backend/auth"
	"github.com/patshala/backend/modules/account"
	modnotes "github.com/patshala/backend/modules/notes"
	"github.com/patshala/backend/notes"
	"github.com/patshala/backend/notify"
	"github.com/patshala/backend/pkg/clientip"
	"github.com/patshala/backend/pkg/config"
	"github.com/patshala/backend/pkg/cookie"
	"github.com/patshala/backend/pkg/email"
	"github.com/patshala/backend/pkg/file"
	"github.com/patshala/backend/pkg/httpserver"
	"github.com/patshala/backend/pkg/jwt"
	"github.com/patshala/backend/pkg/logger"
	mongoclient "github.com/patshala/backend/pkg/mongo"
	"github.com/patshala/backend/pkg/otp"
	"github.com/patshala/backend/pkg/queue"
	"github.com/patshala/backend/pkg/ratelimiter"
	redisclient "github.com/patshala/backend/pkg/redis"
	"github.com/patshala/backend/roster"
	"github.com/patshala/backend/store"
)

type appConfig struct {
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`
	ResetURL      string `env:"PASSWORD_RESET_URL" envDefault:"http://localhost:3000/reset-password"`

	OTPTTL time.Duration `env:"OTP_TTL" envDefault:"60s"`

	LoginRateCapacity int           `env:"LOGIN_RATE_CAPACITY" envDefault:"10"`
	LoginRateInterval time.Duration `env:"LOGIN_RATE_INTERVAL" envDefault:"1m"`

	NotesDir     string `env:"NOTES_STORAGE_DIR" envDefault:"./data/notes"`
	NotesBaseURL string `env:"NOTES_BASE_URL" envDefault:"http://localhost:8080/files"`

	HTTP   httpserver.Config
	Log    logger.Config
	Mongo  mongoclient.Config
	Redis  redisclient.Config
	Email  email.Config
	Cookie cookie.Config
	Queue  queue.Config
	Roster roster.Config
	S3     file.S3Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log, "patshala-backend")

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	// Persistence.
	db, err := mongoclient.NewWithDatabase(ctx, cfg.Mongo, cfg.Mongo.Database)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer db.Client().Disconnect(context.Background())

	students := store.NewPrincipals(db, store.CollectionStudents)
	teachers := store.NewPrincipals(db, store.CollectionTeachers)
	for _, s := range []*store.Principals{students, teachers} {
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
	}

	rdb, err := redisclient.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	// Token and cookie plumbing.
	tokens, err := jwt.New(cfg.JWTSigningKey)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	cookies := cookie.NewFromConfig(cfg.Cookie)

	// Email delivery over the task queue.
	sender := newSender(cfg, log)
	taskStorage := queue.NewMemoryStorage()
	defer taskStorage.Close()

	enqueuer, err := queue.NewEnqueuer(taskStorage)
	if err != nil {
		return fmt.Errorf("queue enqueuer: %w", err)
	}
	worker, err := queue.NewWorker(taskStorage,
		queue.WithPullInterval(cfg.Queue.PollInterval),
		queue.WithLockTimeout(cfg.Queue.LockTimeout),
		queue.WithMaxConcurrentTasks(cfg.Queue.MaxConcurrentTasks),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return fmt.Errorf("queue worker: %w", err)
	}
	worker.RegisterHandlers(notify.NewDeliverer(sender, notify.WithLogger(log)).Handler())
	notifier := notify.NewEmailNotifier(enqueuer)

	// Identity registry with optional rosters.
	registryOpts := []auth.RegistryOption{}
	for _, r := range []struct {
		role auth.Role
		path string
	}{
		{auth.RoleStudent, cfg.Roster.StudentRosterFile},
		{auth.RoleTeacher, cfg.Roster.TeacherRosterFile},
	} {
		if r.path == "" {
			continue
		}
		dir, err := roster.LoadFile(r.path)
		if err != nil {
			return fmt.Errorf("roster %s: %w", r.path, err)
		}
		log.Info("roster loaded", logger.Role(r.role), slog.Int("entries", dir.Len()))
		registryOpts = append(registryOpts, auth.WithRoster(r.role, dir))
	}
	registry := auth.NewRegistry(students, teachers, registryOpts...)

	codes := otp.New(otp.WithTTL(cfg.OTPTTL))
	studentSvc := auth.NewService(auth.RoleStudent, students, registry, tokens, notifier,
		auth.WithLogger(log), auth.WithOTPGenerator(codes), auth.WithResetURL(cfg.ResetURL))
	teacherSvc := auth.NewService(auth.RoleTeacher, teachers, registry, tokens, notifier,
		auth.WithLogger(log), auth.WithOTPGenerator(codes), auth.WithResetURL(cfg.ResetURL))

	// Brute-force throttle on login and forgot-password, backed by redis so
	// every instance shares the window.
	limiter, err := ratelimiter.NewBucket(
		ratelimiter.NewRedisStore(rdb, "authlimit"),
		ratelimiter.Config{
			Capacity:       cfg.LoginRateCapacity,
			RefillRate:     cfg.LoginRateCapacity,
			RefillInterval: cfg.LoginRateInterval,
		},
	)
	if err != nil {
		return fmt.Errorf("ratelimiter: %w", err)
	}

	// Notes storage: S3 when configured, local disk otherwise.
	noteFiles, err := newNotesStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("notes storage: %w", err)
	}
	notesSvc := notes.NewService(
		notes.NewMongoRepository(db, store.CollectionNotes, store.CollectionPYQs),
		noteFiles,
		notes.WithLogger(log),
	)

	// HTTP surface.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(clientip.Middleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(log,
		mongoclient.Healthcheck(db.Client()),
		redisclient.Healthcheck(rdb),
	))

	r.Mount("/", account.Router(account.RouterOptions{
		Students: account.NewHandler(auth.RoleStudent, studentSvc, registry, cookies, tokens,
			account.WithLimiter(limiter), account.WithLogger(log)),
		Teachers: account.NewHandler(auth.RoleTeacher, teacherSvc, registry, cookies, tokens,
			account.WithLimiter(limiter), account.WithLogger(log)),
	}))
	r.Mount("/notes", modnotes.NewHandler(notesSvc, tokens, modnotes.WithLogger(log)).Handle())

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	g.Go(func() error { return srv.Run(ctx, r) })

	return g.Wait()
}

// newSender picks postmark in production and the file-dump sender
// everywhere else.
func newSender(cfg appConfig, log *slog.Logger) email.EmailSender {
	if cfg.AppEnv == "production" {
		return email.MustNewPostmarkClient(cfg.Email)
	}
	log.Info("using dev email sender", slog.String("dir", cfg.Email.DevOutputDir))
	return email.NewDevSender(cfg.Email.DevOutputDir)
}

func newNotesStorage(ctx context.Context, cfg appConfig) (file.Storage, error) {
	if cfg.S3.Bucket != "" {
		return file.NewS3Storage(ctx, cfg.S3)
	}
	return file.NewLocalStorage(cfg.NotesDir, cfg.NotesBaseURL)
}
