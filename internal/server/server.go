package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/adwatch/internal/admin"
	"github.com/victornm/adwatch/internal/api"
	"github.com/victornm/adwatch/internal/auth"
	"github.com/victornm/adwatch/internal/catalog"
	"github.com/victornm/adwatch/internal/clerk"
	"github.com/victornm/adwatch/internal/event"
	"github.com/victornm/adwatch/internal/reward"
	"github.com/victornm/adwatch/internal/stats"
	"github.com/victornm/adwatch/internal/telemetry"
	"github.com/victornm/adwatch/internal/upload"
	"github.com/victornm/adwatch/internal/user"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	// Debug serves /metrics and /debug/pprof on its own port so the API
	// surface stays clean.
	Debug struct {
		Port int32
	}

	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Minio struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		PublicURL string
		Secure    bool
	}

	Clerk struct {
		WebhookSecret string
		JWTPublicKey  string
	}

	Catalog struct {
		CacheTTL time.Duration
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
		minio    *minio.Client
	}

	service struct {
		catalog *catalog.Service
		reward  *reward.Service
		stats   *stats.Service
		user    *user.Service
		admin   *admin.Service
		upload  *upload.Service
	}

	http  *http.Server
	debug *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()

	if err := s.initAPI(); err != nil {
		return nil, fmt.Errorf("server: init api: %w", err)
	}

	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	if err := s.initMinio(); err != nil {
		return fmt.Errorf("minio: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s",
		s.c.Postgres.User, s.c.Postgres.Pass, s.c.Postgres.Addr, s.c.Postgres.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initMinio() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := minio.New(s.c.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.c.Minio.AccessKey, s.c.Minio.SecretKey, ""),
		Secure: s.c.Minio.Secure,
	})
	if err != nil {
		return err
	}

	exists, err := mc.BucketExists(ctx, s.c.Minio.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.c.Minio.Bucket)
	}

	s.infra.minio = mc
	return nil
}

func (s *Server) initService() {
	s.service.catalog = catalog.NewService(catalog.Config{
		Store:    catalog.NewPGStore(s.infra.postgres),
		Redis:    s.infra.redis,
		Prefix:   s.c.Redis.Prefix,
		CacheTTL: s.c.Catalog.CacheTTL,
	})

	s.service.reward = reward.NewService(reward.Config{
		Store:    reward.NewPGStore(s.infra.postgres),
		EventBus: s.eb,
	})

	s.service.stats = stats.NewService(stats.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis,
		Prefix:   s.c.Redis.Prefix,
	})

	s.service.user = user.NewService(user.Config{
		Store:    user.NewPGStore(s.infra.postgres),
		EventBus: s.eb,
	})

	s.service.admin = admin.NewService(admin.Config{
		Store: admin.NewPGStore(s.infra.postgres),
	})

	s.service.upload = upload.NewService(upload.Config{
		Store:         s.infra.minio,
		Bucket:        s.c.Minio.Bucket,
		PublicBaseURL: s.c.Minio.PublicURL,
	})
}

func (s *Server) initAPI() error {
	verifier, err := auth.NewVerifier(auth.Config{PublicKeyPEM: s.c.Clerk.JWTPublicKey})
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	webhooks, err := clerk.NewVerifier(s.c.Clerk.WebhookSecret)
	if err != nil {
		return fmt.Errorf("clerk: %w", err)
	}

	e := gin.New()
	e.Use(gin.Recovery(), telemetry.HTTPMetrics())

	api.New(api.Config{
		Router:   e,
		Catalog:  s.service.catalog,
		Reward:   s.service.reward,
		User:     s.service.user,
		Admin:    s.service.admin,
		Upload:   s.service.upload,
		Auth:     verifier,
		Webhooks: webhooks,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}

	d := gin.New()
	d.Use(gin.Recovery())
	d.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(d, "/debug/pprof")

	s.debug = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.Debug.Port),
		Handler:           d,
		ReadHeaderTimeout: 60 * time.Second,
	}

	return nil
}

func (s *Server) Start() {
	ctx := context.TODO()

	serve := func(name string, srv *http.Server) func() error {
		return func() error {
			slog.InfoContext(ctx, fmt.Sprintf("server: %s listening on %s", name, srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	}

	var eg errgroup.Group
	eg.Go(serve("api", s.http))
	eg.Go(serve("debug", s.debug))

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}
	if err := s.debug.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown debug failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.Close()
	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
