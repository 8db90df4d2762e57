package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/collegia/collegia/auth"
	"github.com/collegia/collegia/cache"
	"github.com/collegia/collegia/chat"
	"github.com/collegia/collegia/classes"
	"github.com/collegia/collegia/config"
	"github.com/collegia/collegia/course"
	"github.com/collegia/collegia/data"
	"github.com/collegia/collegia/middleware/guard"
	"github.com/collegia/collegia/middleware/ratelimit"
	"github.com/collegia/collegia/payment"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	logger *glog.BaseLogger
	bunDB  *bun.DB
	srv    router.Server[*fiber.App]
	cache  cache.Cache
	repo   auth.RepositoryManager
	auth   *auth.Auther
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("collegia"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithCache(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetApp().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	migrationsFS, err := fs.Sub(data.GetMigrationsFS(), "sql/migrations")
	if err != nil {
		return err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(migrationsFS); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = repo

	return nil
}

func WithCache(_ context.Context, app *App) error {
	ccfg := app.Config().GetCache()
	if !ccfg.Enabled() {
		app.GetLogger("cache").Warn("no redis address configured, using in-process cache")
		app.cache = cache.NewMemoryCache()
		return nil
	}

	store := cache.NewRedisCacheFromAddr(ccfg.GetAddr(), ccfg.Password, ccfg.DB)
	if err := store.Ping(context.Background()); err != nil {
		return err
	}
	app.cache = store

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()
	vcfg := app.Config().GetViews()

	userProvider := auth.NewUserProvider(app.repo.Users())
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	registrar := auth.NewRegisterUserHandler(app.repo)

	auther := auth.NewAuthenticator(userProvider, registrar, acfg)
	auther.WithLogger(app.GetLogger("auth"))
	app.auth = auther

	cookies := auth.NewCookieManager(acfg)

	engine := django.New(vcfg.GetDir(), vcfg.GetExt())

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	srv.Router().Use(guard.New(guard.Config{
		Tokens:  auther.TokenService(),
		Users:   userProvider,
		Cookies: cookies,
		Logger:  app.GetLogger("guard"),
	}))

	auth.RegisterAuthRoutes(srv.Router(),
		auth.WithControllerLogger(app.GetLogger("auth:http")),
		auth.WithControllerAuther(auther),
		auth.WithControllerCookies(cookies),
	)

	courses := course.NewController(
		course.NewCoursesRepository(app.bunDB),
		app.cache,
		app.GetLogger("courses"),
	)
	course.RegisterCourseRoutes(srv.Router(), courses)

	chatLimiter := ratelimit.New(ratelimit.Config{
		Counter:   app.cache,
		KeyPrefix: "ratelimit:chat",
		Logger:    app.GetLogger("ratelimit"),
	})
	chatController := chat.NewController(
		chat.NewMessagesRepository(app.bunDB),
		app.GetLogger("chat"),
	)
	chat.RegisterChatRoutes(srv.Router(), chatController, chatLimiter)

	pcfg := app.Config().GetPayments()
	subscriptions := payment.NewApplySubscriptionHandler(app.repo.Users())
	payments := payment.NewController(
		payment.NewPaymentsRepository(app.bunDB),
		subscriptions,
		payment.StaticSTKPusher{},
		pcfg.GetWebhookSecret(),
		app.GetLogger("payments"),
	)
	payment.RegisterPaymentRoutes(srv.Router(), payments)

	liveClasses := classes.NewController(
		classes.NewLiveClassesRepository(app.bunDB),
		classes.StaticMeetingProvider{BaseURL: pcfg.GetMeetingBaseURL()},
		app.GetLogger("classes"),
	)
	classes.RegisterClassRoutes(srv.Router(), liveClasses)

	PageRoutes(app, srv.Router())

	app.srv = srv

	return nil
}

func PageRoutes(app *App, r router.Router[*fiber.App]) {
	r.Get("/", func(ctx router.Context) error {
		return ctx.Redirect("/dashboard", http.StatusFound)
	})

	r.Get("/dashboard", renderPage("dashboard")).SetName("pages.dashboard")
	r.Get("/chat", renderPage("chat")).SetName("pages.chat")
	r.Get("/admin", renderPage("admin")).SetName("pages.admin")
}

func renderPage(name string) router.HandlerFunc {
	return func(ctx router.Context) error {
		claims, _ := auth.GetRouterClaims(ctx)
		session, _ := auth.SessionFromClaims(claims)
		return ctx.Render(name, router.ViewContext{
			"session": session,
		})
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
