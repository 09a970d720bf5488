package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/skywatch/internal/api/http"
	"github.com/i474232898/skywatch/internal/cache"
	"github.com/i474232898/skywatch/internal/config"
	"github.com/i474232898/skywatch/internal/dashboard"
	"github.com/i474232898/skywatch/internal/geo"
	geoproviders "github.com/i474232898/skywatch/internal/geo/providers"
	"github.com/i474232898/skywatch/internal/logging"
	"github.com/i474232898/skywatch/internal/scheduler"
	"github.com/i474232898/skywatch/internal/store"
	"github.com/i474232898/skywatch/internal/upstream"
	"github.com/i474232898/skywatch/internal/weather"
	weatherproviders "github.com/i474232898/skywatch/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logging.New(cfg.LogLevel, cfg.DevMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	// Shared transport for outbound provider calls. Timeouts are applied per
	// call by the upstream clients.
	httpClient := &http.Client{}
	client := func(name string, backoff upstream.BackoffConfig) *upstream.Client {
		return upstream.New(name, httpClient, cfg.HTTPTimeout, backoff, lg)
	}

	// Weather providers. Keyed providers come first so that they win merge
	// ties; Open-Meteo needs no key and is always last.
	var provs []weather.Provider
	if config.HasKey(cfg.OpenWeatherAPIKey) {
		provs = append(provs, weatherproviders.NewOpenWeatherProvider(client("openweathermap", upstream.DefaultBackoff), cfg.OpenWeatherAPIKey))
	}
	if config.HasKey(cfg.WeatherAPIKey) {
		provs = append(provs, weatherproviders.NewWeatherAPIProvider(client("weatherapi", upstream.DefaultBackoff), cfg.WeatherAPIKey))
	}
	provs = append(provs, weatherproviders.NewOpenMeteoProvider(client("open-meteo", upstream.DefaultBackoff)))

	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	service := weather.NewService(memStore, provs, lg)

	// Forward geocoding with an ephemeral result cache.
	var geoCache cache.Cache = cache.NewMemoryCache()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			lg.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		geoCache = cache.NewRedisCache(rdb, geo.CacheNamespace)
	}

	nominatim := geoproviders.NewNominatim(client("nominatim", upstream.NoRetry))
	bigDataCloud := geoproviders.NewBigDataCloud(client("bigdatacloud", upstream.NoRetry))

	var geocoders []geo.Geocoder
	if config.HasKey(cfg.OpenWeatherAPIKey) {
		geocoders = append(geocoders, geoproviders.NewOpenWeatherGeocoder(client("openweather-geo", upstream.NoRetry), cfg.OpenWeatherAPIKey))
	}
	geocoders = append(geocoders, nominatim)
	resolver := geo.NewResolver(geocoders, geoCache, cfg.CacheTTL, lg)
	// Geocode results are scoped to this process.
	if err := resolver.ResetCache(context.Background()); err != nil {
		lg.Warn("failed to reset geocode cache", zap.Error(err))
	}

	// Reverse geocoders in tie-break order, then the postal cascade.
	reversers := []geo.ReverseGeocoder{nominatim}
	if config.HasKey(cfg.MapBoxToken) {
		reversers = append(reversers, geoproviders.NewMapBox(client("mapbox", upstream.NoRetry), cfg.MapBoxToken))
	}
	reversers = append(reversers, bigDataCloud)
	if config.HasKey(cfg.LocationIQAPIKey) {
		reversers = append(reversers, geoproviders.NewLocationIQ(client("locationiq", upstream.NoRetry), cfg.LocationIQAPIKey))
	}
	postal := []geo.PostalCoder{bigDataCloud, nominatim}
	if config.HasKey(cfg.OpenCageAPIKey) {
		openCage := geoproviders.NewOpenCage(client("opencage", upstream.NoRetry), cfg.OpenCageAPIKey)
		reversers = append(reversers, openCage)
		postal = append(postal, openCage)
	}
	if config.HasKey(cfg.GoogleAPIKey) {
		reversers = append(reversers, geoproviders.NewGoogle(cfg.GoogleAPIKey))
	}
	precision := geo.NewPrecisionResolver(reversers, postal, lg)

	refine := geo.DefaultRefineOptions
	refine.Budget = cfg.SensorBudget
	dash := dashboard.New(service, resolver, precision, refine, lg)

	sched := scheduler.New(cfg.WatchCities, weather.Units(cfg.WatchUnits), cfg.RefreshInterval, dash, lg)
	sched.AddMaintenance("sessions", cfg.SweepInterval, func() { dash.SweepSessions(cfg.SessionIdleTTL) })
	sched.AddMaintenance("store", cfg.SweepInterval, func() { memStore.Prune() })
	if err := sched.Start(); err != nil {
		lg.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	ipClient := client("ip-location", upstream.NoRetry)

	app := fiber.New(fiber.Config{
		AppName:               "skywatch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Weather and address lookups each take up to HTTPTimeout and a
		// sensor lookup adds the refinement budget.
		WriteTimeout: cfg.SensorBudget + 2*cfg.HTTPTimeout,
		ErrorHandler: httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Dashboard: dash,
		Locator:   precision,
		IPSensor: func(ip string) geo.Sensor {
			// Private and loopback callers are located by the server's own address.
			if addr := net.ParseIP(ip); addr == nil || addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() {
				ip = ""
			}
			return geoproviders.NewIPSensor(ipClient, ip)
		},
		Alerts:    sched,
		Providers: service.Providers(),
	})

	go func() {
		lg.Info("listening", zap.String("port", cfg.Port), zap.Strings("providers", service.Providers()))
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Warn("fiber server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("error during shutdown", zap.Error(err))
	}
}
