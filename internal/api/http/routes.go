package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/skywatch/internal/dashboard"
	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/scheduler"
	"github.com/i474232898/skywatch/internal/weather"
)

var validate = validator.New()

// AlertSource exposes the change alerts raised by the refresh scheduler.
type AlertSource interface {
	Alerts() []scheduler.Alert
}

// Deps is what the HTTP handlers need.
type Deps struct {
	Dashboard *dashboard.Dashboard
	Locator   dashboard.Locator
	// IPSensor builds a sensor locating the given client address. Nil
	// disables the IP fallback of POST /location/precise.
	IPSensor  func(ip string) geo.Sensor
	Alerts    AlertSource
	Providers []string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "skywatch",
			"providers": deps.Providers,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		var q coordQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		res, err := deps.Dashboard.WeatherByCoordinates(c.UserContext(), q.lat(), q.lon(), q.units())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(res)
	})

	v1.Get("/weather/city", func(c *fiber.Ctx) error {
		var q cityQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		res, err := deps.Dashboard.WeatherByCityName(c.UserContext(), q.Name, q.units())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(res)
	})

	v1.Get("/weather/export.csv", func(c *fiber.Ctx) error {
		var q coordQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		res, err := deps.Dashboard.WeatherByCoordinates(c.UserContext(), q.lat(), q.lon(), q.units())
		if err != nil {
			return mapError(err)
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="weather-report.csv"`)
		if err := weather.WriteCSV(c, res.Weather); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to write csv")
		}
		return nil
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := deps.Dashboard.History(req.Coords.lat(), req.Coords.lon(), req.Coords.units(), req.From, req.To)
		if err != nil {
			if errors.Is(err, weather.ErrNoSnapshot) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"coordinates": weather.Coordinates{Lat: req.Coords.lat(), Lon: req.Coords.lon()},
			"from":        req.From,
			"to":          req.To,
			"snapshots":   snapshots,
		})
	})

	v1.Get("/location/reverse", func(c *fiber.Ctx) error {
		var q coordQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		cand, err := deps.Locator.ResolvePrecise(c.UserContext(), q.lat(), q.lon())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(describe(cand))
	})

	v1.Post("/location/precise", func(c *fiber.Ctx) error {
		var body preciseRequest
		if err := bindBody(c, &body); err != nil {
			return err
		}
		sensor, err := deps.sensorFor(c, body.Fixes)
		if err != nil {
			return err
		}
		cand, err := deps.Dashboard.PreciseLocation(c.UserContext(), sensor)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(describe(cand))
	})

	v1.Get("/alerts", func(c *fiber.Ctx) error {
		alerts := []scheduler.Alert{}
		if deps.Alerts != nil {
			alerts = append(alerts, deps.Alerts.Alerts()...)
		}
		return c.JSON(fiber.Map{"alerts": alerts})
	})

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).JSON(deps.Dashboard.NewSession())
	})

	v1.Delete("/sessions/:id", func(c *fiber.Ctx) error {
		deps.Dashboard.CloseSession(c.Params("id"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/sessions/:id/refresh", func(c *fiber.Ctx) error {
		var body lookupRequest
		if err := bindBody(c, &body); err != nil {
			return err
		}

		units, _ := weather.ParseUnits(body.Units)
		q := dashboard.Query{City: body.City, Units: units}
		switch {
		case body.City != "":
		case body.Lat != nil && body.Lon != nil:
			q.Coords = &weather.Coordinates{Lat: *body.Lat, Lon: *body.Lon}
		default:
			sensor, err := deps.sensorFor(c, body.Fixes)
			if err != nil {
				return err
			}
			q.Sensor = sensor
		}

		res, err := deps.Dashboard.Lookup(c.UserContext(), c.Params("id"), q)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(res)
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// mapError translates pipeline sentinels into HTTP statuses.
func mapError(err error) error {
	switch {
	case errors.Is(err, geo.ErrLocationNotFound), errors.Is(err, dashboard.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrSuperseded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, weather.ErrAllSourcesExhausted),
		errors.Is(err, weather.ErrSourceUnavailable),
		errors.Is(err, geo.ErrLocationUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}

// describe pairs a candidate with its display and accuracy labels.
func describe(c geo.Candidate) fiber.Map {
	return fiber.Map{
		"location":      c,
		"placeLabel":    geo.FormatDisplayLabel(c),
		"accuracyLabel": geo.AccuracyReport(c),
	}
}

func (d Deps) sensorFor(c *fiber.Ctx, fixes []geo.Fix) (geo.Sensor, error) {
	if len(fixes) > 0 {
		return geo.NewReportedSensor(fixes), nil
	}
	if d.IPSensor == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "fixes are required")
	}
	return d.IPSensor(c.IP()), nil
}

// coordQuery holds query parameters identifying a point.
type coordQuery struct {
	Lat   string `query:"lat" validate:"required,latitude"`
	Lon   string `query:"lon" validate:"required,longitude"`
	Units string `query:"units" validate:"omitempty,oneof=metric imperial"`
}

// Parse errors are impossible once validation passed.
func (q coordQuery) lat() float64 {
	v, _ := strconv.ParseFloat(q.Lat, 64)
	return v
}

func (q coordQuery) lon() float64 {
	v, _ := strconv.ParseFloat(q.Lon, 64)
	return v
}

func (q coordQuery) units() weather.Units {
	u, _ := weather.ParseUnits(q.Units)
	return u
}

type cityQuery struct {
	Name  string `query:"name" validate:"required,max=200"`
	Units string `query:"units" validate:"omitempty,oneof=metric imperial"`
}

func (q cityQuery) units() weather.Units {
	u, _ := weather.ParseUnits(q.Units)
	return u
}

type preciseRequest struct {
	Fixes []geo.Fix `json:"fixes" validate:"max=20,dive"`
}

type lookupRequest struct {
	City  string    `json:"city" validate:"max=200"`
	Lat   *float64  `json:"lat" validate:"omitempty,latitude"`
	Lon   *float64  `json:"lon" validate:"omitempty,longitude"`
	Units string    `json:"units" validate:"omitempty,oneof=metric imperial"`
	Fixes []geo.Fix `json:"fixes" validate:"max=20,dive"`
}

func bindQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func bindBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Coords coordQuery
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	if err := c.QueryParser(&h.Coords); err != nil {
		return err
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
