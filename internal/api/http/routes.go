package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-forecast-etl/internal/pipeline"
	"github.com/i474232898/weather-forecast-etl/internal/store"
)

var validate = validator.New()

// RunService is what the routes need from the pipeline.
type RunService interface {
	GetLatest() (pipeline.RunRecord, error)
	GetRun(id string) (pipeline.RunRecord, error)
	GetRange(from, to time.Time) ([]pipeline.RunRecord, error)
}

// Trigger starts a manual run for a logical date.
type Trigger func(ctx context.Context, logical time.Time) (pipeline.RunRecord, error)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
// loc is the zone used to interpret the date of manual runs.
func RegisterRoutes(app *fiber.App, service RunService, trigger Trigger, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}

	v1 := app.Group("/api/v1")

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		rec, err := service.GetLatest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no pipeline runs recorded yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load latest run")
		}
		return c.JSON(rec)
	})

	v1.Get("/runs/:id", func(c *fiber.Ctx) error {
		req := runIDParam{ID: c.Params("id")}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := service.GetRun(req.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "run not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load run")
		}
		return c.JSON(rec)
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := service.GetRange(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs in requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load run history")
		}

		return c.JSON(fiber.Map{
			"from": req.From,
			"to":   req.To,
			"runs": runs,
		})
	})

	v1.Post("/runs", func(c *fiber.Ctx) error {
		if trigger == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "manual runs are disabled")
		}

		req := triggerQuery{Date: c.Query("date")}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		logical := time.Now().In(loc)
		if req.Date != "" {
			d, err := time.ParseInLocation("2006-01-02", req.Date, loc)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			logical = d
		}

		rec, err := trigger(c.UserContext(), logical)
		if err != nil {
			// The run is recorded either way; report it with a gateway error.
			return c.Status(fiber.StatusBadGateway).JSON(rec)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})
}

type runIDParam struct {
	ID string `validate:"required,uuid"`
}

// triggerQuery holds query parameters for a manual run.
type triggerQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

// historyQuery holds query parameters for the run history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
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
