package httpserver

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopdata/internal/loader"
	"github.com/Skotchmaster/shopdata/internal/logging"
	"github.com/Skotchmaster/shopdata/internal/query"
)

// ReportHandler serves the integrity report of an already loaded store.
// Drifted totals are counted, never fixed.
type ReportHandler struct {
	DB *gorm.DB
}

func (h *ReportHandler) GetReport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "report.get")

	report, err := loader.BuildReport(ctx, h.DB, false)
	if err != nil {
		l.Error("report_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot build report")
	}

	l.Info("report_served", "mismatches", report.Totals.Found, "fk_violations", report.ViolationTotal())
	if c.QueryParam("format") == "text" {
		var buf bytes.Buffer
		report.Write(&buf)
		return c.String(http.StatusOK, buf.String())
	}
	return c.JSON(http.StatusOK, report)
}

// QueryHandler runs a posted batch inside a transaction that is always
// rolled back, so the store is left as it was.
type QueryHandler struct {
	DB *gorm.DB
}

func (h *QueryHandler) RunBatch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "query.run_batch")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		l.Warn("query_batch_failed", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}
	batch := string(body)
	if strings.TrimSpace(batch) == "" {
		l.Warn("query_batch_failed", "status", 400, "reason", "empty batch")
		return echo.NewHTTPError(http.StatusBadRequest, "empty batch")
	}

	tx := h.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		l.Error("query_batch_failed", "status", 500, "reason", "cannot begin", "error", tx.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "store unavailable")
	}
	defer tx.Rollback()

	var out bytes.Buffer
	runner := &query.Runner{DB: tx, Out: &out, Log: l}
	failed, err := runner.Run(ctx, batch)
	if err != nil {
		l.Error("query_batch_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "batch interrupted")
	}

	l.Info("query_batch_done", "statements", len(query.Split(batch)), "failed", failed)
	return c.String(http.StatusOK, out.String())
}
