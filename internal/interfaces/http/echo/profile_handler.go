package echo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/profile-import/internal/application/profile"
)

// ProfileExporter renders every profile in the import column layout.
type ProfileExporter interface {
	WriteCSV(ctx context.Context, w io.Writer) error
	WriteXLSX(ctx context.Context, w io.Writer) error
}

type ProfileHandler struct {
	useCase  app.GetProfileByID
	exporter ProfileExporter
	now      func() time.Time
}

func NewProfileHandler(useCase app.GetProfileByID, exporter ProfileExporter) *ProfileHandler {
	return &ProfileHandler{useCase: useCase, exporter: exporter, now: time.Now}
}

func (h *ProfileHandler) GetProfileByID(c echo.Context) error {
	out, err := h.useCase.Execute(c.Request().Context(), app.GetProfileByIDInput{
		ID: c.Param("id"),
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidProfileID) {
			return errorJSON(c, http.StatusBadRequest, "invalid_profile_id", "id must be a valid UUID")
		}
		if errors.Is(err, app.ErrProfileNotFound) {
			return errorJSON(c, http.StatusNotFound, "not_found", "profile not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "internal_error", "failed to get profile")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ProfileHandler) Export(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}

	stamp := h.now().UTC().Format("2006-01-02")
	var (
		contentType string
		write       func(context.Context, io.Writer) error
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		write = h.exporter.WriteCSV
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		write = h.exporter.WriteXLSX
	default:
		return errorJSON(c, http.StatusBadRequest, "invalid_format", "format must be csv or xlsx")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="profiles_`+stamp+`.`+format+`"`)

	// Headers are committed on first write, so a listing failure must be
	// caught before anything reaches the client.
	w := &lazyWriter{res: res}
	if err := write(c.Request().Context(), w); err != nil {
		if !w.started {
			res.Header().Del(echo.HeaderContentDisposition)
			res.Header().Del(echo.HeaderContentType)
			return errorJSON(c, http.StatusInternalServerError, "internal_error", "failed to export profiles")
		}
		return err
	}
	if !w.started {
		res.WriteHeader(http.StatusOK)
	}
	return nil
}

type lazyWriter struct {
	res     *echo.Response
	started bool
}

func (w *lazyWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.res.WriteHeader(http.StatusOK)
	}
	return w.res.Write(p)
}
