package echo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
)

// ProgressReader serves progress of sessions owned by another replica.
type ProgressReader interface {
	Latest(ctx context.Context, sessionID string) (domain.BatchProgress, bool, error)
}

type ImportHandler struct {
	sessions app.ImportSessionManager
	progress ProgressReader
	now      func() time.Time
}

type remoteSessionResponse struct {
	ID       string               `json:"id"`
	Progress domain.BatchProgress `json:"progress"`
}

// NewImportHandler builds the import endpoints; progress may be nil.
func NewImportHandler(sessions app.ImportSessionManager, progress ProgressReader) *ImportHandler {
	return &ImportHandler{sessions: sessions, progress: progress, now: time.Now}
}

func (h *ImportHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "missing_file", "multipart field \"file\" is required")
	}
	file, err := fh.Open()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "bad_request", "uploaded file could not be read")
	}
	defer file.Close()

	out, err := h.sessions.Create(c.Request().Context(), app.CreateSessionInput{
		Filename: fh.Filename,
		Body:     file,
		Size:     fh.Size,
	})
	if err != nil {
		if errors.Is(err, app.ErrMalformedFile) {
			return errorJSON(c, http.StatusUnprocessableEntity, "malformed_file", err.Error())
		}
		return errorJSON(c, http.StatusInternalServerError, "internal_error", "failed to process import file")
	}

	return c.JSON(http.StatusCreated, apiResponse{Data: out})
}

func (h *ImportHandler) GetSession(c echo.Context) error {
	id := c.Param("id")
	out, err := h.sessions.Get(id)
	if err == nil {
		return c.JSON(http.StatusOK, apiResponse{Data: out})
	}
	if !errors.Is(err, app.ErrSessionNotFound) {
		return errorJSON(c, http.StatusInternalServerError, "internal_error", "failed to get import session")
	}

	if h.progress != nil {
		progress, ok, perr := h.progress.Latest(c.Request().Context(), id)
		if perr == nil && ok {
			return c.JSON(http.StatusOK, apiResponse{Data: remoteSessionResponse{ID: id, Progress: progress}})
		}
	}
	return sessionNotFound(c)
}

func (h *ImportHandler) Apply(c echo.Context) error {
	if err := h.sessions.Apply(c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusAccepted, apiResponse{Data: map[string]string{"status": string(app.SessionRunning)}})
}

func (h *ImportHandler) Pause(c echo.Context) error {
	if err := h.sessions.Pause(c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusAccepted, apiResponse{Data: map[string]string{"status": string(app.SessionPaused)}})
}

func (h *ImportHandler) Resume(c echo.Context) error {
	if err := h.sessions.Resume(c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusAccepted, apiResponse{Data: map[string]string{"status": string(app.SessionRunning)}})
}

func (h *ImportHandler) Cancel(c echo.Context) error {
	if err := h.sessions.Cancel(c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusAccepted, apiResponse{Data: map[string]string{"status": "cancelling"}})
}

func (h *ImportHandler) Discard(c echo.Context) error {
	if err := h.sessions.Discard(c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ImportHandler) ErrorReport(c echo.Context) error {
	return h.report(c, "import", h.sessions.WriteErrorReport)
}

func (h *ImportHandler) ValidationReport(c echo.Context) error {
	return h.report(c, "validation", h.sessions.WriteValidationReport)
}

// report renders into memory first so "nothing to download" can still be
// answered with a JSON error.
func (h *ImportHandler) report(c echo.Context, name string, write func(string, io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(c.Param("id"), &buf); err != nil {
		if errors.Is(err, app.ErrNothingToReport) {
			return errorJSON(c, http.StatusNotFound, "nothing_to_download", "there are no errors to download")
		}
		return sessionError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+app.ReportFilename(name, h.now())+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		return sessionNotFound(c)
	case errors.Is(err, app.ErrSessionAlreadyApplied):
		return errorJSON(c, http.StatusConflict, "already_applied", "import session was already applied")
	case errors.Is(err, app.ErrSessionNotApplied):
		return errorJSON(c, http.StatusConflict, "not_applied", "import session has not been applied")
	default:
		return errorJSON(c, http.StatusInternalServerError, "internal_error", "import session operation failed")
	}
}

func sessionNotFound(c echo.Context) error {
	return errorJSON(c, http.StatusNotFound, "not_found", "import session not found")
}
