package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"intelliserver/internal/apperror"
	"intelliserver/internal/store"
)

type serviceStatusResponse struct {
	ChampionshipID int32 `json:"championship_id"`
	Active         bool  `json:"active"`
	GeneralConn    int   `json:"general_conn"`
	EngineerConn   int   `json:"engineer_conn"`
}

// handleStartService implements the Control API's start_service operation.
// It first checks that the championship exists (404 otherwise). The HTTP
// layer then owns port acquisition: it pulls the next free port from the
// shared Pool before ever touching the Manager, so NoPortAvailable is
// reported as 503 without partially constructing a service.
func (s *Server) handleStartService(c echo.Context) error {
	id, err := parseChampionshipID(c)
	if err != nil {
		return err
	}

	if _, err := s.champs.Find(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrChampionshipNotFound) {
			return apperror.New(apperror.KindChampionshipNotFound)
		}
		return apperror.Wrap(apperror.KindInternalServerError, err)
	}

	port, err := s.manager.Pool().Next()
	if err != nil {
		return err
	}

	if _, err := s.manager.StartService(id, port); err != nil {
		// StartService itself returns the port on a firewall/dial failure
		// (it owns port from that point on); it only returns early without
		// touching the port on AlreadyStarted, so only that case needs us
		// to return it here.
		if apperror.Is(err, apperror.KindAlreadyStarted) {
			s.manager.Pool().Return(port)
		}
		return err
	}

	return c.NoContent(http.StatusCreated)
}

// handleStopService implements stop_service: 200, or 503 NotActive if the
// championship has no running service.
func (s *Server) handleStopService(c echo.Context) error {
	id, err := parseChampionshipID(c)
	if err != nil {
		return err
	}
	if err := s.manager.StopService(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// handleServiceStatus implements service_status: {active, general_conn,
// engineer_conn}. engineer_conn is always 0 — see DESIGN.md.
func (s *Server) handleServiceStatus(c echo.Context) error {
	id, err := parseChampionshipID(c)
	if err != nil {
		return err
	}
	status, err := s.manager.ServiceStatus(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, serviceStatusResponse{
		ChampionshipID: status.ChampionshipID,
		Active:         status.Active,
		GeneralConn:    status.GeneralConn,
		EngineerConn:   status.EngineerConn,
	})
}

// handleEnumerate lists every tracked championship's status.
func (s *Server) handleEnumerate(c echo.Context) error {
	statuses := s.manager.Enumerate()
	out := make([]serviceStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, serviceStatusResponse{
			ChampionshipID: status.ChampionshipID,
			Active:         status.Active,
			GeneralConn:    status.GeneralConn,
			EngineerConn:   status.EngineerConn,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func parseChampionshipID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "championship id must be an integer")
	}
	return int32(id), nil
}
