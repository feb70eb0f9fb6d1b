package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Belphemur/ShowTracker/internal/apperrors"
	"github.com/Belphemur/ShowTracker/internal/metrics"
	"github.com/Belphemur/ShowTracker/internal/models"
	"github.com/Belphemur/ShowTracker/internal/shows"
)

// Response messages of the show endpoints
const (
	MsgShowNotFound      = "No show with this id exists"
	MsgInvalidShowID     = "Show id must be an integer"
	MsgInvalidMinEpisode = "minEpisodes must be an integer"
	MsgBodyNotObject     = "Request body must be a JSON object"
	MsgBodyTooLarge      = "Request body is too large"
	MsgShowDeleted       = "Show deleted"
	MsgShowCreated       = "Added a new show"
	MsgAllShows          = "Retrieved all shows"
)

const maxBodyBytes = 1 << 20

// ShowHandler serves the /shows resource.
type ShowHandler struct {
	repo shows.Repository
}

// NewShowHandler creates a ShowHandler backed by repo
func NewShowHandler(repo shows.Repository) *ShowHandler {
	return &ShowHandler{repo: repo}
}

// Register mounts the show routes on r.
func (h *ShowHandler) Register(r gin.IRouter) {
	r.GET("/shows", h.List)
	r.POST("/shows", h.Create)
	r.GET("/shows/:id", h.Get)
	r.PUT("/shows/:id", h.Update)
	r.DELETE("/shows/:id", h.Delete)
}

// List handles GET /shows with an optional minEpisodes filter.
func (h *ShowHandler) List(c *gin.Context) {
	minParam := c.Query("minEpisodes")

	minEpisodes := 0
	if minParam != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(minParam))
		if err != nil {
			h.fail(c, "list", &apperrors.ErrMalformedInput{Param: "minEpisodes", Value: minParam})
			return
		}
		minEpisodes = parsed
	}

	all, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	metrics.ShowOperationsTotal.WithLabelValues("list", "success").Inc()

	if minParam == "" {
		respond(c, http.StatusOK, MsgAllShows, gin.H{"shows": all})
		return
	}

	filtered := models.FilterByMinEpisodes(all, minEpisodes)
	if len(filtered) == 0 {
		respond(c, http.StatusOK,
			fmt.Sprintf("There are no shows with a minimum of %d episodes seen.", minEpisodes),
			gin.H{"shows": filtered})
		return
	}
	respond(c, http.StatusOK,
		fmt.Sprintf("Retrieved all shows with %d or more episodes seen.", minEpisodes),
		gin.H{"shows": filtered})
}

// Get handles GET /shows/:id.
func (h *ShowHandler) Get(c *gin.Context) {
	id, ok := h.showID(c, "get")
	if !ok {
		return
	}

	show, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	metrics.ShowOperationsTotal.WithLabelValues("get", "success").Inc()
	respond(c, http.StatusOK, fmt.Sprintf("Retrieved the show with id %d", id), gin.H{"show": show})
}

// Create handles POST /shows. Both fields are required; nothing is stored when validation fails.
func (h *ShowHandler) Create(c *gin.Context) {
	input, ok := h.showInput(c, "create")
	if !ok {
		return
	}
	if err := input.ValidateForCreate(); err != nil {
		h.fail(c, "create", err)
		return
	}

	show, err := h.repo.Create(c.Request.Context(), input.Name, input.EpisodesSeen)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	metrics.ShowOperationsTotal.WithLabelValues("create", "success").Inc()
	respond(c, http.StatusCreated, MsgShowCreated, gin.H{"show": show})
}

// Update handles PUT /shows/:id. Missing or empty fields keep their stored value.
// An unknown id is reported before the body is looked at.
func (h *ShowHandler) Update(c *gin.Context) {
	id, ok := h.showID(c, "update")
	if !ok {
		return
	}
	if _, err := h.repo.Get(c.Request.Context(), id); err != nil {
		h.fail(c, "update", err)
		return
	}
	input, ok := h.showInput(c, "update")
	if !ok {
		return
	}
	if err := input.ValidateForUpdate(); err != nil {
		h.fail(c, "update", err)
		return
	}

	show, err := h.repo.Update(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	metrics.ShowOperationsTotal.WithLabelValues("update", "success").Inc()
	respond(c, http.StatusOK, fmt.Sprintf("Updated show with id %d", id), gin.H{"show": show})
}

// Delete handles DELETE /shows/:id.
func (h *ShowHandler) Delete(c *gin.Context) {
	id, ok := h.showID(c, "delete")
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	metrics.ShowOperationsTotal.WithLabelValues("delete", "success").Inc()
	respond(c, http.StatusOK, MsgShowDeleted, nil)
}

// showID parses the :id path parameter, answering 400 when it is not an integer.
func (h *ShowHandler) showID(c *gin.Context, operation string) (int, bool) {
	raw := c.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		h.fail(c, operation, &apperrors.ErrMalformedInput{Param: "id", Value: raw})
		return 0, false
	}
	return id, true
}

// showInput reads and decodes the request body.
func (h *ShowHandler) showInput(c *gin.Context, operation string) (models.ShowInput, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.ShowOperationsTotal.WithLabelValues(operation, "invalid").Inc()
			respond(c, http.StatusRequestEntityTooLarge, MsgBodyTooLarge, nil)
			return models.ShowInput{}, false
		}
		h.fail(c, operation, fmt.Errorf("failed to read request body: %w", err))
		return models.ShowInput{}, false
	}

	input, err := models.DecodeShowInput(body)
	if err != nil {
		h.fail(c, operation, err)
		return models.ShowInput{}, false
	}
	return input, true
}

// fail maps err to its status code and writes the error envelope.
func (h *ShowHandler) fail(c *gin.Context, operation string, err error) {
	var (
		validationErr *apperrors.ErrValidation
		malformedErr  *apperrors.ErrMalformedInput
	)

	switch {
	case errors.Is(err, &apperrors.ErrNotFound{}):
		metrics.ShowOperationsTotal.WithLabelValues(operation, "not_found").Inc()
		respond(c, http.StatusNotFound, MsgShowNotFound, nil)
	case errors.As(err, &validationErr):
		metrics.ShowOperationsTotal.WithLabelValues(operation, "invalid").Inc()
		respond(c, http.StatusUnprocessableEntity, validationErr.Message, nil)
	case errors.As(err, &malformedErr):
		metrics.ShowOperationsTotal.WithLabelValues(operation, "invalid").Inc()
		message := MsgInvalidShowID
		if malformedErr.Param == "minEpisodes" {
			message = MsgInvalidMinEpisode
		}
		respond(c, http.StatusBadRequest, message, nil)
	case errors.Is(err, models.ErrBodyNotObject):
		metrics.ShowOperationsTotal.WithLabelValues(operation, "invalid").Inc()
		respond(c, http.StatusBadRequest, MsgBodyNotObject, nil)
	default:
		metrics.ShowOperationsTotal.WithLabelValues(operation, "error").Inc()
		reportError(c, err)
		respond(c, http.StatusInternalServerError, MsgInternalError, nil)
	}
}
