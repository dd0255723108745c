package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/dto"
	"github.com/noah-isme/acadex-api/internal/realtime"
	"github.com/noah-isme/acadex-api/internal/service"
	"github.com/noah-isme/acadex-api/internal/utils"
)

const (
	localResource   = "watch_resource"
	localRequestCtx = "request_ctx"
)

// watchFrame is one JSON message pushed over a watch socket.
type watchFrame struct {
	Resource string      `json:"resource"`
	Data     interface{} `json:"data"`
}

// WatchHandler serves live query snapshots over websockets.
type WatchHandler struct {
	assignments service.AssignmentService
	submissions service.SubmissionService
	grades      service.GradingService
	logger      zerolog.Logger
}

// NewWatchHandler constructs a websocket watch handler.
func NewWatchHandler(assignments service.AssignmentService, submissions service.SubmissionService, grades service.GradingService, logger zerolog.Logger) *WatchHandler {
	return &WatchHandler{
		assignments: assignments,
		submissions: submissions,
		grades:      grades,
		logger:      logger.With().Str("component", "watch_handler").Logger(),
	}
}

// Register binds the websocket routes.
func (h *WatchHandler) Register(router fiber.Router) {
	router.Get("/:resource", h.upgrade, websocket.New(h.handleConnection))
}

func (h *WatchHandler) upgrade(c *fiber.Ctx) error {
	resource, ok := realtime.ParseResource(c.Params("resource"))
	if !ok {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "unknown resource", errorValidation)
	}
	if queryActor(c).ID == "" {
		return missingIdentity(c)
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	c.Locals(localResource, resource)
	c.Locals(localRequestCtx, requestContext(c))
	return c.Next()
}

func (h *WatchHandler) handleConnection(conn *websocket.Conn) {
	resource, _ := conn.Locals(localResource).(realtime.Resource)
	baseCtx, _ := conn.Locals(localRequestCtx).(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	h.logger.Info().Str("resource", string(resource)).Msg("watch websocket connected")
	defer h.logger.Info().Str("resource", string(resource)).Msg("watch websocket disconnected")

	// Client frames are ignored; a read error means the peer went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var err error
	switch resource {
	case realtime.ResourceAssignments:
		query := dto.AssignmentListQuery{ClassID: conn.Query("classId"), TeacherID: conn.Query("teacherId")}
		err = pumpSnapshots(ctx, conn, resource, h.assignments.Watch(ctx, query))
	case realtime.ResourceSubmissions:
		query := dto.SubmissionListQuery{AssignmentID: conn.Query("assignmentId"), StudentID: conn.Query("studentId")}
		err = pumpSnapshots(ctx, conn, resource, h.submissions.Watch(ctx, query))
	case realtime.ResourceGrades:
		query := dto.GradeListQuery{SubmissionID: conn.Query("submissionId"), StudentID: conn.Query("studentId")}
		err = pumpSnapshots(ctx, conn, resource, h.grades.Watch(ctx, query))
	}
	if err != nil {
		h.logger.Debug().Err(err).Str("resource", string(resource)).Msg("watch websocket write failed")
	}
}

func pumpSnapshots[T any](ctx context.Context, conn *websocket.Conn, resource realtime.Resource, subscription *realtime.Subscription[T]) error {
	defer subscription.Cancel()

	for {
		select {
		case snapshot, ok := <-subscription.Updates():
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(watchFrame{Resource: string(resource), Data: snapshot}); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
