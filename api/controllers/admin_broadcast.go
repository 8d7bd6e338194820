package controllers

import (
	"context"
	"net/http"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	"github.com/tunnelpay/tunnelpay-backend/api/validators"
	broadcastsvc "github.com/tunnelpay/tunnelpay-backend/internal/broadcast"
	"github.com/tunnelpay/tunnelpay-backend/internal/notify"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

type recipientLister interface {
	ListActiveTelegramIDs(ctx context.Context) ([]int64, error)
}

// AdminBroadcastStart launches a broadcast to all active users. Only one
// broadcast may be in flight at a time.
func AdminBroadcastStart(dispatcher *broadcastsvc.Dispatcher, users recipientLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dispatcher == nil || users == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "broadcast service unavailable"))
			return
		}

		var payload startBroadcastRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipients, err := users.ListActiveTelegramIDs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		run, err := dispatcher.Start(r.Context(), broadcastsvc.Params{
			Message:    notify.Message{Text: payload.Text},
			Recipients: recipients,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"broadcast_id": run.ID,
			"recipients":   len(recipients),
		})
	}
}

// AdminBroadcastProgress reports the state of the current or last run.
func AdminBroadcastProgress(dispatcher *broadcastsvc.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dispatcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "broadcast service unavailable"))
			return
		}

		run := dispatcher.Current()
		if run == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no broadcast has been started"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"broadcast_id": run.ID,
			"progress":     run.Progress(),
		})
	}
}

// AdminBroadcastCancel stops the in-flight run between sends.
func AdminBroadcastCancel(dispatcher *broadcastsvc.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dispatcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "broadcast service unavailable"))
			return
		}

		run := dispatcher.Current()
		if run == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no broadcast has been started"))
			return
		}

		run.Cancel()
		responses.WriteSuccess(w, map[string]any{
			"broadcast_id": run.ID,
			"progress":     run.Progress(),
		})
	}
}

type startBroadcastRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4096"`
}
