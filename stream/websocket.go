package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/gofrs/uuid/v5"
)

// WSHandler upgrades HTTP connections to WebSockets and streams broker
// events to them. Clients choose topics with the "topics" query parameter
// (comma-separated); absent or empty, the connection receives the firehose.
type WSHandler struct {
	broker *Broker
	logger *slog.Logger
}

// NewWSHandler creates a WebSocket handler backed by the given broker.
func NewWSHandler(broker *Broker, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{broker: broker, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topics, err := parseTopicsParam(r.URL.Query().Get("topics"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	subscriberID := uuid.Must(uuid.NewV4()).String()
	sub := h.broker.Subscribe(subscriberID, topics...)

	h.logger.Debug("websocket subscriber connected",
		slog.String("subscriber_id", subscriberID),
		slog.Int("topics", len(topics)))

	ctx, cancel := context.WithCancel(r.Context())

	// Reader goroutine: consume control frames and detect disconnect.
	go func() {
		defer cancel()
		for {
			if _, _, err := wsutil.ReadClientData(conn); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			cancel()
			h.broker.RemoveSubscriber(subscriberID)
			conn.Close()
			h.logger.Debug("websocket subscriber disconnected",
				slog.String("subscriber_id", subscriberID))
		}()
		for {
			evt, err := sub.Next(ctx)
			if err != nil {
				if !errors.Is(err, ErrSubscriberClosed) && ctx.Err() == nil {
					h.logger.Warn("websocket receive failed",
						slog.String("subscriber_id", subscriberID),
						slog.String("error", err.Error()))
				}
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if err := wsutil.WriteServerText(conn, payload); err != nil {
				return
			}
			sub.AddCredits(1)
		}
	}()
}

func parseTopicsParam(raw string) ([]string, error) {
	if raw == "" {
		return []string{TopicFirehose}, nil
	}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if err := ValidateTopic(t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		topics = []string{TopicFirehose}
	}
	return topics, nil
}
