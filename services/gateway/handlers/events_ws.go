// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// wsWriteTimeout bounds each write so one stalled client cannot pin the
// goroutine forever.
const wsWriteTimeout = 10 * time.Second

// HandleEventsWebSocket streams domain events to the client. On connect
// the recent-event ring is replayed so a reconnecting client sees what it
// missed, then live events follow until either side closes.
func HandleEventsWebSocket(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("Events client connected", "remote", ws.RemoteAddr().String())

		events, cancel := core.Subscribe(0)
		defer cancel()

		// Replay the ring first so the stream has no gap for reconnects.
		for _, ev := range core.RecentEvents() {
			if err := writeEvent(ws, ev); err != nil {
				return
			}
		}

		// Drain reads so close frames and pings are processed.
		go func() {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for ev := range events {
			if err := writeEvent(ws, ev); err != nil {
				slog.Info("Events client disconnected", "error", err.Error())
				return
			}
		}
	}
}

func writeEvent(ws *websocket.Conn, v any) error {
	if err := ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return ws.WriteJSON(v)
}
