/*
Package handler provides the HTTP handler function for WebSocket connection upgrading
and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to WebSocket, minting the connection id, and driving the
client's read/write pumps. Room membership happens later, over the channel itself, via
the join event.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"coderoom/internal/app/session"
	"coderoom/internal/pkg/errs"
	"coderoom/internal/pkg/limiter"
	"coderoom/internal/pkg/logx"
	"coderoom/internal/pkg/randx"
	"coderoom/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connectionID := randx.ConnectionID()

		client := session.NewClient(deps.Gateway, conn, connectionID)

		go client.WritePump()

		logx.Info("WebSocket connection established", "client_id", connectionID)

		client.ReadPump()
	}
}
