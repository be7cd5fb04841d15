/*
Package handler provides the HTTP handler for the request/response execution surface.

The REST path and the real-time channel share the same coordinator, so an outcome
produced here is also pushed to the whole room over WebSocket.
*/
package handler

import (
	"net/http"

	"coderoom/internal/app/execution"
	"coderoom/internal/pkg/req"
	"coderoom/internal/pkg/resp"
)

// HandleExecute accepts an execution request, runs it through the coordinator,
// and answers with the execution service's result body. Missing required
// fields yield 400 without contacting the service; execution failures yield
// 500 with the normalized message. Either way the room hears about it over the
// real-time channel too.
func HandleExecute(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input execution.Request

		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, execErr := deps.Coordinator.Execute(r.Context(), input)
		if execErr != nil {
			resp.RespondError(w, r, execErr)
			return
		}

		resp.RespondRaw(w, r, http.StatusOK, result)
	}
}
