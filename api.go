/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type roomCodeResponse struct {
	Code string `json:"code"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}

// serveNewRoom hands out a room code that is not currently in use. The host
// claims it by joining over the websocket.
func serveNewRoom(h *Hub, log *zap.SugaredLogger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		code, err := h.newRoomCode()
		if err != nil {
			log.Errorf("SERVE: Unable to allocate room code: %v", err)

			if err := writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Unable to create room."}); err != nil {
				errs <- err
			}

			return
		}

		if err := writeJSON(w, http.StatusCreated, roomCodeResponse{Code: code}); err != nil {
			errs <- err

			return
		}

		log.Infof("SERVE: Room code %s to %s in %s",
			code,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
