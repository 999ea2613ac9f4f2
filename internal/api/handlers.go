// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ManuGH/diyepg/internal/diyp"
	"github.com/ManuGH/diyepg/internal/guide"
	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/source"
)

// statusClientClosedRequest is the non-standard code logged when the client
// went away before the response was ready.
const statusClientClosedRequest = 499

// handleEPG serves one DIYP guide request.
func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	q := diyp.ParseQuery(r.URL.Query(), s.guide.Now(), s.guide.Location())

	resp, err := s.guide.Lookup(r.Context(), q)
	if err != nil {
		s.writeLookupError(w, r, q, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, q diyp.Query, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var internal *guide.InternalError
	switch {
	case errors.Is(err, guide.ErrChannelRequired):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))

	case errors.Is(err, context.Canceled):
		logger.Debug().Str(log.FieldEvent, "epg.client_gone").Msg("client cancelled request")
		w.WriteHeader(statusClientClosedRequest)

	case source.IsUpstream(err), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusInternalServerError, guide.CategoryUpstream, err.Error())

	case errors.As(err, &internal):
		body := errorResponse{Error: guide.CategoryInternal, Message: internal.Error()}
		if q.Debug {
			body.Stack = internal.Stack
		}
		writeJSON(w, http.StatusInternalServerError, body)

	default:
		logger.Error().Err(err).Str(log.FieldEvent, "epg.unexpected_error").Msg("unexpected lookup error")
		writeError(w, http.StatusInternalServerError, guide.CategoryInternal, "unexpected error")
	}
}
