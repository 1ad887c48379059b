package api

import "net/http"

// handleReindex forces a synchronous indexing pass. The pass only reads
// artifacts not yet indexed, so repeated calls are cheap.
func (s *server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.RunPass(r.Context()); err != nil {
		s.log.WithError(err).Error("Forced indexing pass failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"indexing pass failed"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
