package httpapi

import (
	"context"
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// lifecycle обслуживает delete/restore: одинаковые для всех сущностей ответы
// "<Entity> deleted successfully." и "<Entity> restored successfully.".
func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, entity domain.Entity, verb string, op func(context.Context, int64) error) {
	id, ok := s.withID(w, r, entity)
	if !ok {
		return
	}
	if err := op(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, string(entity)+" "+verb+" successfully.")
}
