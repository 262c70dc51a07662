package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/customers"
)

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	list, err := s.customers.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]clientView, 0, len(list))
	for _, c := range list {
		views = append(views, toClientView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var in customers.Input
	if err := decodeJSON(r, &in); err != nil {
		s.badJSON(w, r, err)
		return
	}
	created, err := s.customers.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientView(created))
}

func (s *Server) showClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.withID(w, r, domain.EntityClient)
	if !ok {
		return
	}
	c, err := s.customers.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientView(c))
}

func (s *Server) updateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.withID(w, r, domain.EntityClient)
	if !ok {
		return
	}
	var in customers.Input
	if err := decodeJSON(r, &in); err != nil {
		s.badJSON(w, r, err)
		return
	}
	updated, err := s.customers.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientView(updated))
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, domain.EntityClient, "deleted", s.customers.Delete)
}

func (s *Server) restoreClient(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, domain.EntityClient, "restored", s.customers.Restore)
}
