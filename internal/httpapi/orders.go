package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
)

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.ListOrders(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]orderView, 0, len(list))
	for _, aggregate := range list {
		views = append(views, s.toOrderView(aggregate))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.Input
	if err := decodeJSON(r, &in); err != nil {
		s.badJSON(w, r, err)
		return
	}
	aggregate, err := s.orders.CreateOrder(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toOrderView(aggregate))
}

func (s *Server) showOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.withID(w, r, domain.EntityOrder)
	if !ok {
		return
	}
	aggregate, err := s.orders.ShowOrder(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toOrderView(aggregate))
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.withID(w, r, domain.EntityOrder)
	if !ok {
		return
	}
	var in orders.Input
	if err := decodeJSON(r, &in); err != nil {
		s.badJSON(w, r, err)
		return
	}
	aggregate, err := s.orders.UpdateOrder(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toOrderView(aggregate))
}

func (s *Server) orderTimeline(w http.ResponseWriter, r *http.Request) {
	id, ok := s.withID(w, r, domain.EntityOrder)
	if !ok {
		return
	}
	events, err := s.orders.Timeline(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]timelineView, 0, len(events))
	for _, event := range events {
		views = append(views, timelineView{Type: event.Type, Reason: event.Reason, Occurred: event.Occurred})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, domain.EntityOrder, "deleted", s.orders.DeleteOrder)
}

func (s *Server) restoreOrder(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, domain.EntityOrder, "restored", s.orders.RestoreOrder)
}
