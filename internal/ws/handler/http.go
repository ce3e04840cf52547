package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (hub *Hub) Routes() http.Handler {
	router := chi.NewRouter()
	router.Get("/ws", hub.HandleConnection)
	router.Get("/publish", hub.HandlePublish)

	return router
}
