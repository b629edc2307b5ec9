package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"saveit/pkg/api/handlers"
)

// Handler returns the versioned JSON API:
//   - GET    /v1/items?filter=<category>   list the viewer's items
//   - GET    /v1/items/{id}                one normalized item
//   - DELETE /v1/items/{id}                remove an item
//   - GET    /v1/items/{id}/link?bridge=   resolve the item's deep link
//   - GET    /v1/categories                the closed category set
func Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/items", handlers.ListItems).Methods(http.MethodGet)
	r.HandleFunc("/v1/items/{id}", handlers.GetItem).Methods(http.MethodGet)
	r.HandleFunc("/v1/items/{id}", handlers.DeleteItem).Methods(http.MethodDelete)
	r.HandleFunc("/v1/items/{id}/link", handlers.ResolveLink).Methods(http.MethodGet)
	r.HandleFunc("/v1/categories", handlers.ListCategories).Methods(http.MethodGet)
	return r
}
