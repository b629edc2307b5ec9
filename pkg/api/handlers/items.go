package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"saveit/pkg/auth"
	"saveit/pkg/deeplink"
	"saveit/pkg/logger"
	"saveit/pkg/models"
	"saveit/pkg/pipeline"
	"saveit/pkg/store"
	"saveit/pkg/telemetry"
	"saveit/pkg/utils"
)

var loader = pipeline.New(pipeline.SourceFunc(store.ListItems))

// viewer pulls the authenticated viewer out of the request context. A
// missing viewer means the gateway was bypassed; treat as unauthorized.
func viewer(w http.ResponseWriter, r *http.Request) (auth.Viewer, bool) {
	v, ok := auth.ViewerFromContext(r.Context())
	if !ok || v.ID == 0 {
		utils.JSONError(w, http.StatusUnauthorized, "open the app inside Telegram")
		return auth.Viewer{}, false
	}
	return v, true
}

// ListItems returns the viewer's items newest first plus category counts.
// An optional ?filter=<category> narrows the items; counts always cover
// the full collection.
func ListItems(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = models.FilterAll
	}
	if !models.ValidFilter(filter) {
		utils.JSONError(w, http.StatusBadRequest, "unknown filter: "+filter)
		return
	}

	end := telemetry.StartSpan(r.Context(), "store.list_items")
	res, err := loader.Load(v.ID)
	end()
	if err != nil {
		if errors.Is(err, pipeline.ErrNoViewer) {
			utils.JSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		logger.Error("list_items_failed", "viewer", v.ID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	items := pipeline.ApplyFilter(res.Items, filter)
	if items == nil {
		items = []models.SavedItem{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Items  []models.SavedItem `json:"items"`
		Counts models.Counts      `json:"counts"`
		Filter string             `json:"filter"`
	}{Items: items, Counts: res.Counts, Filter: filter})
}

// GetItem returns one normalized item owned by the viewer.
func GetItem(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	it, err := store.GetItem(v.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "item not found")
			return
		}
		logger.Error("get_item_failed", "viewer", v.ID, "item", id, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, it)
}

// DeleteItem removes one of the viewer's items. Other owners' items are
// invisible here, so a cross-owner id comes back 404.
func DeleteItem(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := store.DeleteItem(v.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "item not found")
			return
		}
		logger.Error("delete_item_failed", "viewer", v.ID, "item", id, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveLink resolves the item's origin link. ?bridge=false marks a client
// that cannot hand URLs back to the Telegram app. Resolution failure is not
// an HTTP error: the outcome reports action "failed" with a reason.
func ResolveLink(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	it, err := store.GetItem(v.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "item not found")
			return
		}
		logger.Error("resolve_link_load_failed", "viewer", v.ID, "item", id, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	bridge := true
	if q := r.URL.Query().Get("bridge"); q != "" {
		b, perr := strconv.ParseBool(q)
		if perr != nil {
			utils.JSONError(w, http.StatusBadRequest, "bridge must be a boolean")
			return
		}
		bridge = b
	}

	out := deeplink.Resolve(it, bridge)
	logger.Debug("link_resolved", "viewer", v.ID, "item", id, "action", out.Action, "via", out.Via)
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

// ListCategories returns the closed category set in display order.
func ListCategories(w http.ResponseWriter, r *http.Request) {
	if _, ok := viewer(w, r); !ok {
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Categories []models.Category `json:"categories"`
	}{Categories: models.Categories})
}
