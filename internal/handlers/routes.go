package handlers

import (
	"github.com/gorilla/mux"
)

// Register attaches the ops endpoints to root and the API endpoints to api.
// Callers apply auth and rate limiting middleware to api before registering.
func (h *Handlers) Register(root, api *mux.Router) {
	root.HandleFunc("/health", h.HealthCheck).Methods("GET")
	root.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	root.HandleFunc("/livez", h.Livez).Methods("GET")
	root.HandleFunc("/readyz", h.Readyz).Methods("GET")
	root.HandleFunc("/version", h.GetVersion).Methods("GET")

	api.HandleFunc("/media/upload-urls", h.GetUploadURLs).Methods("GET")
	api.HandleFunc("/media/upload-variant", h.UploadVariant).Methods("POST")
	api.HandleFunc("/media/confirm", h.ConfirmMedia).Methods("POST")
	api.HandleFunc("/media/bulk-delete", h.BulkDeleteMedia).Methods("POST")
	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/media/{id:[0-9]+}", h.GetMediaByID).Methods("GET")
	api.HandleFunc("/media/{id:[0-9]+}", h.UpdateMedia).Methods("PATCH")

	api.HandleFunc("/articles", h.ListArticles).Methods("GET")
	api.HandleFunc("/articles", h.CreateArticle).Methods("POST")
	api.HandleFunc("/articles/{slug}", h.GetArticle).Methods("GET")
	api.HandleFunc("/articles/{slug}", h.UpdateArticle).Methods("PUT")
	api.HandleFunc("/articles/{slug}", h.DeleteArticle).Methods("DELETE")

	api.HandleFunc("/recipes", h.ListRecipes).Methods("GET")
	api.HandleFunc("/recipes", h.CreateRecipe).Methods("POST")
	api.HandleFunc("/recipes/{slug}", h.GetRecipe).Methods("GET")
	api.HandleFunc("/recipes/{slug}", h.UpdateRecipe).Methods("PUT")
	api.HandleFunc("/recipes/{slug}", h.DeleteRecipe).Methods("DELETE")

	api.HandleFunc("/categories", h.ListCategories).Methods("GET")
	api.HandleFunc("/categories", h.CreateCategory).Methods("POST")
	api.HandleFunc("/categories/{id:[0-9]+}", h.DeleteCategory).Methods("DELETE")

	api.HandleFunc("/tags", h.ListTags).Methods("GET")
}
