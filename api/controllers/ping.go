package controllers

import (
	"net/http"

	"github.com/plateiq/restaurant-backend/api/middleware"
	"github.com/plateiq/restaurant-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if restaurant := middleware.RestaurantIDFromContext(r.Context()); restaurant != "" {
			payload["restaurant_id"] = restaurant
		}
		responses.WriteSuccess(w, payload)
	}
}
