package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/mvavassori/portfolio-pulse/utils"
)

// AdminLogin exchanges the admin password for a bearer token. There is
// exactly one admin (the portfolio owner's operator side); visitor
// identity is handled by the external identity provider, not here.
func AdminLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid JSON format")
			return
		}

		passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")
		if passwordHash == "" {
			log.Println("ADMIN_PASSWORD_HASH is not set; admin login disabled")
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		err = bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(body.Password))
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := utils.CreateAccessToken("admin")
		if err != nil {
			log.Println("Error creating access token:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		utils.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}
