package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mvavassori/portfolio-pulse/models"
	"github.com/mvavassori/portfolio-pulse/services"
	"github.com/mvavassori/portfolio-pulse/utils"
)

func extractOwnerID(r *http.Request) (string, error) {
	vars := mux.Vars(r)
	ownerID, ok := vars["ownerId"]
	if !ok || strings.TrimSpace(ownerID) == "" {
		return "", errors.New("ownerId not provided in the URL")
	}
	return ownerID, nil
}

// GetPortfolio is the App Clip's read path: the whole document in one
// response, no auth.
func GetPortfolio(portfolios services.Portfolios) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := extractOwnerID(r)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		portfolio, err := portfolios.Get(r.Context(), ownerID)
		if err == services.ErrPortfolioNotFound {
			utils.WriteError(w, http.StatusNotFound, "Portfolio not found")
			return
		} else if err != nil {
			log.Println("Error retrieving portfolio:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		utils.WriteJSON(w, http.StatusOK, portfolio)
	}
}

// UpdatePortfolio replaces the owner's document. Admin only; the full
// app edits section by section client-side and puts the result here.
func UpdatePortfolio(portfolios services.Portfolios) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := extractOwnerID(r)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		var portfolio models.Portfolio
		err = json.NewDecoder(r.Body).Decode(&portfolio)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid JSON format")
			return
		}

		updated, err := portfolios.Upsert(r.Context(), ownerID, portfolio)
		if err != nil {
			log.Println("Error updating portfolio:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		utils.WriteJSON(w, http.StatusOK, updated)
	}
}
