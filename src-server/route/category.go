package route

import (
	"encoding/json"
	"net/http"
	"time"

	"npocal/src-server/model"
	"npocal/src-server/service"
	"npocal/src-server/utils"
)

func Categories(muxer *http.ServeMux, as *utils.AppState, svc *service.Service) {
	type CategoryReqBody struct {
		Name        string `json:"name"`
		Color       string `json:"color"`
		Icon        string `json:"icon"`
		Description string `json:"description"`
	}

	type OneCategoryRespBody struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Color       string `json:"color"`
		Icon        string `json:"icon,omitempty"`
		Description string `json:"description,omitempty"`
		Position    int    `json:"position"`
		Active      bool   `json:"active"`
	}

	toRespBody := func(category *model.Category) OneCategoryRespBody {
		return OneCategoryRespBody{
			ID:          category.ID,
			Name:        category.Name,
			Color:       category.Color,
			Icon:        category.Icon,
			Description: category.Description,
			Position:    category.Position,
			Active:      category.Active,
		}
	}

	// list categories in display order; non-admins only see active ones
	muxer.HandleFunc("GET /categories", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			startTimer := time.Now()
			categories, err := svc.ListCategories(r.Context(), PrincipalFromRequest(r))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds()):
			default:
			}
			respBody := make([]OneCategoryRespBody, 0, len(categories))
			for _, category := range categories {
				respBody = append(respBody, toRespBody(category))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(respBody)
		}))

	// create a category, the success response is the category ID
	muxer.HandleFunc("POST /categories", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody CategoryReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			startTimer := time.Now()
			category, err := svc.CreateCategory(r.Context(), PrincipalFromRequest(r), service.CategoryDraft{
				Name:        reqBody.Name,
				Color:       reqBody.Color,
				Icon:        reqBody.Icon,
				Description: reqBody.Description,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
			default:
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(category.ID))
		}))

	// edit a category
	muxer.HandleFunc("PATCH /categories/{id}", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody CategoryReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			startTimer := time.Now()
			category, err := svc.UpdateCategory(r.Context(), PrincipalFromRequest(r), r.PathValue("id"), service.CategoryDraft{
				Name:        reqBody.Name,
				Color:       reqBody.Color,
				Icon:        reqBody.Icon,
				Description: reqBody.Description,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
			default:
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(category.ID))
		}))

	type SetActiveReqBody struct {
		Active bool `json:"active"`
	}

	// activate/deactivate (soft delete) a category
	muxer.HandleFunc("POST /categories/{id}/active", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody SetActiveReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			startTimer := time.Now()
			if err := svc.SetCategoryActive(r.Context(), PrincipalFromRequest(r), r.PathValue("id"), reqBody.Active); err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
			default:
			}
			w.WriteHeader(http.StatusOK)
		}))

	type ReorderReqBody struct {
		OrderedIDs []string `json:"orderedIds"`
	}

	// rewrite display order
	muxer.HandleFunc("POST /categories/reorder", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody ReorderReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			startTimer := time.Now()
			if err := svc.ReorderCategories(r.Context(), PrincipalFromRequest(r), reqBody.OrderedIDs); err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
			default:
			}
			w.WriteHeader(http.StatusOK)
		}))

	// hard delete; events referencing the category keep existing with the
	// reference cleared
	muxer.HandleFunc("DELETE /categories/{id}", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			startTimer := time.Now()
			if err := svc.DeleteCategory(r.Context(), PrincipalFromRequest(r), r.PathValue("id")); err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
			default:
			}
			w.WriteHeader(http.StatusOK)
		}))
}
