package route

import (
	"encoding/json"
	"net/http"
	"time"

	"npocal/src-server/model"
	"npocal/src-server/service"
	"npocal/src-server/utils"
)

func Users(muxer *http.ServeMux, as *utils.AppState, svc *service.Service) {
	type ChangeRoleReqBody struct {
		Role string `json:"role"`
	}

	// move a user to a new role; admin only, never on yourself, and the
	// last admin can't be demoted
	muxer.HandleFunc("POST /users/{id}/role", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody ChangeRoleReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			startTimer := time.Now()
			if err := svc.ChangeRole(
				r.Context(),
				PrincipalFromRequest(r),
				r.PathValue("id"),
				model.Role(reqBody.Role),
			); err != nil {
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
