package route

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"npocal/src-server/model"
	"npocal/src-server/service"
	"npocal/src-server/utils"
)

type RecurrenceReqBody struct {
	Freq         string `json:"freq"`
	Interval     int    `json:"interval"`
	Weekdays     []int  `json:"weekdays"`
	DayOfMonth   int    `json:"dayOfMonth"`
	UntilUnixUTC int64  `json:"untilUnixUTC"`
	Count        int    `json:"count"`
}

func (r *RecurrenceReqBody) toDraft() *service.RecurrenceDraft {
	if r == nil {
		return nil
	}
	weekdays := make([]time.Weekday, 0, len(r.Weekdays))
	for _, wd := range r.Weekdays {
		weekdays = append(weekdays, time.Weekday(wd))
	}
	return &service.RecurrenceDraft{
		Freq:         model.Frequency(r.Freq),
		Interval:     r.Interval,
		Weekdays:     weekdays,
		DayOfMonth:   r.DayOfMonth,
		UntilUnixUTC: r.UntilUnixUTC,
		Count:        r.Count,
	}
}

type EventFieldsReqBody struct {
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Location         string             `json:"location"`
	StartDateUnixUTC int64              `json:"startDateUnixUTC"`
	EndDateUnixUTC   int64              `json:"endDateUnixUTC"`
	IsAllDay         bool               `json:"isAllDay"`
	Visibility       string             `json:"visibility"`
	CategoryID       string             `json:"categoryId"`
	Recurrence       *RecurrenceReqBody `json:"recurrence"`
}

func (b *EventFieldsReqBody) toDraft() service.EventDraft {
	return service.EventDraft{
		Title:            b.Title,
		Description:      b.Description,
		Location:         b.Location,
		StartDateUnixUTC: b.StartDateUnixUTC,
		EndDateUnixUTC:   b.EndDateUnixUTC,
		IsAllDay:         b.IsAllDay,
		Visibility:       model.Visibility(b.Visibility),
		CategoryID:       b.CategoryID,
		Recurrence:       b.Recurrence.toDraft(),
	}
}

type OneEventRespBody struct {
	ID                       string `json:"id"`
	Title                    string `json:"title"`
	Description              string `json:"description"`
	Location                 string `json:"location"`
	StartDateUnixUTC         int64  `json:"startDateUnixUTC"`
	EndDateUnixUTC           int64  `json:"endDateUnixUTC"`
	IsAllDay                 bool   `json:"isAllDay"`
	Visibility               string `json:"visibility"`
	CategoryID               string `json:"categoryId,omitempty"`
	OwnerID                  string `json:"ownerId"`
	Recurring                bool   `json:"recurring"`
	OriginalStartDateUnixUTC int64  `json:"originalStartDateUnixUTC,omitempty"`
}

func toOneEventRespBody(event *model.Event) OneEventRespBody {
	return OneEventRespBody{
		ID:                       event.ID,
		Title:                    event.Title,
		Description:              event.Description,
		Location:                 event.Location,
		StartDateUnixUTC:         event.StartDateUnixUTC,
		EndDateUnixUTC:           event.EndDateUnixUTC,
		IsAllDay:                 event.IsAllDay,
		Visibility:               string(event.Visibility),
		CategoryID:               event.CategoryID,
		OwnerID:                  event.OwnerID,
		Recurring:                event.IsTemplate() || event.OriginalStartDateUnixUTC != 0,
		OriginalStartDateUnixUTC: event.OriginalStartDateUnixUTC,
	}
}

func Calendar(muxer *http.ServeMux, as *utils.AppState, svc *service.Service) {
	type GetEventsReqBody struct {
		StartDateUnixUTC int64 `json:"startDateUnixUTC"`
		EndDateUnixUTC   int64 `json:"endDateUnixUTC"`
		// human-readable alternatives to the unix pair, e.g. "next monday"
		Start string `json:"start"`
		End   string `json:"end"`
	}

	// get all events visible to the caller in a date range
	muxer.HandleFunc("POST /calendar/get-events", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromRequest(r)

			// #region - parse date window
			var reqBody GetEventsReqBody
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			startDate := time.Unix(reqBody.StartDateUnixUTC, 0).UTC()
			endDate := time.Unix(reqBody.EndDateUnixUTC, 0).UTC()
			if reqBody.StartDateUnixUTC == 0 && reqBody.Start != "" {
				parsed, err := as.When.Parse(reqBody.Start, time.Now())
				if err != nil || parsed == nil {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Can't parse start date"))
					return
				}
				startDate = parsed.Time.UTC().Truncate(24 * time.Hour)
			}
			if reqBody.EndDateUnixUTC == 0 && reqBody.End != "" {
				parsed, err := as.When.Parse(reqBody.End, time.Now())
				if err != nil || parsed == nil {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Can't parse end date"))
					return
				}
				endDate = parsed.Time.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
			}
			if startDate.Unix() == 0 || endDate.Unix() == 0 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a start date and end date"))
				return
			}
			// #endregion

			startTimer := time.Now()
			events, err := svc.ListVisibleEvents(r.Context(), principal, startDate, endDate)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds()):
			default:
			}

			respBody := make([]OneEventRespBody, 0, len(events))
			for _, event := range events {
				respBody = append(respBody, toOneEventRespBody(event))
			}
			respBodyJson, err := json.Marshal(respBody)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't marshal response body"))
				return
			}

			w.WriteHeader(http.StatusOK)
			w.Write(respBodyJson)
		}))

	// create a new event, the success response is the event ID
	muxer.HandleFunc("POST /calendar/create-event", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromRequest(r)

			var reqBody EventFieldsReqBody
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			startTimer := time.Now()
			event, err := svc.CreateEvent(r.Context(), principal, reqBody.toDraft())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
			default:
			}

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(event.ID))
		}))

	type ModifyEventReqBody struct {
		ID                string `json:"id"`
		Scope             string `json:"scope"`
		TargetDateUnixUTC int64  `json:"targetDateUnixUTC"`
		EventFieldsReqBody
	}

	// modify an existing event; scope picks how much of a recurring
	// series the edit touches
	muxer.HandleFunc("POST /calendar/modify-event", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromRequest(r)

			var reqBody ModifyEventReqBody
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if reqBody.ID == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide an event ID"))
				return
			}
			scope := service.Scope(reqBody.Scope)
			if scope == "" {
				scope = service.SCOPE_SINGLE
			}

			startTimer := time.Now()
			event, err := svc.UpdateEvent(
				r.Context(),
				principal,
				reqBody.ID,
				scope,
				time.Unix(reqBody.TargetDateUnixUTC, 0).UTC(),
				reqBody.toDraft(),
			)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			select {
			case as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds()):
			default:
			}

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(event.ID))
		}))

	// delete an event; scope works as for modify
	muxer.HandleFunc("DELETE /event/{id}", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromRequest(r)

			id := r.PathValue("id")
			if id == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide an event ID"))
				return
			}
			scope := service.Scope(r.URL.Query().Get("scope"))
			if scope == "" {
				scope = service.SCOPE_SINGLE
			}
			targetDate := time.Time{}
			if raw := r.URL.Query().Get("targetDateUnixUTC"); raw != "" {
				unix, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Invalid target date"))
					return
				}
				targetDate = time.Unix(unix, 0).UTC()
			}

			startTimer := time.Now()
			if err := svc.DeleteEvent(r.Context(), principal, id, scope, targetDate); err != nil {
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
