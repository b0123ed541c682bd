package route_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"npocal/src-server/jwt"
	"npocal/src-server/model"
	"npocal/src-server/route"
	"npocal/src-server/service"
	"npocal/src-server/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestStack(t *testing.T) (*utils.AppState, *service.Service) {
	t.Helper()
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	bundb := bun.NewDB(db, sqlitedialect.New())
	require.NoError(t, model.CreateSchema(bundb))

	as := &utils.AppState{
		Config: utils.NewConfig(),
		RawDB:  db,
		BunDB:  bundb,
		// buffered so handler sends land without a collector goroutine
		MetricChans: &utils.Metric{
			DatabaseRead:                  make(chan float64, 1),
			DatabaseWrite:                 make(chan float64, 1),
			DatabaseReadForAuthMiddleware: make(chan float64, 1),
		},
	}
	return as, service.New(bundb)
}

func managerToken(t *testing.T, as *utils.AppState) string {
	t.Helper()
	manager := model.User{ID: "manager-1", DisplayName: "Manager", Role: model.ROLE_MANAGER}
	require.NoError(t, manager.Upsert(context.Background(), as.BunDB))
	token, err := jwt.Encode(jwt.Payload{
		UserID:   manager.ID,
		Role:     string(manager.Role),
		IssuedAt: time.Now().UTC().Unix(),
	}, as.Config.GetJWTSecret())
	require.NoError(t, err)
	return token
}

func TestGetEventsFeedsReadMetric(t *testing.T) {
	as, svc := newTestStack(t)
	muxer := http.NewServeMux()
	route.Calendar(muxer, as, svc)

	body := `{"startDateUnixUTC": 1735689600, "endDateUnixUTC": 1738368000}`
	req := httptest.NewRequest(http.MethodPost, "/calendar/get-events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	muxer.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case latency := <-as.MetricChans.DatabaseRead:
		assert.GreaterOrEqual(t, latency, float64(0))
	default:
		t.Error("expected a read latency sample on the metric channel")
	}
}

func TestCreateEventFeedsWriteMetric(t *testing.T) {
	as, svc := newTestStack(t)
	token := managerToken(t, as)
	muxer := http.NewServeMux()
	route.Calendar(muxer, as, svc)

	body := `{
		"title": "Picnic",
		"startDateUnixUTC": 1735693200,
		"endDateUnixUTC": 1735696800,
		"visibility": "public"
	}`
	req := httptest.NewRequest(http.MethodPost, "/calendar/create-event", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	muxer.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	select {
	case latency := <-as.MetricChans.DatabaseWrite:
		assert.GreaterOrEqual(t, latency, float64(0))
	default:
		t.Error("expected a write latency sample on the metric channel")
	}
}
