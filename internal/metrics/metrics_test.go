package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordLike(t *testing.T) {
	ok := testutil.ToFloat64(LikeOperations.WithLabelValues("post", "like", "ok"))
	failed := testutil.ToFloat64(LikeOperations.WithLabelValues("comment", "unlike", "error"))

	RecordLike("post", "like", nil)
	RecordLike("comment", "unlike", errors.New("no match"))

	assert.Equal(t, ok+1, testutil.ToFloat64(LikeOperations.WithLabelValues("post", "like", "ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(LikeOperations.WithLabelValues("comment", "unlike", "error")))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/posts/{postId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.CollectAndCount(HTTPRequestDuration)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts/def", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	// Оба запроса попадают в одну серию
	assert.Equal(t, before+1, testutil.CollectAndCount(HTTPRequestDuration))
	assert.Zero(t, testutil.ToFloat64(HTTPRequestsInFlight))
}
