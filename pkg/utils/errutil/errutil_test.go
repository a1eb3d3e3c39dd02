package errutil_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/utils/errutil"
)

func TestHandleReturnsSameError(t *testing.T) {
	err := goerr.New("boom", goerr.V("deliverable_id", "d-1"))
	gt.Value(t, errutil.Handle(context.Background(), err, "failed")).Equal(error(err))
	gt.Value(t, errutil.Handle(context.Background(), nil, "noop")).Nil()
}

func TestHandleHTTPWritesJSON(t *testing.T) {
	w := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), w, goerr.New("not here"), http.StatusNotFound)

	gt.Value(t, w.Code).Equal(http.StatusNotFound)
	gt.String(t, w.Header().Get("Content-Type")).Contains("application/json")

	var body map[string]string
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()
	gt.String(t, body["error"]).Contains("not here")
}
