package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	service "github.com/okian/winstate/internal/app"
	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func intPtr(v int) *int { return &v }

func TestWinStateRequest_Validate(t *testing.T) {
	Convey("Given a win state request", t, func() {
		req := winStateRequest{Moves: intPtr(12), Time: "01:30", Game: "chess"}

		Convey("When all required fields are present", func() {
			Convey("Then validation should pass", func() {
				So(req.validate(), ShouldBeNil)
			})
		})

		Convey("When moves is zero", func() {
			req.Moves = intPtr(0)

			Convey("Then validation should pass", func() {
				So(req.validate(), ShouldBeNil)
			})
		})

		Convey("When moves is missing", func() {
			req.Moves = nil

			Convey("Then validation should fail", func() {
				err := req.validate()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "missing moves")
			})
		})

		Convey("When game is blank", func() {
			req.Game = "   "

			Convey("Then validation should fail", func() {
				err := req.validate()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "missing game")
			})
		})

		Convey("When time is missing", func() {
			req.Time = ""

			Convey("Then validation should fail", func() {
				err := req.validate()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "missing time")
			})
		})
	})
}

func TestWriteServiceError(t *testing.T) {
	Convey("Given service errors of every kind", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("wrap: %w", service.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
			{fmt.Errorf("%w: missing time", model.ErrInvalid), http.StatusBadRequest, "invalid_input"},
			{fmt.Errorf("wrap: %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
			{fmt.Errorf("%w: %w", service.ErrStorageUnavailable, errors.New("dial tcp: refused")), http.StatusInternalServerError, "storage_unavailable"},
			{errors.New("anything else"), http.StatusInternalServerError, "storage_unavailable"},
		}

		Convey("Then each maps to its status code", func() {
			for _, tc := range cases {
				w := httptest.NewRecorder()
				writeServiceError(w, "api.test", tc.err)
				So(w.Code, ShouldEqual, tc.status)
				So(w.Body.String(), ShouldContainSubstring, `"code":"`+tc.code+`"`)
			}
		})

		Convey("Then storage causes are not echoed to clients", func() {
			w := httptest.NewRecorder()
			writeServiceError(w, "api.test", cases[3].err)
			So(w.Body.String(), ShouldNotContainSubstring, "refused")
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given the error helpers", t, func() {
		cause := errors.New("boom")

		Convey("Then Wrap keeps the cause", func() {
			err := Wrap("api.op", cause)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: boom")
		})

		Convey("Then WrapKind keeps both kind and cause", func() {
			err := WrapKind("api.op", ErrBadRequest, cause)
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("Then NewKind tags the kind", func() {
			err := NewKind("api.op", ErrBadRequest)
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request")
		})
	})
}

// errorCount reads errors_by_endpoint_total for one label set.
func errorCount(endpoint, method, kind string) float64 {
	families, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if mf.GetName() != "winstate_leaderboard_errors_by_endpoint_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["endpoint"] == endpoint && labels["method"] == method && labels["error_type"] == kind {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetricsMiddleware_ErrorKinds(t *testing.T) {
	Convey("Given handlers behind the metrics middleware", t, func() {
		serve := func(h http.HandlerFunc, endpoint, method string) int {
			w := httptest.NewRecorder()
			MetricsMiddleware(h, endpoint)(w, httptest.NewRequest(method, "/x", nil))
			return w.Code
		}

		Convey("When a storage failure is written through CORS", func() {
			h := CORSMiddleware(func(w http.ResponseWriter, _ *http.Request) {
				writeServiceError(w, "api.test", service.ErrStorageUnavailable)
			}, []string{"*"}, http.MethodGet)
			before := errorCount("kind_storage", http.MethodGet, "storage_unavailable")
			status := serve(h, "kind_storage", http.MethodGet)

			Convey("Then the storage_unavailable kind should be counted", func() {
				So(status, ShouldEqual, http.StatusInternalServerError)
				So(errorCount("kind_storage", http.MethodGet, "storage_unavailable"), ShouldEqual, before+1)
				So(errorCount("kind_storage", http.MethodGet, "server_error"), ShouldEqual, 0)
			})
		})

		Convey("When invalid input is rejected", func() {
			h := func(w http.ResponseWriter, _ *http.Request) {
				writeServiceError(w, "api.test", fmt.Errorf("%w: missing time", model.ErrInvalid))
			}
			before := errorCount("kind_invalid", http.MethodPost, "invalid_input")
			status := serve(h, "kind_invalid", http.MethodPost)

			Convey("Then the invalid_input kind should be counted", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
				So(errorCount("kind_invalid", http.MethodPost, "invalid_input"), ShouldEqual, before+1)
			})
		})

		Convey("When a handler fails without an error body", func() {
			before := errorCount("kind_plain", http.MethodGet, "not_found")
			status := serve(http.NotFound, "kind_plain", http.MethodGet)

			Convey("Then the status class should be counted", func() {
				So(status, ShouldEqual, http.StatusNotFound)
				So(errorCount("kind_plain", http.MethodGet, "not_found"), ShouldEqual, before+1)
			})
		})

		Convey("When a handler succeeds", func() {
			h := func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
			}
			status := serve(h, "kind_ok", http.MethodGet)

			Convey("Then no error should be counted", func() {
				So(status, ShouldEqual, http.StatusOK)
				So(errorCount("kind_ok", http.MethodGet, "server_error"), ShouldEqual, 0)
				So(errorCount("kind_ok", http.MethodGet, "client_error"), ShouldEqual, 0)
			})
		})
	})
}
