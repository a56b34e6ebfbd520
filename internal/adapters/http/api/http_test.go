package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/rsvp/internal/adapters/http/api"
	repository "github.com/okian/rsvp/internal/adapters/repository"
	service "github.com/okian/rsvp/internal/app"
	"github.com/okian/rsvp/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const adminKey = "test-admin-key"

func newTestServer(rateLimit int, invitees ...string) (http.Handler, *service.Service) {
	store := repository.NewMemoryStore()
	for _, n := range invitees {
		_, err := store.InsertInvitee(context.Background(), n)
		So(err, ShouldBeNil)
	}
	svc := service.New(
		service.WithStore(store),
		service.WithLogger(logger.Nop()),
		service.WithRateLimit(rateLimit, time.Hour),
	)
	So(svc.Start(context.Background()), ShouldBeNil)

	srv := api.NewServer(svc,
		api.WithAdminKey(adminKey),
		api.WithContactEmail("hosts@example.com"),
		api.WithImportMaxBytes(1024),
	)
	return srv.Handler(), svc
}

func do(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func admin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + adminKey}
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
	return out
}

const janeRSVP = `{"guests":[{"name":"Jane Smyth","dinner":"fish"}],"email":"jane@example.com"}`

func TestHealthAndFallback(t *testing.T) {
	Convey("Given an API handler", t, func() {
		h, svc := newTestServer(5)
		defer svc.Stop()

		Convey("Health reports ok with a timestamp", func() {
			rec := do(h, http.MethodGet, "/api/health", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["status"], ShouldEqual, "ok")
			_, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string))
			So(err, ShouldBeNil)
		})

		Convey("Unknown API paths return a JSON 404", func() {
			rec := do(h, http.MethodGet, "/api/nope", "", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(decode(rec)["error"], ShouldEqual, "Endpoint not found")
		})

		Convey("Metrics are exposed from the custom registry", func() {
			do(h, http.MethodGet, "/api/health", "", nil)
			rec := do(h, http.MethodGet, "/metrics", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "rsvp_api_http_requests_total")
		})
	})
}

func TestSubmitRSVP(t *testing.T) {
	Convey("Given a guest list with Jane Smith", t, func() {
		h, svc := newTestServer(2, "jane smith")
		defer svc.Stop()

		Convey("A close spelling is accepted", func() {
			rec := do(h, http.MethodPost, "/api/rsvp", janeRSVP, nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["success"], ShouldBeTrue)
			So(body["guestCount"], ShouldEqual, 1.0)
			So(body["groupId"], ShouldNotBeEmpty)
		})

		Convey("A stranger is forbidden with the contact hint", func() {
			rec := do(h, http.MethodPost, "/api/rsvp", `{"guests":[{"name":"Bob Jones","dinner":"meat"}]}`, nil)
			So(rec.Code, ShouldEqual, http.StatusForbidden)
			body := decode(rec)
			So(body["success"], ShouldBeFalse)
			So(body["error"], ShouldContainSubstring, "hosts@example.com")
		})

		Convey("Validation failures name the field", func() {
			rec := do(h, http.MethodPost, "/api/rsvp", `{"guests":[{"name":"Jane Smith","dinner":"soup"}]}`, nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			body := decode(rec)
			So(body["field"], ShouldEqual, "guests[0].dinner")
			So(body["error"], ShouldEqual, "Guest 1 must have a valid dinner selection")
		})

		Convey("Malformed JSON is a bad request", func() {
			rec := do(h, http.MethodPost, "/api/rsvp", `{"guests":`, nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The client is limited after the quota", func() {
			So(do(h, http.MethodPost, "/api/rsvp", janeRSVP, nil).Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/api/rsvp", janeRSVP, nil).Code, ShouldEqual, http.StatusOK)
			rec := do(h, http.MethodPost, "/api/rsvp", janeRSVP, nil)
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			So(rec.Header().Get("Retry-After"), ShouldNotBeEmpty)
			So(decode(rec)["code"], ShouldEqual, "rate_limited")
		})
	})

	Convey("Given an empty guest list", t, func() {
		h, svc := newTestServer(5)
		defer svc.Stop()

		Convey("Submissions fail as a server problem", func() {
			rec := do(h, http.MethodPost, "/api/rsvp", janeRSVP, nil)
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(rec)["code"], ShouldEqual, "not_configured")
		})
	})
}

func TestAdminRoutes(t *testing.T) {
	Convey("Given a stored RSVP", t, func() {
		h, svc := newTestServer(5, "jane smith")
		defer svc.Stop()
		rec := do(h, http.MethodPost, "/api/rsvp", janeRSVP, nil)
		So(rec.Code, ShouldEqual, http.StatusOK)
		groupID := decode(rec)["groupId"].(string)

		Convey("Admin routes require the bearer key", func() {
			So(do(h, http.MethodGet, "/api/rsvps", "", nil).Code, ShouldEqual, http.StatusUnauthorized)
			So(do(h, http.MethodGet, "/api/rsvps", "", map[string]string{"Authorization": "Basic x"}).Code, ShouldEqual, http.StatusUnauthorized)
			So(do(h, http.MethodGet, "/api/rsvps", "", map[string]string{"Authorization": "Bearer wrong"}).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Listing returns the RSVP", func() {
			body := decode(do(h, http.MethodGet, "/api/rsvps", "", admin()))
			So(body["count"], ShouldEqual, 1.0)
		})

		Convey("Stats are not shadowed by the group route", func() {
			rec := do(h, http.MethodGet, "/api/rsvps/stats", "", admin())
			So(rec.Code, ShouldEqual, http.StatusOK)
			stats := decode(rec)["stats"].(map[string]any)
			So(stats["fish_count"], ShouldEqual, 1.0)
			So(stats["total_parties"], ShouldEqual, 1.0)
		})

		Convey("A group is fetched by id", func() {
			rec := do(h, http.MethodGet, "/api/rsvps/"+groupID, "", admin())
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["count"], ShouldEqual, 1.0)
		})

		Convey("An unknown group is a 404", func() {
			So(do(h, http.MethodGet, "/api/rsvps/missing", "", admin()).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("The invitee count is reported", func() {
			So(decode(do(h, http.MethodGet, "/api/admin/invitees/count", "", admin()))["count"], ShouldEqual, 1.0)
		})
	})

	Convey("Given a server without an admin key", t, func() {
		svc := service.New(service.WithStore(repository.NewMemoryStore()), service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		h := api.NewServer(svc).Handler()

		Convey("Every admin request is rejected", func() {
			rec := do(h, http.MethodGet, "/api/rsvps", "", map[string]string{"Authorization": "Bearer "})
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestInviteeImport(t *testing.T) {
	Convey("Given an admin client", t, func() {
		h, svc := newTestServer(5, "jane smith")
		defer svc.Stop()

		Convey("A raw CSV body imports and reports row errors", func() {
			csv := "name,side\nJohn Doe,groom\n,bride\nJANE SMITH,bride\n"
			hdr := admin()
			hdr["Content-Type"] = "text/csv"
			rec := do(h, http.MethodPost, "/api/admin/invitees/import", csv, hdr)
			So(rec.Code, ShouldEqual, http.StatusOK)
			res := decode(rec)["results"].(map[string]any)
			So(res["total"], ShouldEqual, 3.0)
			So(res["successful"], ShouldEqual, 1.0)
			So(res["failed"], ShouldEqual, 2.0)
			errs := res["errors"].([]any)
			So(errs[0].(map[string]any)["error"], ShouldEqual, "Empty or missing name field")
			So(errs[1].(map[string]any)["error"], ShouldEqual, "Invitee already exists")
		})

		Convey("A multipart upload uses the csv field", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			fw, err := mw.CreateFormFile("csv", "guests.csv")
			So(err, ShouldBeNil)
			_, _ = fw.Write([]byte("Name\nAlice Walker\n"))
			So(mw.Close(), ShouldBeNil)

			hdr := admin()
			hdr["Content-Type"] = mw.FormDataContentType()
			rec := do(h, http.MethodPost, "/api/admin/invitees/import", buf.String(), hdr)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["results"].(map[string]any)["successful"], ShouldEqual, 1.0)
		})

		Convey("A request without a CSV is rejected", func() {
			rec := do(h, http.MethodPost, "/api/admin/invitees/import", "{}", admin())
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(rec)["error"], ShouldEqual, "No CSV file provided")
		})

		Convey("A CSV without a name column is rejected", func() {
			hdr := admin()
			hdr["Content-Type"] = "text/csv"
			rec := do(h, http.MethodPost, "/api/admin/invitees/import", "email\na@b.c\n", hdr)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An oversized CSV is rejected", func() {
			hdr := admin()
			hdr["Content-Type"] = "text/csv"
			body := "name\n" + strings.Repeat("Guest Name\n", 200)
			rec := do(h, http.MethodPost, "/api/admin/invitees/import", body, hdr)
			So(rec.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("Clearing requires confirmation", func() {
			So(do(h, http.MethodDelete, "/api/admin/invitees", "", admin()).Code, ShouldEqual, http.StatusBadRequest)

			rec := do(h, http.MethodDelete, "/api/admin/invitees?confirm=DELETE_ALL", "", admin())
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["deleted"], ShouldEqual, 1.0)
			n, err := svc.InviteeCount(context.Background())
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestClientIdentity(t *testing.T) {
	Convey("Given a server trusting proxy headers", t, func() {
		store := repository.NewMemoryStore()
		_, err := store.InsertInvitee(context.Background(), "jane smith")
		So(err, ShouldBeNil)
		svc := service.New(service.WithStore(store), service.WithLogger(logger.Nop()), service.WithRateLimit(1, time.Hour))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		h := api.NewServer(svc, api.WithTrustProxyHeaders(true)).Handler()

		Convey("Each forwarded client gets its own quota", func() {
			first := map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}
			second := map[string]string{"X-Forwarded-For": "203.0.113.2"}
			So(do(h, http.MethodPost, "/api/rsvp", janeRSVP, first).Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/api/rsvp", janeRSVP, first).Code, ShouldEqual, http.StatusTooManyRequests)
			So(do(h, http.MethodPost, "/api/rsvp", janeRSVP, second).Code, ShouldEqual, http.StatusOK)
		})
	})
}
